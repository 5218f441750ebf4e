/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ItemWildcard in a resolve path fans out over every element of an array.
const ItemWildcard = "[item]"

// Eval reports whether record satisfies e. A nil expression matches every
// record. e may be an Expr or the equivalent value decoded from JSON.
func Eval(e interface{}, record map[string]interface{}) (bool, error) {
	if e == nil {
		return true, nil
	}
	node, ok := asExpr(e)
	if !ok {
		return false, errors.Errorf("expression %v is not an operator node", e)
	}
	if len(node) == 0 {
		return true, nil
	}

	switch op := node.Op(); op {
	case OpAnd:
		for _, child := range node[1:] {
			ok, err := Eval(child, record)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case OpNot:
		if len(node) != 2 {
			return false, errors.Errorf("%s takes one argument", op)
		}
		ok, err := Eval(node[1], record)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case OpIn:
		if len(node) != 3 {
			return false, errors.Errorf("%s takes two arguments", op)
		}
		list, ok := asExpr(node[2])
		if !ok || list.Op() != OpList {
			return false, errors.Errorf("%s expects a %s", op, OpList)
		}
		values, err := resolve(node[1], record)
		if err != nil {
			return false, err
		}
		for _, v := range values {
			for _, candidate := range list[1:] {
				if compare(v, candidate) == 0 {
					return true, nil
				}
			}
		}
		return false, nil
	case OpEq, OpLt, OpLe, OpGt, OpGe, OpILike:
		if len(node) != 3 {
			return false, errors.Errorf("%s takes two arguments", op)
		}
		values, err := resolve(node[1], record)
		if err != nil {
			return false, err
		}
		for _, v := range values {
			if match(op, v, node[2]) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errors.Errorf("unknown operator %q", op)
	}
}

// Lookup returns every value found at path in record, fanning out over
// arrays at ItemWildcard.
func Lookup(record map[string]interface{}, path ...string) []interface{} {
	values, _ := resolve(Resolve(path...), record)
	return values
}

func asExpr(e interface{}) (Expr, bool) {
	switch n := e.(type) {
	case Expr:
		return n, true
	case []interface{}:
		return Expr(n), true
	}
	return nil, false
}

func resolve(e interface{}, record map[string]interface{}) ([]interface{}, error) {
	node, ok := asExpr(e)
	if !ok || node.Op() != OpResolve {
		return nil, errors.Errorf("expected a %s node, got %v", OpResolve, e)
	}

	current := []interface{}{record}
	for _, part := range node[1:] {
		key, _ := part.(string)
		var next []interface{}
		for _, c := range current {
			if key == ItemWildcard {
				if items, ok := c.([]interface{}); ok {
					next = append(next, items...)
				}
				continue
			}
			if m, ok := c.(map[string]interface{}); ok {
				if v, ok := m[key]; ok {
					next = append(next, v)
				}
			}
		}
		current = next
	}
	return current, nil
}

func match(op string, v, operand interface{}) bool {
	if op == OpILike {
		return like(fmt.Sprint(v), fmt.Sprint(operand))
	}
	c := compare(v, operand)
	switch op {
	case OpEq:
		return c == 0
	case OpLt:
		return c == -1
	case OpLe:
		return c == -1 || c == 0
	case OpGt:
		return c == 1
	case OpGe:
		return c == 1 || c == 0
	}
	return false
}

// compare orders a and b numerically when both are numbers, textually
// otherwise. Values that cannot be ordered against each other return 2.
func compare(a, b interface{}) int {
	fa, aok := number(a)
	fb, bok := number(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	if _, isMap := a.(map[string]interface{}); isMap {
		return 2
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func like(value, pattern string) bool {
	parts := strings.Split(pattern, "%")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("(?is)^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(value)
}
