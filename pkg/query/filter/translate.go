/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package filter

import (
	"strconv"
	"strings"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
)

const (
	OpAnd     = "#and"
	OpNot     = "#not"
	OpEq      = "#eq"
	OpLt      = "#lt"
	OpLe      = "#le"
	OpGt      = "#gt"
	OpGe      = "#ge"
	OpILike   = "#ilike"
	OpIn      = "#in"
	OpList    = "#list"
	OpResolve = "#resolve"
)

// Expr is a node of the metadata service's query language: an operator
// followed by its arguments, serialised as a JSON array.
type Expr []interface{}

func (e Expr) Op() string {
	if len(e) == 0 {
		return ""
	}
	op, _ := e[0].(string)
	return op
}

func Resolve(path ...string) Expr {
	e := Expr{OpResolve}
	for _, p := range path {
		e = append(e, p)
	}
	return e
}

func And(a, b Expr) Expr { return Expr{OpAnd, a, b} }
func Not(a Expr) Expr    { return Expr{OpNot, a} }

var comparisons = map[beacon.Operator]string{
	beacon.OpEqual:        OpEq,
	beacon.OpLess:         OpLt,
	beacon.OpLessEqual:    OpLe,
	beacon.OpGreater:      OpGt,
	beacon.OpGreaterEqual: OpGe,
}

// Translate converts filters into a single expression, the left fold of their
// conjunction. An empty filter list yields a nil expression, which matches
// everything.
func Translate(filters []beacon.Filter) (Expr, error) {
	var out Expr
	for _, f := range filters {
		e, err := TranslateOne(f)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = e
			continue
		}
		out = And(out, e)
	}
	return out, nil
}

func TranslateOne(f beacon.Filter) (Expr, error) {
	op := f.Operator
	if op == "" {
		op = beacon.OpEqual
	}
	path := Resolve(strings.Split(f.ID, ".")...)

	if op == beacon.OpIn {
		list := Expr{OpList}
		for _, v := range f.Value.Values {
			list = append(list, v)
		}
		return Expr{OpIn, path, list}, nil
	}

	if f.Value.List {
		return nil, beacon.InvalidQuery("operator %s takes a single value in filter %s", op, f.ID)
	}

	wildcard := f.Value.HasWildcard()
	if wildcard && op.Inequality() {
		return nil, beacon.InvalidQuery("wildcard cannot be used with operator %s in filter %s", op, f.ID)
	}

	value := f.Value.String()
	switch {
	case op == beacon.OpNot && wildcard:
		return Not(Expr{OpILike, path, value}), nil
	case op == beacon.OpNot:
		return Not(Expr{OpEq, path, value}), nil
	case wildcard:
		return Expr{OpILike, path, value}, nil
	}

	cmp, ok := comparisons[op]
	if !ok {
		return nil, beacon.InvalidQuery("unknown operator %q in filter %s", op, f.ID)
	}
	if op.Inequality() {
		return Expr{cmp, path, literal(value)}, nil
	}
	return Expr{cmp, path, value}, nil
}

// literal types a value for an ordering comparison; numbers compare as
// numbers, anything else as text.
func literal(v string) interface{} {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}
