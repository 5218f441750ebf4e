/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package filter

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
)

func TestTranslateGolden(t *testing.T) {
	testDirectory, err := filepath.Abs("testdata/translate")
	if err != nil {
		panic(err)
	}

	inputDirectory := path.Join(testDirectory, "input")
	expectationDirectory := path.Join(testDirectory, "expectations")

	tests, err := filepath.Glob(fmt.Sprintf("%s/*.json", inputDirectory))
	if err != nil || len(tests) == 0 {
		t.Fatalf("no golden inputs found in %s", inputDirectory)
	}

	for _, test := range tests {
		t.Run(filepath.Base(test), func(t *testing.T) {
			input, err := os.ReadFile(test)
			if err != nil {
				t.Fatalf("Error opening test: %s", test)
			}
			expected, err := os.ReadFile(path.Join(expectationDirectory, filepath.Base(test)))
			if err != nil {
				t.Fatalf("Missing expectation for: %s", test)
			}

			var filters []beacon.Filter
			if err := json.Unmarshal(input, &filters); err != nil {
				t.Fatal(err)
			}
			expr, err := Translate(filters)
			if err != nil {
				t.Fatal(err)
			}
			actual, err := json.MarshalIndent(expr, "", "  ")
			if err != nil {
				t.Fatal(err)
			}

			want := strings.TrimSpace(string(expected))
			got := strings.TrimSpace(string(actual))
			if want != got {
				t.Errorf("expression mismatch:\n%v", diff.LineDiff(want, got))
			}
		})
	}
}

func TestTranslateEmpty(t *testing.T) {
	expr, err := Translate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if expr != nil {
		t.Errorf("wanted nil expression, got %v", expr)
	}

	ok, err := Eval(expr, map[string]interface{}{"anything": "goes"})
	if err != nil || !ok {
		t.Errorf("wanted an empty expression to match everything, got %v, %v", ok, err)
	}
}

func TestTranslateErrors(t *testing.T) {
	tt := []struct {
		test   string
		filter beacon.Filter
	}{
		{"wildcard with less than", beacon.Filter{ID: "age", Operator: beacon.OpLess, Value: beacon.Scalar("3%")}},
		{"wildcard with greater equal", beacon.Filter{ID: "age", Operator: beacon.OpGreaterEqual, Value: beacon.Scalar("%")}},
		{"list with equality", beacon.Filter{ID: "sex", Operator: beacon.OpEqual, Value: beacon.List("MALE", "FEMALE")}},
		{"unknown operator", beacon.Filter{ID: "sex", Operator: "~", Value: beacon.Scalar("MALE")}},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			_, err := TranslateOne(tc.filter)
			if beacon.KindOf(err) != beacon.KindInvalidQuery {
				t.Errorf("wanted invalid query, got %v", err)
			}
		})
	}
}

func TestTranslateNegationNeverWrapsMembership(t *testing.T) {
	expr, err := TranslateOne(beacon.Filter{ID: "sex", Operator: beacon.OpIn, Value: beacon.Scalar("MALE")})
	if err != nil {
		t.Fatal(err)
	}
	if expr.Op() != OpIn {
		t.Errorf("wanted %s, got %s", OpIn, expr.Op())
	}
}

func TestTranslateConjunctionSemantics(t *testing.T) {
	filters := []beacon.Filter{
		{ID: "subject.sex", Operator: beacon.OpEqual, Value: beacon.Scalar("FEMALE")},
		{ID: "subject.age", Operator: beacon.OpGreater, Value: beacon.Scalar("30")},
		{ID: "subject.age", Operator: beacon.OpLessEqual, Value: beacon.Scalar("60")},
		{ID: "subject.id", Operator: beacon.OpNot, Value: beacon.Scalar("HG%")},
		{ID: "biosamples.[item].tissue", Operator: beacon.OpIn, Value: beacon.List("blood", "skin")},
	}
	expr, err := Translate(filters)
	if err != nil {
		t.Fatal(err)
	}

	satisfying := func() map[string]interface{} {
		return map[string]interface{}{
			"subject": map[string]interface{}{"sex": "FEMALE", "age": float64(45), "id": "NA12878"},
			"biosamples": []interface{}{
				map[string]interface{}{"tissue": "liver"},
				map[string]interface{}{"tissue": "skin"},
			},
		}
	}

	ok, err := Eval(expr, satisfying())
	if err != nil || !ok {
		t.Fatalf("wanted satisfying record to match, got %v, %v", ok, err)
	}

	violations := []struct {
		test   string
		mutate func(map[string]interface{})
	}{
		{"sex", func(r map[string]interface{}) { r["subject"].(map[string]interface{})["sex"] = "male" }},
		{"age too low", func(r map[string]interface{}) { r["subject"].(map[string]interface{})["age"] = float64(30) }},
		{"age too high", func(r map[string]interface{}) { r["subject"].(map[string]interface{})["age"] = float64(61) }},
		{"id matches negated pattern", func(r map[string]interface{}) { r["subject"].(map[string]interface{})["id"] = "hg00096" }},
		{"tissue", func(r map[string]interface{}) { r["biosamples"] = []interface{}{map[string]interface{}{"tissue": "liver"}} }},
	}

	for _, v := range violations {
		t.Run(v.test, func(t *testing.T) {
			record := satisfying()
			v.mutate(record)
			ok, err := Eval(expr, record)
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Errorf("wanted record violating %s not to match", v.test)
			}
		})
	}
}

func TestEvalDecodedJSON(t *testing.T) {
	var expr interface{}
	err := json.Unmarshal([]byte(`["#and", ["#eq", ["#resolve", "a"], "x"], ["#ilike", ["#resolve", "b"], "%ELL%"]]`), &expr)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := Eval(expr, map[string]interface{}{"a": "x", "b": "hello"})
	if err != nil || !ok {
		t.Errorf("wanted match, got %v, %v", ok, err)
	}
}

func TestEvalMalformed(t *testing.T) {
	record := map[string]interface{}{"a": "x"}
	tt := []struct {
		test string
		expr interface{}
	}{
		{"not an operator node", "x"},
		{"unknown operator", Expr{"#bogus", Resolve("a"), "x"}},
		{"negation arity", Expr{OpNot}},
		{"negated malformed child", Not(Expr{"#bogus"})},
		{"comparison arity", Expr{OpEq, Resolve("a")}},
		{"membership without list", Expr{OpIn, Resolve("a"), "x"}},
		{"comparison without resolve", Expr{OpEq, "a", "x"}},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			ok, err := Eval(tc.expr, record)
			if err == nil {
				t.Errorf("wanted an error, got match=%v", ok)
			}
			if ok {
				t.Error("a malformed expression must not match")
			}
		})
	}
}
