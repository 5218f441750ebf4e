/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package beacon

import (
	"encoding/json"
	"net/url"
	"reflect"
	"testing"
)

func decode(t *testing.T, s string) RequestBody {
	t.Helper()
	var body RequestBody
	if err := json.Unmarshal([]byte(s), &body); err != nil {
		t.Fatalf("could not decode %s: %v", s, err)
	}
	return body
}

func TestParseDefaults(t *testing.T) {
	q, err := Parse(RequestBody{}, GranularityCount)
	if err != nil {
		t.Fatal(err)
	}
	if q.Granularity != GranularityCount {
		t.Errorf("wanted count granularity, got %q", q.Granularity)
	}
	if q.Pagination != (Pagination{Limit: DefaultLimit}) {
		t.Errorf("unexpected pagination %+v", q.Pagination)
	}
	if !q.Unrestricted() {
		t.Error("wanted an unrestricted query")
	}
}

func TestParseSplitsFilters(t *testing.T) {
	body := decode(t, `{
		"query": {
			"filters": [
				{"id": "phenopacket.subject.sex", "value": "FEMALE"},
				{"id": "experiment.experiment_type", "operator": "!", "value": "WGS"},
				{"id": "age", "operator": ">=", "value": 30}
			],
			"requestedGranularity": "record"
		},
		"bento": {"projectId": "p1"}
	}`)

	q, err := Parse(body, GranularityCount)
	if err != nil {
		t.Fatal(err)
	}

	want := Query{
		PhenopacketFilters: []Filter{{ID: "subject.sex", Operator: OpEqual, Value: Scalar("FEMALE")}},
		ExperimentFilters:  []Filter{{ID: "experiment_type", Operator: OpNot, Value: Scalar("WGS")}},
		ConfigFilters:      []Filter{{ID: "age", Operator: OpGreaterEqual, Value: Scalar("30")}},
		ProjectID:          "p1",
		Granularity:        GranularityRecord,
		Pagination:         Pagination{Limit: DefaultLimit},
	}
	if !reflect.DeepEqual(q, want) {
		t.Errorf("wanted %+v, got %+v", want, q)
	}
	if q.FilterCount() != 3 {
		t.Errorf("wanted 3 filters, got %d", q.FilterCount())
	}
}

func TestParseErrors(t *testing.T) {
	tt := []struct {
		test string
		body string
	}{
		{"unknown granularity", `{"query": {"requestedGranularity": "detailed"}}`},
		{"negative skip", `{"query": {"pagination": {"skip": -1, "limit": 10}}}`},
		{"two datasets", `{"query": {"datasets": {"datasetIds": ["a", "b"]}}, "bento": {"projectId": "p"}}`},
		{"dataset without project", `{"query": {"datasets": {"datasetIds": ["a"]}}}`},
		{"filter without id", `{"query": {"filters": [{"value": "x"}]}}`},
		{"unknown operator", `{"query": {"filters": [{"id": "x", "operator": "~", "value": "x"}]}}`},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			_, err := Parse(decode(t, tc.body), GranularityCount)
			if KindOf(err) != KindInvalidQuery {
				t.Errorf("wanted invalid query, got %v", err)
			}
		})
	}
}

func TestParseDataset(t *testing.T) {
	body := decode(t, `{"query": {"datasets": {"datasetIds": ["d1"]}}, "bento": {"projectId": "p1"}}`)
	q, err := Parse(body, GranularityBoolean)
	if err != nil {
		t.Fatal(err)
	}
	if q.ProjectID != "p1" || q.DatasetID != "d1" {
		t.Errorf("unexpected scope %q/%q", q.ProjectID, q.DatasetID)
	}
}

func TestFilterValueJSON(t *testing.T) {
	tt := []struct {
		in   string
		want FilterValue
		out  string
	}{
		{`"FEMALE"`, Scalar("FEMALE"), `"FEMALE"`},
		{`30`, Scalar("30"), `"30"`},
		{`true`, Scalar("true"), `"true"`},
		{`["a", 2]`, List("a", "2"), `["a","2"]`},
		{`[]`, List(), `[]`},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			var v FilterValue
			if err := json.Unmarshal([]byte(tc.in), &v); err != nil {
				t.Fatal(err)
			}
			if v.List != tc.want.List || len(v.Values) != len(tc.want.Values) {
				t.Fatalf("wanted %+v, got %+v", tc.want, v)
			}
			for i := range v.Values {
				if v.Values[i] != tc.want.Values[i] {
					t.Errorf("wanted %+v, got %+v", tc.want, v)
				}
			}
			b, err := json.Marshal(v)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tc.out {
				t.Errorf("wanted %s, got %s", tc.out, b)
			}
		})
	}
}

func TestFromValues(t *testing.T) {
	v := url.Values{}
	v.Set("requestedGranularity", "count")
	v.Set("project", "p1")
	v.Set("datasets", "d1")
	v.Set("limit", "5")
	v.Set("filters", "sex=FEMALE,phenopacket.subject.age>=30,experiment.type!WGS,weight<80")
	v.Set("referenceName", "chr3")
	v.Set("start", "189631388,189631390")
	v.Set("end", "189897276")

	body, err := FromValues(v)
	if err != nil {
		t.Fatal(err)
	}

	wantFilters := []Filter{
		{ID: "sex", Operator: OpEqual, Value: Scalar("FEMALE")},
		{ID: "phenopacket.subject.age", Operator: OpGreaterEqual, Value: Scalar("30")},
		{ID: "experiment.type", Operator: OpNot, Value: Scalar("WGS")},
		{ID: "weight", Operator: OpLess, Value: Scalar("80")},
	}
	if !reflect.DeepEqual(body.Query.Filters, wantFilters) {
		t.Errorf("wanted %+v, got %+v", wantFilters, body.Query.Filters)
	}

	gv := body.Query.RequestParameters.GVariant
	if gv == nil {
		t.Fatal("wanted variant parameters")
	}
	if gv.ReferenceName != "chr3" || !reflect.DeepEqual(gv.Start, []int64{189631388, 189631390}) || !reflect.DeepEqual(gv.End, []int64{189897276}) {
		t.Errorf("unexpected variant parameters %+v", gv)
	}

	q, err := Parse(body, GranularityBoolean)
	if err != nil {
		t.Fatal(err)
	}
	if q.Granularity != GranularityCount || q.Pagination.Limit != 5 || q.DatasetID != "d1" {
		t.Errorf("unexpected query %+v", q)
	}
}

func TestFromValuesErrors(t *testing.T) {
	tt := []struct {
		test  string
		query string
	}{
		{"bad limit", "limit=ten"},
		{"bad filter", "filters=sex"},
		{"bad coordinate", "start=abc"},
		{"bad length", "variantMinLength=1.5"},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			v, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := FromValues(v); KindOf(err) != KindInvalidQuery {
				t.Errorf("wanted invalid query, got %v", err)
			}
		})
	}
}

func TestFromValuesNoVariants(t *testing.T) {
	body, err := FromValues(url.Values{"filters": {"sex=MALE"}})
	if err != nil {
		t.Fatal(err)
	}
	if body.Query.RequestParameters.GVariant != nil {
		t.Error("wanted no variant parameters")
	}
}
