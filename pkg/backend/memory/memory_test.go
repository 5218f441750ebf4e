/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package memory

import (
	"context"
	"reflect"
	"testing"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/censor"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/filter"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/variant"
)

func load(t *testing.T) *Store {
	t.Helper()
	s, err := Load("testdata/fixtures.json")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSearch(t *testing.T) {
	s := load(t)

	tt := []struct {
		test     string
		dataType string
		filters  []beacon.Filter
		field    []string
		want     []string
	}{
		{
			"every biosample",
			"phenopacket", nil,
			[]string{"biosamples", filter.ItemWildcard, "id"},
			[]string{"b1", "b2", "b3", "b4"},
		},
		{
			"female biosamples",
			"phenopacket",
			[]beacon.Filter{{ID: "subject.sex", Operator: beacon.OpEqual, Value: beacon.Scalar("FEMALE")}},
			[]string{"biosamples", filter.ItemWildcard, "id"},
			[]string{"b1", "b2", "b4"},
		},
		{
			"older individuals",
			"phenopacket",
			[]beacon.Filter{{ID: "subject.age", Operator: beacon.OpGreater, Value: beacon.Scalar("40")}},
			[]string{"subject", "id"},
			[]string{"i2", "i3"},
		},
		{
			"experiments not WGS",
			"experiment",
			[]beacon.Filter{{ID: "experiment_type", Operator: beacon.OpNot, Value: beacon.Scalar("WGS")}},
			[]string{"biosample"},
			[]string{"b3"},
		},
		{
			"individuals of biosamples",
			"phenopacket",
			[]beacon.Filter{{ID: "biosamples.[item].id", Operator: beacon.OpIn, Value: beacon.List("b2", "b4")}},
			[]string{"subject", "id"},
			[]string{"i1", "i3"},
		},
		{
			"unknown data type",
			"run", nil, []string{"id"}, []string{},
		},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			expr, err := filter.Translate(tc.filters)
			if err != nil {
				t.Fatal(err)
			}
			ids, err := s.Search(context.Background(), tc.dataType, expr, tc.field)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(ids.Sorted(), tc.want) {
				t.Errorf("wanted %v, got %v", tc.want, ids.Sorted())
			}
		})
	}
}

func TestOverview(t *testing.T) {
	s := load(t)

	o, err := s.Overview(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"individuals": 3, "biosamples": 4, "experiments": 3}
	if !reflect.DeepEqual(o.Counts, want) {
		t.Errorf("wanted %v, got %v", want, o.Counts)
	}
	chart := []censor.Bucket{{Label: "FEMALE", Value: 2}, {Label: "MALE", Value: 1}}
	if !reflect.DeepEqual(o.Charts["sex"], chart) {
		t.Errorf("wanted %v, got %v", chart, o.Charts["sex"])
	}

	o, err = s.Overview(context.Background(), "p1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	want = map[string]int{"individuals": 1, "biosamples": 2, "experiments": 1}
	if !reflect.DeepEqual(o.Counts, want) {
		t.Errorf("wanted %v, got %v", want, o.Counts)
	}
}

func TestSampleIDs(t *testing.T) {
	s := load(t)

	tt := []struct {
		test string
		req  variant.Request
		want []string
	}{
		{"exact position", variant.Request{Chromosome: "3", LowerBound: 189631389, UpperBound: 189631389, Reference: "C", Alternative: "T"}, []string{"b1", "b2", "b3"}},
		{"wrong alternative", variant.Request{Chromosome: "3", LowerBound: 189631389, UpperBound: 189631389, Alternative: "G"}, []string{}},
		{"range on one assembly", variant.Request{Chromosome: "17", LowerBound: 40000000, UpperBound: 50000000, AssemblyID: "GRCh38"}, []string{"b4"}},
		{"range on every assembly", variant.Request{Chromosome: "17", LowerBound: 40000000, UpperBound: 50000000}, []string{"b1", "b4"}},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			ids, err := s.SampleIDs(context.Background(), tc.req)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(ids.Sorted(), tc.want) {
				t.Errorf("wanted %v, got %v", tc.want, ids.Sorted())
			}
		})
	}
}

func TestGenePlanAgainstStore(t *testing.T) {
	s := load(t)
	p := &variant.Planner{Genes: s, Assemblies: []string{"GRCh38", "GRCh37", "NCBI36"}}

	reqs, err := p.Plan(context.Background(), &beacon.VariantQuery{GeneID: "BRCA1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 2 {
		t.Fatalf("wanted a request per matching assembly, got %+v", reqs)
	}
	for _, r := range reqs {
		if r.Chromosome != "17" {
			t.Errorf("wanted chr prefix stripped, got %q", r.Chromosome)
		}
		ids, err := s.SampleIDs(context.Background(), r)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 1 {
			t.Errorf("wanted one sample on %s, got %v", r.AssemblyID, ids.Sorted())
		}
	}
}

func TestFields(t *testing.T) {
	fields, err := load(t).SearchFields(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 3 {
		t.Errorf("wanted 3 fields, got %d", len(fields))
	}
}
