/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package censor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
)

type countingSource struct {
	policy Policy
	err    error
	calls  int
}

func (s *countingSource) Policy(context.Context, string, string) (Policy, error) {
	s.calls++
	return s.policy, s.err
}

func TestCensorCount(t *testing.T) {
	for threshold := 0; threshold <= 10; threshold++ {
		for c := 0; c <= 20; c++ {
			got := CensorCount(c, threshold)
			if c <= threshold && got != 0 {
				t.Errorf("CensorCount(%d, %d) = %d, wanted 0", c, threshold, got)
			}
			if c > threshold && got != c {
				t.Errorf("CensorCount(%d, %d) = %d, wanted %d", c, threshold, got, c)
			}
		}
	}
}

func TestCensorBuckets(t *testing.T) {
	in := []Bucket{{Label: "MALE", Value: 12}, {Label: "FEMALE", Value: 5}, {Label: "UNKNOWN_SEX", Value: 0}}
	got := CensorBuckets(in, 5)
	want := []Bucket{{Label: "MALE", Value: 12}, {Label: "FEMALE", Value: 0}, {Label: "UNKNOWN_SEX", Value: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("wanted %v, got %v", want, got)
	}
	if in[1].Value != 5 {
		t.Error("input buckets were modified")
	}
}

func TestGatePolicyFetchedOnce(t *testing.T) {
	src := &countingSource{policy: Policy{MaxFilters: 2, CountThreshold: 5}}
	g := NewGate(src, Options{ProjectID: "p1"})
	ctx := context.Background()

	q := &beacon.Query{ConfigFilters: []beacon.Filter{{ID: "sex"}}}
	if err := g.CheckQuery(ctx, q); err != nil {
		t.Fatal(err)
	}
	if c, _ := g.Count(ctx, 5); c != 0 {
		t.Errorf("wanted 5 censored to 0, got %d", c)
	}
	if c, _ := g.Count(ctx, 6); c != 6 {
		t.Errorf("wanted 6 to pass, got %d", c)
	}
	if src.calls != 1 {
		t.Errorf("wanted one policy lookup, got %d", src.calls)
	}
}

func TestGateSeparateRequestsRefetch(t *testing.T) {
	src := &countingSource{policy: Policy{CountThreshold: 5}}
	for i := 0; i < 3; i++ {
		NewGate(src, Options{}).Threshold(context.Background())
	}
	if src.calls != 3 {
		t.Errorf("wanted a lookup per request, got %d", src.calls)
	}
}

func TestGateFullRecordBypass(t *testing.T) {
	src := &countingSource{policy: Policy{MaxFilters: 0, CountThreshold: 100}}
	g := NewGate(src, Options{FullRecord: true, RestrictAnonymous: true})
	ctx := context.Background()

	q := &beacon.Query{
		PhenopacketFilters: []beacon.Filter{{ID: "a"}, {ID: "b"}},
		ConfigFilters:      []beacon.Filter{{ID: "c"}},
	}
	if err := g.CheckQuery(ctx, q); err != nil {
		t.Errorf("wanted full record caller to pass, got %v", err)
	}
	if c, _ := g.Count(ctx, 1); c != 1 {
		t.Errorf("wanted uncensored count, got %d", c)
	}
	if src.calls != 0 {
		t.Errorf("wanted no policy lookup, got %d", src.calls)
	}
}

func TestGateTooManyFilters(t *testing.T) {
	g := NewGate(&countingSource{policy: Policy{MaxFilters: 1}}, Options{})
	q := &beacon.Query{ConfigFilters: []beacon.Filter{{ID: "a"}, {ID: "b"}}}

	if err := g.CheckQuery(context.Background(), q); beacon.KindOf(err) != beacon.KindInvalidQuery {
		t.Errorf("wanted invalid query, got %v", err)
	}
}

func TestGateRestrictAnonymousRunsBeforeLookup(t *testing.T) {
	src := &countingSource{err: errors.New("policy service down")}
	g := NewGate(src, Options{RestrictAnonymous: true})
	q := &beacon.Query{ExperimentFilters: []beacon.Filter{{ID: "experiment_type"}}}

	err := g.CheckQuery(context.Background(), q)
	if beacon.KindOf(err) != beacon.KindInvalidQuery {
		t.Errorf("wanted invalid query, got %v", err)
	}
	if src.calls != 0 {
		t.Errorf("wanted no policy lookup, got %d", src.calls)
	}
}

func TestGatePolicyError(t *testing.T) {
	down := errors.New("down")
	g := NewGate(&countingSource{err: down}, Options{})
	if _, err := g.Count(context.Background(), 10); !errors.Is(err, down) {
		t.Errorf("wanted %v, got %v", down, err)
	}
}
