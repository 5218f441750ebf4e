/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package censor

import (
	"context"
	"sync"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
)

// Policy is the censorship configuration for one project or dataset.
type Policy struct {
	MaxFilters     int `json:"max_query_parameters"`
	CountThreshold int `json:"count_threshold"`
}

// A Source looks up the policy for a project/dataset. Empty ids mean the
// node-wide policy.
type Source interface {
	Policy(ctx context.Context, projectID, datasetID string) (Policy, error)
}

type Bucket = beacon.Bucket

// CensorCount is a hard cutoff: counts at or below the threshold are reported
// as zero, anything above is returned unchanged.
func CensorCount(raw, threshold int) int {
	if raw <= threshold {
		return 0
	}
	return raw
}

// CensorBuckets censors each bucket of a chart independently. Labels are
// kept so the shape of the chart does not change.
func CensorBuckets(buckets []Bucket, threshold int) []Bucket {
	out := make([]Bucket, len(buckets))
	for i, b := range buckets {
		out[i] = Bucket{Label: b.Label, Value: CensorCount(b.Value, threshold)}
	}
	return out
}

func CheckFilterCount(n, maxFilters int) error {
	if n > maxFilters {
		return beacon.InvalidQuery("too many filters: %d given, at most %d allowed", n, maxFilters)
	}
	return nil
}

// Gate applies censorship for the lifetime of a single request. The policy is
// fetched at most once and never shared with another request.
type Gate struct {
	source            Source
	projectID         string
	datasetID         string
	fullRecord        bool
	restrictAnonymous bool

	once   sync.Once
	policy Policy
	err    error
}

type Options struct {
	ProjectID  string
	DatasetID  string
	FullRecord bool
	// RestrictAnonymous limits callers without full-record permission to the
	// discovery-config filters.
	RestrictAnonymous bool
}

func NewGate(source Source, opts Options) *Gate {
	return &Gate{
		source:            source,
		projectID:         opts.ProjectID,
		datasetID:         opts.DatasetID,
		fullRecord:        opts.FullRecord,
		restrictAnonymous: opts.RestrictAnonymous,
	}
}

func (g *Gate) FullRecord() bool {
	return g.fullRecord
}

// Policy returns the memoised policy. Full-record callers are never censored
// so no lookup happens for them.
func (g *Gate) Policy(ctx context.Context) (Policy, error) {
	if g.fullRecord {
		return Policy{}, nil
	}
	g.once.Do(func() {
		g.policy, g.err = g.source.Policy(ctx, g.projectID, g.datasetID)
	})
	return g.policy, g.err
}

func (g *Gate) Threshold(ctx context.Context) (int, error) {
	p, err := g.Policy(ctx)
	if err != nil {
		return 0, err
	}
	return p.CountThreshold, nil
}

// CheckQuery rejects queries the caller may not run. The anonymous filter
// check runs before any policy lookup.
func (g *Gate) CheckQuery(ctx context.Context, q *beacon.Query) error {
	if g.fullRecord {
		return nil
	}
	if g.restrictAnonymous && len(q.PhenopacketFilters)+len(q.ExperimentFilters) > 0 {
		return beacon.InvalidQuery("phenopacket and experiment filters require full data access")
	}

	p, err := g.Policy(ctx)
	if err != nil {
		return err
	}
	return CheckFilterCount(q.FilterCount(), p.MaxFilters)
}

func (g *Gate) Count(ctx context.Context, raw int) (int, error) {
	threshold, err := g.Threshold(ctx)
	if err != nil {
		return 0, err
	}
	return CensorCount(raw, threshold), nil
}

func (g *Gate) Buckets(ctx context.Context, buckets []Bucket) ([]Bucket, error) {
	threshold, err := g.Threshold(ctx)
	if err != nil {
		return nil, err
	}
	return CensorBuckets(buckets, threshold), nil
}
