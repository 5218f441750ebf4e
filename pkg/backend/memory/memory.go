/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package memory is a metadata and variant store held entirely in memory. It
// answers the same calls as the metadata service and the variant store, so a
// node can run against fixtures instead of live backends.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/censor"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/filter"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/plan"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/variant"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
	"github.com/pkg/errors"
)

type Variant struct {
	Chromosome  string   `json:"chromosome"`
	Position    int64    `json:"position"`
	Reference   string   `json:"reference"`
	Alternative string   `json:"alternative"`
	AssemblyID  string   `json:"assemblyId"`
	Samples     []string `json:"samples"`
}

type Gene struct {
	Name       string `json:"name"`
	Chromosome string `json:"chrom"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	AssemblyID string `json:"assemblyId"`
}

// Fixtures is the on-disk form of a Store.
type Fixtures struct {
	Policy   censor.Policy                       `json:"policy"`
	Records  map[string][]map[string]interface{} `json:"records"`
	Fields   []terms.Field                       `json:"fields"`
	Variants []Variant                           `json:"variants"`
	Genes    []Gene                              `json:"genes"`
}

type Store struct {
	fixtures Fixtures
}

func New(f Fixtures) *Store {
	if f.Records == nil {
		f.Records = map[string][]map[string]interface{}{}
	}
	return &Store{fixtures: f}
}

func Decode(r io.Reader) (*Store, error) {
	var f Fixtures
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "unable to decode fixtures")
	}
	return New(f), nil
}

func Load(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open fixtures %s", path)
	}
	defer file.Close()
	return Decode(file)
}

func (s *Store) Search(ctx context.Context, dataType string, expr filter.Expr, field []string) (plan.IDSet, error) {
	ids := plan.IDSet{}
	for _, record := range s.fixtures.Records[dataType] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := filter.Eval(expr, record)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluating %s query", dataType)
		}
		if !ok {
			continue
		}
		for _, v := range filter.Lookup(record, field...) {
			if v != nil {
				ids.Add(fmt.Sprint(v))
			}
		}
	}
	return ids, nil
}

func (s *Store) Policy(context.Context, string, string) (censor.Policy, error) {
	return s.fixtures.Policy, nil
}

func inScope(record map[string]interface{}, projectID, datasetID string) bool {
	if projectID != "" && record["project"] != projectID {
		return false
	}
	if datasetID != "" && record["dataset"] != datasetID {
		return false
	}
	return true
}

// Overview counts distinct individuals and biosamples across phenopackets,
// experiments, and charts the sex of every individual.
func (s *Store) Overview(_ context.Context, projectID, datasetID string) (beacon.Overview, error) {
	individuals := plan.IDSet{}
	biosamples := plan.IDSet{}
	sexes := map[string]int{}

	for _, record := range s.fixtures.Records["phenopacket"] {
		if !inScope(record, projectID, datasetID) {
			continue
		}
		for _, id := range filter.Lookup(record, "subject", "id") {
			key := fmt.Sprint(id)
			if !individuals.Has(key) {
				individuals.Add(key)
				for _, sex := range filter.Lookup(record, "subject", "sex") {
					sexes[fmt.Sprint(sex)]++
				}
			}
		}
		for _, id := range filter.Lookup(record, "biosamples", filter.ItemWildcard, "id") {
			biosamples.Add(fmt.Sprint(id))
		}
	}

	experiments := 0
	for _, record := range s.fixtures.Records["experiment"] {
		if inScope(record, projectID, datasetID) {
			experiments++
		}
	}

	labels := make([]string, 0, len(sexes))
	for label := range sexes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	chart := make([]censor.Bucket, 0, len(labels))
	for _, label := range labels {
		chart = append(chart, censor.Bucket{Label: label, Value: sexes[label]})
	}

	return beacon.Overview{
		Counts: map[string]int{
			"individuals": len(individuals),
			"biosamples":  len(biosamples),
			"experiments": experiments,
		},
		Charts: map[string][]censor.Bucket{"sex": chart},
	}, nil
}

func (s *Store) SearchFields(context.Context) ([]terms.Field, error) {
	return terms.MergeFields(s.fixtures.Fields), nil
}

func (s *Store) SampleIDs(_ context.Context, req variant.Request) (plan.IDSet, error) {
	ids := plan.IDSet{}
	for _, v := range s.fixtures.Variants {
		switch {
		case variant.Chromosome(v.Chromosome) != req.Chromosome:
		case v.Position < req.LowerBound || v.Position > req.UpperBound:
		case req.Reference != "" && v.Reference != req.Reference:
		case req.Alternative != "" && v.Alternative != req.Alternative:
		case req.AssemblyID != "" && !strings.EqualFold(v.AssemblyID, req.AssemblyID):
		default:
			ids.Add(v.Samples...)
		}
	}
	return ids, nil
}

func (s *Store) ResolveGene(_ context.Context, symbol, assemblyID string) ([]variant.Locus, error) {
	loci := []variant.Locus{}
	for _, g := range s.fixtures.Genes {
		if !strings.EqualFold(g.Name, symbol) || !strings.EqualFold(g.AssemblyID, assemblyID) {
			continue
		}
		loci = append(loci, variant.Locus{
			Chromosome: g.Chromosome,
			Start:      g.Start,
			End:        g.End,
			AssemblyID: g.AssemblyID,
		})
	}
	return loci, nil
}
