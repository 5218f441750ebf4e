/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package search

import (
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/filter"
)

// A Facet tells the pipeline where one family of filters is searched: the
// metadata data type, the path of the biosample id in matching records, and
// where the record's project and dataset live.
type Facet struct {
	DataType    string
	Field       []string
	ProjectPath []string
	DatasetPath []string
}

// Individuals maps biosample ids back to the individuals they were taken
// from with one more metadata search.
type Individuals struct {
	DataType   string
	Biosamples []string
	Field      []string
}

type Facets struct {
	Phenopacket Facet
	Experiment  Facet
	Config      Facet
	Individuals Individuals
}

func DefaultFacets() Facets {
	scope := func(f Facet) Facet {
		f.ProjectPath = []string{"project"}
		f.DatasetPath = []string{"dataset"}
		return f
	}
	return Facets{
		Phenopacket: scope(Facet{DataType: "phenopacket", Field: []string{"biosamples", filter.ItemWildcard, "id"}}),
		Experiment:  scope(Facet{DataType: "experiment", Field: []string{"biosample"}}),
		Config:      scope(Facet{DataType: "config", Field: []string{"biosample"}}),
		Individuals: Individuals{
			DataType:   "phenopacket",
			Biosamples: []string{"biosamples", filter.ItemWildcard, "id"},
			Field:      []string{"subject", "id"},
		},
	}
}

// scoped restricts expr to the records of one project or dataset. A nil
// expression with no scope stays nil.
func (f Facet) scoped(expr filter.Expr, projectID, datasetID string) filter.Expr {
	var restrictions []filter.Expr
	if projectID != "" && len(f.ProjectPath) > 0 {
		restrictions = append(restrictions, filter.Expr{filter.OpEq, filter.Resolve(f.ProjectPath...), projectID})
	}
	if datasetID != "" && len(f.DatasetPath) > 0 {
		restrictions = append(restrictions, filter.Expr{filter.OpEq, filter.Resolve(f.DatasetPath...), datasetID})
	}

	for _, r := range restrictions {
		if expr == nil {
			expr = r
			continue
		}
		expr = filter.And(expr, r)
	}
	return expr
}

func (i Individuals) query(biosamples []string) filter.Expr {
	list := filter.Expr{filter.OpList}
	for _, id := range biosamples {
		list = append(list, id)
	}
	return filter.Expr{filter.OpIn, filter.Resolve(i.Biosamples...), list}
}

// translate builds the expression searched for one family of filters.
func (f Facet) translate(filters []beacon.Filter, projectID, datasetID string) (filter.Expr, error) {
	expr, err := filter.Translate(filters)
	if err != nil {
		return nil, err
	}
	return f.scoped(expr, projectID, datasetID), nil
}
