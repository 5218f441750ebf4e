/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package beacon

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type Granularity string

const (
	GranularityBoolean Granularity = "boolean"
	GranularityCount   Granularity = "count"
	GranularityRecord  Granularity = "record"
)

func (g Granularity) Valid() bool {
	switch g {
	case GranularityBoolean, GranularityCount, GranularityRecord:
		return true
	}
	return false
}

type Operator string

const (
	OpEqual        Operator = "="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpNot          Operator = "!"
	OpIn           Operator = "#in"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpNot, OpIn:
		return true
	}
	return false
}

// Inequality reports whether o orders values rather than matching them.
func (o Operator) Inequality() bool {
	switch o {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

const (
	PhenopacketPrefix = "phenopacket."
	ExperimentPrefix  = "experiment."

	Wildcard = "%"
)

// FilterValue holds either a single value or a list of values. Numbers in the
// incoming JSON are kept in their textual form.
type FilterValue struct {
	Values []string
	List   bool
}

func Scalar(v string) FilterValue {
	return FilterValue{Values: []string{v}}
}

func List(v ...string) FilterValue {
	return FilterValue{Values: v, List: true}
}

// String returns the scalar value, or the first element of a list.
func (v FilterValue) String() string {
	if len(v.Values) == 0 {
		return ""
	}
	return v.Values[0]
}

func (v FilterValue) HasWildcard() bool {
	for _, s := range v.Values {
		if strings.Contains(s, Wildcard) {
			return true
		}
	}
	return false
}

func (v FilterValue) MarshalJSON() ([]byte, error) {
	if v.List {
		if v.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Values)
	}
	return json.Marshal(v.String())
}

func (v *FilterValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		v.List = true
		v.Values = make([]string, 0, len(raw))
		for _, r := range raw {
			s, err := scalarText(r)
			if err != nil {
				return err
			}
			v.Values = append(v.Values, s)
		}
		return nil
	}

	s, err := scalarText(b)
	if err != nil {
		return err
	}
	v.List = false
	v.Values = []string{s}
	return nil
}

func scalarText(b json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return n.String(), nil
	}
	var t bool
	if err := json.Unmarshal(b, &t); err != nil {
		return "", err
	}
	return strconv.FormatBool(t), nil
}

type Filter struct {
	ID       string      `json:"id"`
	Operator Operator    `json:"operator,omitempty"`
	Value    FilterValue `json:"value"`
}

// SplitFilters routes filters to the pipeline named by their id prefix. The
// prefix is removed from the returned filters.
func SplitFilters(filters []Filter) (phenopacket, experiment, config []Filter) {
	for _, f := range filters {
		switch {
		case strings.HasPrefix(f.ID, PhenopacketPrefix):
			f.ID = strings.TrimPrefix(f.ID, PhenopacketPrefix)
			phenopacket = append(phenopacket, f)
		case strings.HasPrefix(f.ID, ExperimentPrefix):
			f.ID = strings.TrimPrefix(f.ID, ExperimentPrefix)
			experiment = append(experiment, f)
		default:
			config = append(config, f)
		}
	}
	return
}

type VariantQuery struct {
	ReferenceName  string  `json:"referenceName,omitempty"`
	Start          []int64 `json:"start,omitempty"`
	End            []int64 `json:"end,omitempty"`
	ReferenceBases string  `json:"referenceBases,omitempty"`
	AlternateBases string  `json:"alternateBases,omitempty"`
	AssemblyID     string  `json:"assemblyId,omitempty"`
	GeneID         string  `json:"geneId,omitempty"`

	// Recognised by the protocol but not supported here.
	VariantType            string `json:"variantType,omitempty"`
	VariantMinLength       *int64 `json:"variantMinLength,omitempty"`
	VariantMaxLength       *int64 `json:"variantMaxLength,omitempty"`
	MateName               string `json:"mateName,omitempty"`
	AminoacidChange        string `json:"aminoacidChange,omitempty"`
	GenomicAlleleShortForm string `json:"genomicAlleleShortForm,omitempty"`
}

type Pagination struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// Query is the canonical form of an inbound request. It is built once per
// request by Parse and not modified afterwards.
type Query struct {
	Variants           *VariantQuery
	PhenopacketFilters []Filter
	ExperimentFilters  []Filter
	ConfigFilters      []Filter
	ProjectID          string
	DatasetID          string
	Granularity        Granularity
	Pagination         Pagination
	SummaryStatistics  bool
}

func (q Query) HasVariants() bool {
	return q.Variants != nil
}

// FilterCount is the number of filters across all namespaces.
func (q Query) FilterCount() int {
	return len(q.PhenopacketFilters) + len(q.ExperimentFilters) + len(q.ConfigFilters)
}

// Unrestricted reports whether the query names no facet at all.
func (q Query) Unrestricted() bool {
	return !q.HasVariants() && q.FilterCount() == 0
}
