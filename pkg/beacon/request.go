/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package beacon

import (
	"net/url"
	"strconv"
	"strings"
)

const DefaultLimit = 10

type (
	RequestBody struct {
		Meta  RequestMeta  `json:"meta"`
		Query RequestQuery `json:"query"`
		Bento BentoOptions `json:"bento"`
	}

	RequestMeta struct {
		APIVersion string `json:"apiVersion,omitempty"`
	}

	RequestQuery struct {
		RequestParameters    RequestParameters `json:"requestParameters"`
		Filters              []Filter          `json:"filters,omitempty"`
		Datasets             DatasetSelection  `json:"datasets"`
		Pagination           *Pagination       `json:"pagination,omitempty"`
		RequestedGranularity Granularity       `json:"requestedGranularity,omitempty"`
	}

	RequestParameters struct {
		GVariant *VariantQuery `json:"g_variant,omitempty"`
	}

	DatasetSelection struct {
		DatasetIDs []string `json:"datasetIds,omitempty"`
	}

	BentoOptions struct {
		ShowSummaryStatistics bool   `json:"showSummaryStatistics,omitempty"`
		ProjectID             string `json:"projectId,omitempty"`
	}
)

// Parse validates a request body and converts it to a Query. Missing
// granularity defaults to defaultGranularity.
func Parse(body RequestBody, defaultGranularity Granularity) (Query, error) {
	q := Query{
		ProjectID:         body.Bento.ProjectID,
		SummaryStatistics: body.Bento.ShowSummaryStatistics,
		Granularity:       body.Query.RequestedGranularity,
		Pagination:        Pagination{Limit: DefaultLimit},
	}

	if q.Granularity == "" {
		q.Granularity = defaultGranularity
	}
	if !q.Granularity.Valid() {
		return Query{}, InvalidQuery("unknown granularity %q", q.Granularity)
	}

	if p := body.Query.Pagination; p != nil {
		if p.Skip < 0 || p.Limit < 0 {
			return Query{}, InvalidQuery("pagination values must not be negative")
		}
		q.Pagination.Skip = p.Skip
		if p.Limit > 0 {
			q.Pagination.Limit = p.Limit
		}
	}

	switch ids := body.Query.Datasets.DatasetIDs; len(ids) {
	case 0:
	case 1:
		q.DatasetID = ids[0]
	default:
		return Query{}, InvalidQuery("at most one dataset id may be given")
	}
	if q.DatasetID != "" && q.ProjectID == "" {
		return Query{}, InvalidQuery("a dataset id requires a project id")
	}

	for _, f := range body.Query.Filters {
		if f.ID == "" {
			return Query{}, InvalidQuery("filter without id")
		}
		if f.Operator == "" {
			f.Operator = OpEqual
		}
		if !f.Operator.Valid() {
			return Query{}, InvalidQuery("unknown operator %q in filter %s", f.Operator, f.ID)
		}
	}
	q.PhenopacketFilters, q.ExperimentFilters, q.ConfigFilters = SplitFilters(normalizeFilters(body.Query.Filters))

	q.Variants = body.Query.RequestParameters.GVariant
	return q, nil
}

func normalizeFilters(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f.Operator == "" {
			f.Operator = OpEqual
		}
		out = append(out, f)
	}
	return out
}

var variantParams = []string{
	"referenceName", "start", "end", "referenceBases", "alternateBases",
	"assemblyId", "geneId", "variantType", "variantMinLength",
	"variantMaxLength", "mateName", "aminoacidChange", "genomicAlleleShortForm",
}

var filterOperators = []Operator{OpGreaterEqual, OpLessEqual, OpEqual, OpLess, OpGreater, OpNot}

// FromValues repackages the flattened GET parameter set into a request body.
//
// Filters are given as a comma separated list of id<op>value terms, for
// example filters=sex=FEMALE,phenopacket.subject.age>=30.
func FromValues(v url.Values) (RequestBody, error) {
	var body RequestBody

	body.Query.RequestedGranularity = Granularity(v.Get("requestedGranularity"))
	if ds := v.Get("datasets"); ds != "" {
		body.Query.Datasets.DatasetIDs = strings.Split(ds, ",")
	}
	body.Bento.ProjectID = v.Get("project")
	body.Bento.ShowSummaryStatistics, _ = strconv.ParseBool(v.Get("showSummaryStatistics"))

	if v.Has("skip") || v.Has("limit") {
		p := &Pagination{}
		var err error
		if s := v.Get("skip"); s != "" {
			if p.Skip, err = strconv.Atoi(s); err != nil {
				return RequestBody{}, InvalidQuery("skip must be an integer")
			}
		}
		if s := v.Get("limit"); s != "" {
			if p.Limit, err = strconv.Atoi(s); err != nil {
				return RequestBody{}, InvalidQuery("limit must be an integer")
			}
		}
		body.Query.Pagination = p
	}

	if f := v.Get("filters"); f != "" {
		for _, term := range strings.Split(f, ",") {
			filter, err := parseFilterTerm(term)
			if err != nil {
				return RequestBody{}, err
			}
			body.Query.Filters = append(body.Query.Filters, filter)
		}
	}

	for _, name := range variantParams {
		if v.Has(name) {
			vq, err := variantFromValues(v)
			if err != nil {
				return RequestBody{}, err
			}
			body.Query.RequestParameters.GVariant = vq
			break
		}
	}

	return body, nil
}

func parseFilterTerm(term string) (Filter, error) {
	for _, op := range filterOperators {
		if i := strings.Index(term, string(op)); i > 0 {
			return Filter{ID: term[:i], Operator: op, Value: Scalar(term[i+len(op):])}, nil
		}
	}
	return Filter{}, InvalidQuery("cannot parse filter %q", term)
}

func variantFromValues(v url.Values) (*VariantQuery, error) {
	vq := &VariantQuery{
		ReferenceName:          v.Get("referenceName"),
		ReferenceBases:         v.Get("referenceBases"),
		AlternateBases:         v.Get("alternateBases"),
		AssemblyID:             v.Get("assemblyId"),
		GeneID:                 v.Get("geneId"),
		VariantType:            v.Get("variantType"),
		MateName:               v.Get("mateName"),
		AminoacidChange:        v.Get("aminoacidChange"),
		GenomicAlleleShortForm: v.Get("genomicAlleleShortForm"),
	}

	var err error
	if vq.Start, err = parseCoordinates(v.Get("start")); err != nil {
		return nil, err
	}
	if vq.End, err = parseCoordinates(v.Get("end")); err != nil {
		return nil, err
	}
	if vq.VariantMinLength, err = parseOptionalInt(v.Get("variantMinLength")); err != nil {
		return nil, err
	}
	if vq.VariantMaxLength, err = parseOptionalInt(v.Get("variantMaxLength")); err != nil {
		return nil, err
	}
	return vq, nil
}

func parseCoordinates(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, InvalidQuery("coordinate %q is not an integer", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseOptionalInt(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, InvalidQuery("%q is not an integer", s)
	}
	return &n, nil
}
