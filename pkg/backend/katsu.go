/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/censor"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/filter"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/plan"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
)

type (
	searchRequest struct {
		DataType string      `json:"data_type"`
		Query    filter.Expr `json:"query"`
		Output   string      `json:"output"`
		Field    []string    `json:"field"`
	}

	searchResponse struct {
		Results map[string]struct {
			DataType string        `json:"data_type"`
			Matches  []interface{} `json:"matches"`
		} `json:"results"`
	}

	discoveryResponse struct {
		Sections []struct {
			Title  string        `json:"section_title"`
			Fields []terms.Field `json:"fields"`
		} `json:"sections"`
	}
)

// Katsu is the metadata service client.
type Katsu struct {
	URL       string
	Transport *Transport
}

func NewKatsu(baseURL string, t *Transport) *Katsu {
	return &Katsu{URL: baseURL, Transport: t}
}

// Search returns the values at field of every dataType record matching expr.
// A nil expression matches every record.
func (k *Katsu) Search(ctx context.Context, dataType string, expr filter.Expr, field []string) (plan.IDSet, error) {
	body := searchRequest{
		DataType: dataType,
		Query:    expr,
		Output:   "values_list",
		Field:    field,
	}
	if body.Query == nil {
		body.Query = filter.Expr{}
	}

	var resp searchResponse
	if err := k.Transport.PostJSON(ctx, Endpoint(k.URL, "/private/search", nil), "", body, &resp); err != nil {
		return nil, err
	}

	ids := plan.IDSet{}
	for _, r := range resp.Results {
		for _, m := range r.Matches {
			if m == nil {
				continue
			}
			ids.Add(matchID(m))
		}
	}
	return ids, nil
}

func matchID(m interface{}) string {
	if s, ok := m.(string); ok {
		return s
	}
	return fmt.Sprint(m)
}

func scopeQuery(projectID, datasetID string) url.Values {
	v := url.Values{}
	if projectID != "" {
		v.Set("project", projectID)
	}
	if datasetID != "" {
		v.Set("dataset", datasetID)
	}
	return v
}

// Policy implements censor.Source.
func (k *Katsu) Policy(ctx context.Context, projectID, datasetID string) (censor.Policy, error) {
	var p censor.Policy
	err := k.Transport.GetJSON(ctx, Endpoint(k.URL, "/api/public_rules", scopeQuery(projectID, datasetID)), "", &p)
	return p, err
}

func (k *Katsu) Overview(ctx context.Context, projectID, datasetID string) (beacon.Overview, error) {
	var o beacon.Overview
	err := k.Transport.GetJSON(ctx, Endpoint(k.URL, "/api/public_overview", scopeQuery(projectID, datasetID)), "", &o)
	if o.Counts == nil {
		o.Counts = map[string]int{}
	}
	return o, err
}

// SearchFields returns the discovery fields of every section, merged.
func (k *Katsu) SearchFields(ctx context.Context) ([]terms.Field, error) {
	var resp discoveryResponse
	if err := k.Transport.GetJSON(ctx, Endpoint(k.URL, "/api/public_search_fields", nil), "", &resp); err != nil {
		return nil, err
	}

	sections := make([][]terms.Field, 0, len(resp.Sections))
	for _, s := range resp.Sections {
		sections = append(sections, s.Fields)
	}
	return terms.MergeFields(sections...), nil
}
