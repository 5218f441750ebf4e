/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package beacon

type (
	Schema struct {
		EntityType string `json:"entityType"`
		Schema     string `json:"schema"`
	}

	RequestSummary struct {
		APIVersion           string        `json:"apiVersion"`
		RequestedSchemas     []Schema      `json:"requestedSchemas"`
		Pagination           Pagination    `json:"pagination"`
		RequestedGranularity Granularity   `json:"requestedGranularity,omitempty"`
		Filters              []Filter      `json:"filters,omitempty"`
		RequestParameters    *VariantQuery `json:"requestParameters,omitempty"`
	}

	Meta struct {
		BeaconID               string          `json:"beaconId"`
		APIVersion             string          `json:"apiVersion"`
		ReturnedGranularity    Granularity     `json:"returnedGranularity,omitempty"`
		ReturnedSchemas        []Schema        `json:"returnedSchemas"`
		ReceivedRequestSummary *RequestSummary `json:"receivedRequestSummary,omitempty"`
	}

	Summary struct {
		Exists bool `json:"exists"`
		Count  *int `json:"count,omitempty"`
	}

	ResultSet struct {
		ID           string        `json:"id"`
		SetType      string        `json:"setType"`
		Exists       bool          `json:"exists"`
		ResultsCount int           `json:"resultsCount"`
		Results      []interface{} `json:"results"`
	}

	ErrorBody struct {
		ErrorCode    int    `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	}

	// Envelope is the shape of every Beacon response, including errors.
	Envelope struct {
		Meta            Meta        `json:"meta"`
		ResponseSummary *Summary    `json:"responseSummary,omitempty"`
		Response        interface{} `json:"response,omitempty"`
		Info            string      `json:"info,omitempty"`
		Error           *ErrorBody  `json:"error,omitempty"`
	}
)

var entitySchemas = map[string]Schema{
	"individuals": {EntityType: "individual", Schema: "beacon-individual-v2.0.0"},
	"biosamples":  {EntityType: "biosample", Schema: "beacon-biosample-v2.0.0"},
	"g_variants":  {EntityType: "genomicVariation", Schema: "beacon-g_variant-v2.0.0"},
	"datasets":    {EntityType: "dataset", Schema: "beacon-dataset-v2.0.0"},
	"cohorts":     {EntityType: "cohort", Schema: "beacon-cohort-v2.0.0"},
}

func SchemaFor(endpoint string) []Schema {
	if s, ok := entitySchemas[endpoint]; ok {
		return []Schema{s}
	}
	return []Schema{}
}

// Builder wraps results in the response envelope for one beacon.
type Builder struct {
	BeaconID   string
	APIVersion string
}

func (b Builder) meta(endpoint string, q *Query, g Granularity) Meta {
	m := Meta{
		BeaconID:            b.BeaconID,
		APIVersion:          b.APIVersion,
		ReturnedGranularity: g,
		ReturnedSchemas:     SchemaFor(endpoint),
	}
	if q != nil {
		m.ReceivedRequestSummary = b.summarize(endpoint, q)
	}
	return m
}

func (b Builder) summarize(endpoint string, q *Query) *RequestSummary {
	s := &RequestSummary{
		APIVersion:           b.APIVersion,
		RequestedSchemas:     SchemaFor(endpoint),
		Pagination:           q.Pagination,
		RequestedGranularity: q.Granularity,
		RequestParameters:    q.Variants,
	}
	for _, f := range q.PhenopacketFilters {
		f.ID = PhenopacketPrefix + f.ID
		s.Filters = append(s.Filters, f)
	}
	for _, f := range q.ExperimentFilters {
		f.ID = ExperimentPrefix + f.ID
		s.Filters = append(s.Filters, f)
	}
	s.Filters = append(s.Filters, q.ConfigFilters...)
	return s
}

// Query builds the envelope for a query result at the requested granularity.
// results is only consulted for record granularity.
func (b Builder) Query(endpoint string, q *Query, count int, results []interface{}) Envelope {
	g := q.Granularity
	env := Envelope{
		Meta:            b.meta(endpoint, q, g),
		ResponseSummary: &Summary{Exists: count > 0},
	}
	if g == GranularityBoolean {
		return env
	}

	c := count
	env.ResponseSummary.Count = &c
	if g == GranularityRecord {
		if results == nil {
			results = []interface{}{}
		}
		env.Response = map[string]interface{}{
			"resultSets": []ResultSet{{
				ID:           b.BeaconID,
				SetType:      setType(endpoint),
				Exists:       count > 0,
				ResultsCount: count,
				Results:      results,
			}},
		}
	}
	return env
}

// Info builds a non-query envelope such as service info or network snapshots.
func (b Builder) Info(endpoint string, response interface{}) Envelope {
	return Envelope{
		Meta:     b.meta(endpoint, nil, ""),
		Response: response,
	}
}

func (b Builder) Error(endpoint string, err error) Envelope {
	return Envelope{
		Meta: b.meta(endpoint, nil, ""),
		Error: &ErrorBody{
			ErrorCode:    StatusCode(err),
			ErrorMessage: PublicMessage(err),
		},
	}
}

func setType(endpoint string) string {
	if s, ok := entitySchemas[endpoint]; ok {
		return s.EntityType
	}
	return endpoint
}
