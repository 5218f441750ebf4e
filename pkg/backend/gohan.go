/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package backend

import (
	"context"
	"net/url"
	"strconv"

	"github.com/bento-platform/bento-beacon-sub000/pkg/query/plan"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/variant"
)

type (
	sampleCall struct {
		SampleID string `json:"sample_id"`
	}

	variantSample struct {
		SampleID string `json:"sampleId"`
	}

	// variantsResponse accepts both the call list form and the data form of
	// the variant store's search response.
	variantsResponse struct {
		Results []struct {
			Calls []sampleCall `json:"calls"`
		} `json:"results"`
		Data []struct {
			Count     int      `json:"count"`
			SampleIDs []string `json:"sampleIds"`
			Results   []struct {
				Samples []variantSample `json:"samples"`
			} `json:"results"`
		} `json:"data"`
	}

	gene struct {
		Name       string `json:"name"`
		Chrom      string `json:"chrom"`
		Start      int64  `json:"start"`
		End        int64  `json:"end"`
		AssemblyID string `json:"assemblyId"`
	}

	genesResponse struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Term    string `json:"term"`
		Count   int    `json:"count"`
		Results []gene `json:"results"`
	}
)

// Gohan is the variant store client.
type Gohan struct {
	URL       string
	Transport *Transport
}

func NewGohan(baseURL string, t *Transport) *Gohan {
	return &Gohan{URL: baseURL, Transport: t}
}

func (r variantsResponse) sampleIDs() plan.IDSet {
	ids := plan.IDSet{}
	for _, res := range r.Results {
		for _, c := range res.Calls {
			if c.SampleID != "" {
				ids.Add(c.SampleID)
			}
		}
	}
	for _, d := range r.Data {
		ids.Add(d.SampleIDs...)
		for _, v := range d.Results {
			for _, s := range v.Samples {
				if s.SampleID != "" {
					ids.Add(s.SampleID)
				}
			}
		}
	}
	return ids
}

// SampleIDs returns the ids of the samples carrying a variant matching req.
func (g *Gohan) SampleIDs(ctx context.Context, req variant.Request) (plan.IDSet, error) {
	v := url.Values{}
	v.Set("chromosome", req.Chromosome)
	v.Set("lowerBound", strconv.FormatInt(req.LowerBound, 10))
	v.Set("upperBound", strconv.FormatInt(req.UpperBound, 10))
	if req.Reference != "" {
		v.Set("reference", req.Reference)
	}
	if req.Alternative != "" {
		v.Set("alternative", req.Alternative)
	}
	if req.AssemblyID != "" {
		v.Set("assemblyId", req.AssemblyID)
	}
	v.Set("getSampleIdsOnly", strconv.FormatBool(req.SampleIDsOnly))

	var resp variantsResponse
	if err := g.Transport.GetJSON(ctx, Endpoint(g.URL, "/variants/get/by/variantId", v), "", &resp); err != nil {
		return nil, err
	}
	return resp.sampleIDs(), nil
}

// ResolveGene implements variant.GeneResolver.
func (g *Gohan) ResolveGene(ctx context.Context, symbol, assemblyID string) ([]variant.Locus, error) {
	v := url.Values{}
	v.Set("term", symbol)
	v.Set("assemblyId", assemblyID)
	v.Set("getExactMatch", "true")

	var resp genesResponse
	if err := g.Transport.GetJSON(ctx, Endpoint(g.URL, "/genes/search", v), "", &resp); err != nil {
		return nil, err
	}

	loci := []variant.Locus{}
	for _, r := range resp.Results {
		loci = append(loci, variant.Locus{
			Chromosome: r.Chrom,
			Start:      r.Start,
			End:        r.End,
			AssemblyID: r.AssemblyID,
		})
	}
	return loci, nil
}
