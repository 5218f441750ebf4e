/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package variant

import (
	"context"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
)

type Shape int

const (
	ShapeInvalid Shape = iota
	ShapeSequence
	ShapeRange
	ShapeBracket
	ShapeGene
)

func (s Shape) String() string {
	switch s {
	case ShapeSequence:
		return "sequence"
	case ShapeRange:
		return "range"
	case ShapeBracket:
		return "bracket"
	case ShapeGene:
		return "gene"
	}
	return "invalid"
}

// Request is one search issued to the variant store. Bounds are 1-based and
// inclusive.
type Request struct {
	Chromosome    string `json:"chromosome"`
	LowerBound    int64  `json:"lowerBound"`
	UpperBound    int64  `json:"upperBound"`
	Reference     string `json:"reference,omitempty"`
	Alternative   string `json:"alternative,omitempty"`
	AssemblyID    string `json:"assemblyId,omitempty"`
	SampleIDsOnly bool   `json:"getSampleIdsOnly"`
}

// Locus is the position of a gene on one assembly, already 1-based.
type Locus struct {
	Chromosome string
	Start      int64
	End        int64
	AssemblyID string
}

type GeneResolver interface {
	// ResolveGene returns the loci matching symbol on assemblyID. No match is
	// an empty slice, not an error.
	ResolveGene(ctx context.Context, symbol, assemblyID string) ([]Locus, error)
}

type Planner struct {
	Genes      GeneResolver
	Assemblies []string
}

func unsupported(q *beacon.VariantQuery) string {
	switch {
	case q.VariantType != "":
		return "variantType"
	case q.VariantMinLength != nil:
		return "variantMinLength"
	case q.VariantMaxLength != nil:
		return "variantMaxLength"
	case q.MateName != "":
		return "mateName"
	case q.AminoacidChange != "":
		return "aminoacidChange"
	case q.GenomicAlleleShortForm != "":
		return "genomicAlleleShortForm"
	}
	return ""
}

// Classify decides which of the four query shapes q takes, rejecting
// combinations of parameters that do not form a valid query.
func Classify(q *beacon.VariantQuery) (Shape, error) {
	if q == nil {
		return ShapeInvalid, beacon.InvalidQuery("missing variant query")
	}
	if name := unsupported(q); name != "" {
		return ShapeInvalid, beacon.NotImplemented("parameter %s is not supported", name)
	}

	numStart, numEnd := len(q.Start), len(q.End)

	if q.GeneID != "" {
		if numStart > 0 || numEnd > 0 {
			return ShapeInvalid, beacon.InvalidQuery("invalid mix of geneId and start/end")
		}
		return ShapeGene, nil
	}

	if numStart == 2 && numEnd == 2 {
		return ShapeBracket, beacon.NotImplemented("bracket queries are not supported")
	}
	if q.ReferenceName == "" {
		return ShapeInvalid, beacon.InvalidQuery("referenceName required")
	}

	switch {
	case numStart == 1 && numEnd == 0:
		if q.ReferenceBases == "" || q.AlternateBases == "" {
			return ShapeInvalid, beacon.InvalidQuery("sequence queries require referenceBases and alternateBases")
		}
		return ShapeSequence, nil
	case numStart == 1 && numEnd == 1:
		return ShapeRange, nil
	}
	return ShapeInvalid, beacon.InvalidQuery("invalid combination of %d start and %d end coordinates", numStart, numEnd)
}

// Plan produces the requests to issue to the variant store for q. Only gene
// queries reach out to the resolver; every other shape is computed locally.
func (p *Planner) Plan(ctx context.Context, q *beacon.VariantQuery) ([]Request, error) {
	shape, err := Classify(q)
	if err != nil {
		return nil, err
	}

	base := Request{
		Reference:     q.ReferenceBases,
		Alternative:   q.AlternateBases,
		AssemblyID:    q.AssemblyID,
		SampleIDsOnly: true,
	}

	switch shape {
	case ShapeSequence:
		r := base
		r.Chromosome = Chromosome(q.ReferenceName)
		r.LowerBound = OneBased(q.Start[0])
		r.UpperBound = r.LowerBound
		return []Request{r}, nil
	case ShapeRange:
		r := base
		r.Chromosome = Chromosome(q.ReferenceName)
		r.LowerBound = OneBased(q.Start[0])
		r.UpperBound = OneBased(q.End[0])
		return []Request{r}, nil
	case ShapeGene:
		return p.planGene(ctx, q, base)
	}
	return nil, beacon.InvalidQuery("unsupported variant query")
}

func (p *Planner) planGene(ctx context.Context, q *beacon.VariantQuery, base Request) ([]Request, error) {
	if p.Genes == nil {
		return nil, beacon.NotImplemented("gene queries are not available")
	}

	assemblies := p.Assemblies
	if q.AssemblyID != "" {
		assemblies = []string{q.AssemblyID}
	}

	requests := []Request{}
	for _, assembly := range assemblies {
		loci, err := p.Genes.ResolveGene(ctx, q.GeneID, assembly)
		if err != nil {
			return nil, err
		}
		for _, l := range loci {
			r := base
			r.Chromosome = Chromosome(l.Chromosome)
			r.LowerBound = l.Start
			r.UpperBound = l.End
			r.AssemblyID = l.AssemblyID
			if r.AssemblyID == "" {
				r.AssemblyID = assembly
			}
			requests = append(requests, r)
		}
	}
	return requests, nil
}
