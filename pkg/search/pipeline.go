/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package search

import (
	"context"

	"github.com/bento-platform/bento-beacon-sub000/pkg/authz"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/censor"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/filter"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/plan"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/variant"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Metadata is the metadata service as seen by the pipeline.
type Metadata interface {
	censor.Source
	Search(ctx context.Context, dataType string, expr filter.Expr, field []string) (plan.IDSet, error)
	Overview(ctx context.Context, projectID, datasetID string) (beacon.Overview, error)
	SearchFields(ctx context.Context) ([]terms.Field, error)
}

// Variants is the variant store as seen by the pipeline.
type Variants interface {
	variant.GeneResolver
	SampleIDs(ctx context.Context, req variant.Request) (plan.IDSet, error)
}

// Observer is told about requests whose count was censored.
type Observer interface {
	Censored(endpoint string)
}

type Config struct {
	Info               beacon.Info
	Facets             Facets
	Assemblies         []string
	DefaultGranularity beacon.Granularity
	RestrictAnonymous  bool
}

// Pipeline answers Beacon queries for this node. It holds no per-request
// state; permissions and censorship policy live in the request scope.
type Pipeline struct {
	log      zerolog.Logger
	info     beacon.Info
	facets   Facets
	metadata Metadata
	variants Variants
	oracle   authz.Oracle
	planner  *variant.Planner
	builder  beacon.Builder
	observer Observer

	defaultGranularity beacon.Granularity
	restrictAnonymous  bool
}

// New builds a pipeline. variants may be nil on nodes without a variant
// store, in which case variant queries are not implemented.
func New(log zerolog.Logger, c Config, metadata Metadata, variants Variants, oracle authz.Oracle) *Pipeline {
	if c.DefaultGranularity == "" {
		c.DefaultGranularity = beacon.GranularityCount
	}
	if oracle == nil {
		oracle = authz.AllowAll{}
	}

	p := &Pipeline{
		log:                log,
		info:               c.Info,
		facets:             c.Facets,
		metadata:           metadata,
		variants:           variants,
		oracle:             oracle,
		builder:            beacon.Builder{BeaconID: c.Info.ID, APIVersion: c.Info.APIVersion},
		defaultGranularity: c.DefaultGranularity,
		restrictAnonymous:  c.RestrictAnonymous,
	}
	if variants != nil {
		p.planner = &variant.Planner{Genes: variants, Assemblies: c.Assemblies}
	}
	return p
}

func (p *Pipeline) SetObserver(o Observer) {
	p.observer = o
}

func (p *Pipeline) Builder() beacon.Builder {
	return p.builder
}

func (p *Pipeline) Info(context.Context) (beacon.Info, error) {
	return p.info, nil
}

// request is the state of one query while it is being answered.
type request struct {
	endpoint string
	query    beacon.Query
	perms    authz.PermissionSet
	gate     *censor.Gate
	log      zerolog.Logger
}

// Query answers endpoint for body. Permissions are checked before any
// backend is contacted.
func (p *Pipeline) Query(ctx context.Context, endpoint string, body beacon.RequestBody, authorization string) (beacon.Envelope, error) {
	q, err := beacon.Parse(body, p.defaultGranularity)
	if err != nil {
		return beacon.Envelope{}, err
	}

	resolver := authz.NewResolver(p.oracle, authz.ScopeOf(q.ProjectID, q.DatasetID), authorization)
	perms, err := resolver.Check(ctx, q.Granularity)
	if err != nil {
		return beacon.Envelope{}, err
	}

	r := &request{
		endpoint: endpoint,
		query:    q,
		perms:    perms,
		log: p.log.With().
			Str("endpoint", endpoint).
			Str("granularity", string(q.Granularity)).
			Logger(),
		gate: censor.NewGate(p.metadata, censor.Options{
			ProjectID:         q.ProjectID,
			DatasetID:         q.DatasetID,
			FullRecord:        perms.FullRecord(),
			RestrictAnonymous: p.restrictAnonymous,
		}),
	}

	if err := r.gate.CheckQuery(ctx, &r.query); err != nil {
		return beacon.Envelope{}, err
	}

	if r.query.Unrestricted() && q.Granularity != beacon.GranularityRecord {
		return p.unrestricted(ctx, r)
	}

	stages, err := p.stages(ctx, r)
	if err != nil {
		return beacon.Envelope{}, err
	}
	res, err := plan.Execute(ctx, r.log, stages)
	if err != nil {
		return beacon.Envelope{}, err
	}

	ids := res.IDs
	if endpoint == "individuals" && len(ids) > 0 {
		if ids, err = p.individuals(ctx, ids); err != nil {
			return beacon.Envelope{}, err
		}
	}

	count, err := p.censorCount(ctx, r, len(ids))
	if err != nil {
		return beacon.Envelope{}, err
	}

	var results []interface{}
	if q.Granularity == beacon.GranularityRecord && count > 0 {
		results = page(ids.Sorted(), q.Pagination)
	}
	return p.builder.Query(endpoint, &r.query, count, results), nil
}

func (p *Pipeline) censorCount(ctx context.Context, r *request, raw int) (int, error) {
	count, err := r.gate.Count(ctx, raw)
	if err != nil {
		return 0, err
	}
	if count != raw {
		r.log.Debug().Int("raw", raw).Msg("count censored")
		if p.observer != nil {
			p.observer.Censored(r.endpoint)
		}
	}
	return count, nil
}

// unrestricted answers a query naming no facet from the overview counts.
func (p *Pipeline) unrestricted(ctx context.Context, r *request) (beacon.Envelope, error) {
	o, err := p.metadata.Overview(ctx, r.query.ProjectID, r.query.DatasetID)
	if err != nil {
		return beacon.Envelope{}, err
	}
	count, err := p.censorCount(ctx, r, o.Counts[countKey(r.endpoint)])
	if err != nil {
		return beacon.Envelope{}, err
	}
	return p.builder.Query(r.endpoint, &r.query, count, nil), nil
}

func countKey(endpoint string) string {
	if endpoint == "individuals" {
		return "individuals"
	}
	return "biosamples"
}

// stages turns the query into independent searches. Translation and variant
// planning happen here, so malformed queries fail before any search runs.
func (p *Pipeline) stages(ctx context.Context, r *request) ([]plan.Stage, error) {
	q := &r.query
	var stages []plan.Stage

	if q.HasVariants() {
		s, err := p.variantStage(ctx, q)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}

	families := []struct {
		name    string
		facet   Facet
		filters []beacon.Filter
	}{
		{"phenopackets", p.facets.Phenopacket, q.PhenopacketFilters},
		{"experiments", p.facets.Experiment, q.ExperimentFilters},
		{"config", p.facets.Config, q.ConfigFilters},
	}
	scoped := q.ProjectID != ""
	metadataStages := 0
	for _, fam := range families {
		if len(fam.filters) == 0 {
			continue
		}
		expr, err := fam.facet.translate(fam.filters, q.ProjectID, q.DatasetID)
		if err != nil {
			return nil, err
		}
		stages = append(stages, p.metadataStage(fam.name, fam.facet, expr))
		metadataStages++
	}

	// Scope only reaches the variant store through another stage, and a
	// record query naming no facet still needs every id in scope.
	if metadataStages == 0 && (scoped || len(stages) == 0) {
		f := p.facets.Phenopacket
		stages = append(stages, p.metadataStage("scope", f, f.scoped(nil, q.ProjectID, q.DatasetID)))
	}
	return stages, nil
}

func (p *Pipeline) metadataStage(name string, f Facet, expr filter.Expr) plan.Stage {
	return plan.Stage{
		Name: name,
		Run: func(ctx context.Context) (plan.IDSet, error) {
			return p.metadata.Search(ctx, f.DataType, expr, f.Field)
		},
	}
}

func (p *Pipeline) variantStage(ctx context.Context, q *beacon.Query) (plan.Stage, error) {
	if p.planner == nil {
		// Still reject malformed queries before reporting the missing store.
		if _, err := variant.Classify(q.Variants); err != nil {
			return plan.Stage{}, err
		}
		return plan.Stage{}, beacon.NotImplemented("variant queries are not available on this beacon")
	}

	requests, err := p.planner.Plan(ctx, q.Variants)
	if err != nil {
		return plan.Stage{}, err
	}

	return plan.Stage{
		Name: "variants",
		Run: func(ctx context.Context) (plan.IDSet, error) {
			return p.searchVariants(ctx, requests)
		},
	}, nil
}

// searchVariants unions the samples of every planned request; a gene found
// on several assemblies yields one request per assembly.
func (p *Pipeline) searchVariants(ctx context.Context, requests []variant.Request) (plan.IDSet, error) {
	if len(requests) == 0 {
		return plan.IDSet{}, nil
	}

	rp := pool.NewWithResults[plan.IDSet]().WithContext(ctx)
	for _, req := range requests {
		rp.Go(func(ctx context.Context) (plan.IDSet, error) {
			return p.variants.SampleIDs(ctx, req)
		})
	}
	sets, err := rp.Wait()
	if err != nil {
		return nil, err
	}

	ids := plan.IDSet{}
	for _, s := range sets {
		ids = ids.Union(s)
	}
	return ids, nil
}

func (p *Pipeline) individuals(ctx context.Context, biosamples plan.IDSet) (plan.IDSet, error) {
	i := p.facets.Individuals
	return p.metadata.Search(ctx, i.DataType, i.query(biosamples.Sorted()), i.Field)
}

func page(ids []string, pg beacon.Pagination) []interface{} {
	start := pg.Skip
	if start > len(ids) {
		start = len(ids)
	}
	end := len(ids)
	if pg.Limit > 0 && start+pg.Limit < end {
		end = start + pg.Limit
	}

	out := make([]interface{}, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, map[string]string{"id": id})
	}
	return out
}
