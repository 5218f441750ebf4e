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
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
)

var _ beacon.Beacon = (*Pipeline)(nil)

// fullRecord reports whether the caller may see uncensored node-wide data.
// A failing policy service is treated as an anonymous caller, since overview
// data is public once censored.
func (p *Pipeline) fullRecord(ctx context.Context, authorization string) bool {
	perms, err := authz.NewResolver(p.oracle, authz.ScopeOf("", ""), authorization).Resolve(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("unable to resolve permissions, censoring as anonymous")
		return false
	}
	return perms.FullRecord()
}

// Overview returns the node-wide counts and charts, censored unless the
// caller has full record access.
func (p *Pipeline) Overview(ctx context.Context, authorization string) (beacon.Overview, error) {
	o, err := p.metadata.Overview(ctx, "", "")
	if err != nil {
		return beacon.Overview{}, err
	}

	gate := censor.NewGate(p.metadata, censor.Options{FullRecord: p.fullRecord(ctx, authorization)})
	out := beacon.Overview{
		Counts: make(map[string]int, len(o.Counts)),
		Charts: make(map[string][]beacon.Bucket, len(o.Charts)),
	}
	for k, v := range o.Counts {
		if out.Counts[k], err = gate.Count(ctx, v); err != nil {
			return beacon.Overview{}, err
		}
	}
	for k, buckets := range o.Charts {
		if out.Charts[k], err = gate.Buckets(ctx, buckets); err != nil {
			return beacon.Overview{}, err
		}
	}
	return out, nil
}

// FilteringTerms lists the discovery fields this node can be queried on.
func (p *Pipeline) FilteringTerms(ctx context.Context, _ string) ([]terms.Entry, error) {
	fields, err := p.metadata.SearchFields(ctx)
	if err != nil {
		return nil, err
	}
	return terms.Entries(fields), nil
}
