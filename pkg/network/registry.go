/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package network

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/api"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultVariantsTimeout = 120 * time.Second
)

type Config struct {
	// HostURL is this beacon's own API URL. A peer listed with this URL is
	// answered in process.
	HostURL string
	Peers   []string
	// Timeout bounds each peer call; VariantsTimeout replaces it for calls
	// that include a variant search.
	Timeout         time.Duration
	VariantsTimeout time.Duration
}

// Snapshot is the resolved network: every node that answered, in configured
// order, and the merged filtering terms of those whose terms call succeeded.
type Snapshot struct {
	Beacons             []NodeInfo    `json:"beacons"`
	FiltersUnion        []terms.Entry `json:"filtersUnion"`
	FiltersIntersection []terms.Entry `json:"filtersIntersection"`
}

func (s Snapshot) node(id string) (NodeInfo, bool) {
	for _, b := range s.Beacons {
		if b.ID == id {
			return b, true
		}
	}
	return NodeInfo{}, false
}

// PeerRecorder is told the outcome of every peer call.
type PeerRecorder interface {
	PeerCall(peer string, err error)
}

var proxyEndpoints = map[string]bool{
	"analyses":    true,
	"biosamples":  true,
	"cohorts":     true,
	"datasets":    true,
	"g_variants":  true,
	"individuals": true,
	"runs":        true,
	"overview":    true,
}

type Registry struct {
	log      zerolog.Logger
	config   Config
	host     beacon.Beacon
	client   *http.Client
	cache    Cache
	recorder PeerRecorder

	// Held for the whole of a build. A cache miss re-checks the cache once
	// it holds the lock, so concurrent misses resolve the network once.
	buildMu sync.Mutex
}

// NewRegistry returns a registry for c. host answers for the peer whose URL is
// c.HostURL and may be nil when the host is not part of its own network.
func NewRegistry(log zerolog.Logger, c Config, host beacon.Beacon, httpClient *http.Client, cache Cache) *Registry {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.VariantsTimeout <= 0 {
		c.VariantsTimeout = DefaultVariantsTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	return &Registry{
		log:    log.With().Str("component", "network").Logger(),
		config: c,
		host:   host,
		client: httpClient,
		cache:  cache,
	}
}

func (r *Registry) SetRecorder(p PeerRecorder) {
	r.recorder = p
}

func sameURL(a, b string) bool {
	return a != "" && strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}

func (r *Registry) newNode(apiURL, authorization string) Node {
	if r.host != nil && sameURL(apiURL, r.config.HostURL) {
		return NewHostNode(apiURL, r.host, authorization)
	}
	return NewRemoteNode(apiURL, r.client)
}

func (r *Registry) record(n Node, err error) {
	if r.recorder != nil {
		r.recorder.PeerCall(n.APIURL(), err)
	}
}

// Build resolves every configured node concurrently and caches the result,
// regardless of what the cache holds. A node that fails is left out. A
// snapshot that cannot be cached is still returned; the next call resolves
// the network again.
func (r *Registry) Build(ctx context.Context) (Snapshot, error) {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	return r.buildLocked(ctx), nil
}

func (r *Registry) buildLocked(ctx context.Context) Snapshot {
	var (
		urls  = dedupe(r.config.Peers)
		nodes = make([]Node, len(urls))
		p     = pool.New()
	)
	for i, u := range urls {
		n := r.newNode(u, "")
		nodes[i] = n
		p.Go(func() {
			ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
			defer cancel()

			err := n.RetrieveInfo(ctx)
			r.record(n, err)
			if err != nil {
				r.log.Warn().Err(err).Str("peer", n.APIURL()).Msg("excluding beacon from network")
			}
		})
	}
	p.Wait()

	s := snapshot(r.log, nodes)
	r.log.Debug().Int("configured", len(urls)).Int("resolved", len(s.Beacons)).Msg("network resolved")
	if err := r.cache.Put(ctx, s); err != nil {
		r.log.Warn().Err(err).Msg("unable to cache network snapshot")
	}
	return s
}

func dedupe(urls []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		k := strings.TrimRight(u, "/")
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, u)
	}
	return out
}

func snapshot(log zerolog.Logger, nodes []Node) Snapshot {
	s := Snapshot{Beacons: []NodeInfo{}}
	seen := map[string]bool{}
	var answered [][]terms.Entry
	for _, n := range nodes {
		if n.State() != StateResolved {
			continue
		}
		info := n.Info()
		if seen[info.ID] {
			log.Warn().Str("id", info.ID).Str("peer", info.APIURL).Msg("duplicate beacon id, keeping the first")
			continue
		}
		seen[info.ID] = true
		s.Beacons = append(s.Beacons, info)
		if info.TermsAnswered {
			answered = append(answered, info.FilteringTerms)
		}
	}
	s.FiltersUnion = terms.Union(answered)
	s.FiltersIntersection = terms.Intersection(answered)
	return s
}

// Snapshot returns the cached network, resolving it on a miss. A cache that
// cannot be read is logged and treated as a miss.
func (r *Registry) Snapshot(ctx context.Context) (Snapshot, error) {
	if s, ok := r.lookup(ctx); ok {
		return s, nil
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	if s, ok := r.lookup(ctx); ok {
		return s, nil
	}
	return r.buildLocked(ctx), nil
}

func (r *Registry) lookup(ctx context.Context) (Snapshot, bool) {
	s, ok, err := r.cache.Get(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("network cache unavailable")
	}
	return s, ok
}

// Cached returns the cached snapshot without resolving the network.
func (r *Registry) Cached(ctx context.Context) (Snapshot, bool) {
	s, ok, err := r.cache.Get(ctx)
	if err != nil {
		return Snapshot{}, false
	}
	return s, ok
}

// Proxy sends a query to one beacon of the network. Only POST is supported.
// An id missing from the cached snapshot triggers one rebuild before the
// request is refused.
func (r *Registry) Proxy(ctx context.Context, method, beaconID, endpoint string, body beacon.RequestBody, authorization string) (api.Response, error) {
	if method != http.MethodPost {
		return nil, beacon.NotImplemented("method %s is not supported for network queries", method)
	}
	if !proxyEndpoints[endpoint] {
		return nil, beacon.NotFound("unknown endpoint %s", endpoint)
	}

	s, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	info, ok := s.node(beaconID)
	if !ok {
		if s, err = r.Build(ctx); err != nil {
			return nil, err
		}
		if info, ok = s.node(beaconID); !ok {
			return nil, beacon.NotFound("no beacon with id %s in the network", beaconID)
		}
	}

	timeout := r.config.Timeout
	if endpoint == "g_variants" || body.Query.RequestParameters.GVariant != nil {
		timeout = r.config.VariantsTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n := r.newNode(info.APIURL, authorization)
	resp, err := n.Query(ctx, endpoint, body)
	if _, remote := n.(*RemoteNode); remote {
		r.record(n, err)
	}
	return resp, err
}
