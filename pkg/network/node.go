/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package network

import (
	"context"
	"net/http"

	"github.com/bento-platform/bento-beacon-sub000/api"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
	"github.com/pkg/errors"
)

type State int

const (
	StateUnresolved State = iota
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	}
	return "unresolved"
}

// NodeInfo is what the registry knows about one beacon in the network.
type NodeInfo struct {
	ID             string          `json:"id"`
	APIURL         string          `json:"apiUrl"`
	ServiceDetails beacon.Info     `json:"serviceDetails"`
	Overview       beacon.Overview `json:"overview"`
	FilteringTerms []terms.Entry   `json:"filteringTerms"`
	// TermsAnswered is false when the node's filtering terms call failed; such
	// a node does not take part in the terms intersection. It is only read
	// while a snapshot is built, so cached snapshots do not carry it.
	TermsAnswered bool `json:"-"`
}

type Node interface {
	APIURL() string
	// ID is empty until RetrieveInfo has succeeded.
	ID() string
	State() State
	RetrieveInfo(ctx context.Context) error
	Info() NodeInfo
	Query(ctx context.Context, endpoint string, body beacon.RequestBody) (api.Response, error)
}

// nodeBase holds what host and remote nodes share: both talk to their beacon
// through an api.Client.
type nodeBase struct {
	apiURL string
	client api.Client
	state  State
	info   NodeInfo
}

func (n *nodeBase) APIURL() string { return n.apiURL }
func (n *nodeBase) ID() string     { return n.info.ID }
func (n *nodeBase) State() State   { return n.state }
func (n *nodeBase) Info() NodeInfo { return n.info }

// RetrieveInfo fetches the node's identity, overview and filtering terms. A
// failed filtering terms call leaves the node resolved without terms.
func (n *nodeBase) RetrieveInfo(ctx context.Context) error {
	n.state = StateFailed

	details, err := n.client.Info(ctx)
	if err != nil {
		return errors.Wrapf(err, "retrieving info from %s", n.apiURL)
	}
	if details.ID == "" {
		return errors.Errorf("beacon at %s did not report an id", n.apiURL)
	}
	overview, err := n.client.Overview(ctx)
	if err != nil {
		return errors.Wrapf(err, "retrieving overview from %s", n.apiURL)
	}

	info := NodeInfo{
		ID:             details.ID,
		APIURL:         n.apiURL,
		ServiceDetails: details,
		Overview:       overview,
		FilteringTerms: []terms.Entry{},
	}
	if entries, err := n.client.FilteringTerms(ctx); err == nil {
		info.FilteringTerms = entries
		info.TermsAnswered = true
	}

	n.info = info
	n.state = StateResolved
	return nil
}

func (n *nodeBase) Query(ctx context.Context, endpoint string, body beacon.RequestBody) (api.Response, error) {
	return n.client.Query(ctx, endpoint, body)
}

// HostNode is this beacon, called in process. authorization is the caller's
// header, so the host applies its own permissions to proxied requests.
type HostNode struct {
	nodeBase
}

func NewHostNode(apiURL string, b beacon.Beacon, authorization string) *HostNode {
	return &HostNode{nodeBase{apiURL: apiURL, client: api.NewLocalClient(b, authorization)}}
}

var hostEndpoints = map[string]bool{
	"individuals": true,
	"biosamples":  true,
	"g_variants":  true,
	"overview":    true,
}

// Query answers through the local pipeline, which applies this node's
// permissions and censorship exactly as for a direct request.
func (n *HostNode) Query(ctx context.Context, endpoint string, body beacon.RequestBody) (api.Response, error) {
	if !hostEndpoints[endpoint] {
		return nil, beacon.NotImplemented("endpoint %s is not available on this beacon", endpoint)
	}
	if endpoint == "overview" {
		o, err := n.client.Overview(ctx)
		if err != nil {
			return nil, err
		}
		return api.Response{"response": overviewResponse(o)}, nil
	}
	return n.client.Query(ctx, endpoint, body)
}

func overviewResponse(o beacon.Overview) map[string]interface{} {
	charts := map[string]interface{}{}
	for k, v := range o.Charts {
		buckets := make([]interface{}, 0, len(v))
		for _, b := range v {
			buckets = append(buckets, map[string]interface{}{"label": b.Label, "value": float64(b.Value)})
		}
		charts[k] = buckets
	}
	counts := map[string]interface{}{}
	for k, v := range o.Counts {
		counts[k] = float64(v)
	}
	return map[string]interface{}{"counts": counts, "charts": charts}
}

// RemoteNode is a peer beacon reached over HTTP. Caller credentials are never
// sent to peers; deadlines come from the context.
type RemoteNode struct {
	nodeBase
}

func NewRemoteNode(apiURL string, httpClient *http.Client) *RemoteNode {
	return &RemoteNode{nodeBase{apiURL: apiURL, client: api.NewRemoteClient(apiURL, httpClient, 0)}}
}

// Query relays the peer's response, adjusted to the current response shape.
func (n *RemoteNode) Query(ctx context.Context, endpoint string, body beacon.RequestBody) (api.Response, error) {
	var (
		resp api.Response
		err  error
	)
	if endpoint == "overview" {
		o, oerr := n.client.Overview(ctx)
		resp, err = api.Response{"response": overviewResponse(o)}, oerr
	} else {
		resp, err = n.client.Query(ctx, endpoint, body)
	}
	if err != nil {
		return nil, err
	}
	return Normalize(resp), nil
}
