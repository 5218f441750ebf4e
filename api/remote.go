/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/pkg/backend"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
)

// A RemoteClient talks to a beacon over HTTP. Every failure, including a
// response that is not JSON, is an upstream error naming the beacon.
type RemoteClient struct {
	BaseURL       string
	Authorization string
	transport     *backend.Transport
}

func NewRemoteClient(baseURL string, httpClient *http.Client, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		BaseURL:   baseURL,
		transport: backend.NewTransport(httpClient, "beacon "+baseURL, timeout),
	}
}

type (
	infoEnvelope struct {
		Response beacon.Info `json:"response"`
	}

	overviewEnvelope struct {
		Response beacon.Overview `json:"response"`
	}

	termsEnvelope struct {
		Response struct {
			FilteringTerms []terms.Entry `json:"filteringTerms"`
		} `json:"response"`
	}
)

// Get decodes any GET endpoint of the beacon into out.
func (client *RemoteClient) Get(ctx context.Context, path string, out interface{}) error {
	return client.transport.GetJSON(ctx, backend.Endpoint(client.BaseURL, path, nil), client.Authorization, out)
}

func (client *RemoteClient) Info(ctx context.Context) (beacon.Info, error) {
	var env infoEnvelope
	err := client.Get(ctx, "/info", &env)
	return env.Response, err
}

func (client *RemoteClient) Overview(ctx context.Context) (beacon.Overview, error) {
	var env overviewEnvelope
	err := client.Get(ctx, "/overview", &env)
	return env.Response, err
}

func (client *RemoteClient) FilteringTerms(ctx context.Context) ([]terms.Entry, error) {
	var env termsEnvelope
	err := client.Get(ctx, "/filtering_terms", &env)
	return env.Response.FilteringTerms, err
}

func (client *RemoteClient) Query(ctx context.Context, endpoint string, body beacon.RequestBody) (Response, error) {
	var resp Response
	err := client.transport.PostJSON(ctx, backend.Endpoint(client.BaseURL, endpoint, nil), client.Authorization, body, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
