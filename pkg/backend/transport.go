/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/pkg/errors"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth holds the client credentials this gateway uses when it calls
// backends on its own behalf.
type OAuth struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// NewHTTPClient returns a client that attaches a service token to every
// request, or a plain client when no credentials are configured. The returned
// client is shared across requests and never carries caller headers.
func NewHTTPClient(o OAuth) *http.Client {
	if o.ClientID == "" || o.TokenURL == "" {
		return &http.Client{}
	}
	cc := clientcredentials.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		TokenURL:     o.TokenURL,
	}
	return cc.Client(context.Background())
}

// Transport issues JSON calls to one backend service. Every failure, including
// a body that is not JSON, is reported as an upstream error naming Service.
type Transport struct {
	Client  *http.Client
	Service string
	Timeout time.Duration
}

func NewTransport(client *http.Client, service string, timeout time.Duration) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	return &Transport{Client: client, Service: service, Timeout: timeout}
}

// Endpoint joins a base URL and a path, keeping any path prefix the base has.
func Endpoint(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// PostJSON sends body and decodes the response into out. authorization, when
// set, is attached to this request only.
func (t *Transport) PostJSON(ctx context.Context, url, authorization string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "unable to encode request body")
	}
	return t.do(ctx, http.MethodPost, url, authorization, bytes.NewReader(b), out)
}

func (t *Transport) GetJSON(ctx context.Context, url, authorization string, out interface{}) error {
	return t.do(ctx, http.MethodGet, url, authorization, nil, out)
}

func (t *Transport) do(ctx context.Context, method, url, authorization string, body io.Reader, out interface{}) error {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return beacon.Upstream(errors.Wrapf(err, "bad request for %s", url), t.Service)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return beacon.Upstream(errors.Wrapf(err, "%s %s", method, url), t.Service)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return beacon.Upstream(errors.Errorf("%s %s: status %d", method, url, resp.StatusCode), t.Service)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return beacon.Upstream(errors.Wrapf(err, "unable to decode response from %s", url), t.Service)
	}
	return nil
}
