/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package api

import (
	"context"
	"encoding/json"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
	"github.com/pkg/errors"
)

type Client interface {
	Info(ctx context.Context) (beacon.Info, error)
	Overview(ctx context.Context) (beacon.Overview, error)
	FilteringTerms(ctx context.Context) ([]terms.Entry, error)
	Query(ctx context.Context, endpoint string, body beacon.RequestBody) (Response, error)
}

// Response is a query response kept in its decoded JSON form, so responses
// from beacons speaking other versions of the API survive unchanged.
type Response map[string]interface{}

func toResponse(v interface{}) (Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode response")
	}
	var r Response
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrap(err, "unable to decode response")
	}
	return r, nil
}

// Envelope decodes r into the current response envelope.
func (r Response) Envelope() (beacon.Envelope, error) {
	var env beacon.Envelope
	b, err := json.Marshal(r)
	if err != nil {
		return env, errors.Wrap(err, "unable to encode response")
	}
	err = json.Unmarshal(b, &env)
	return env, errors.Wrap(err, "unable to decode response envelope")
}

// Count returns the response summary count, if the response carries one.
func (r Response) Count() (int, bool) {
	summary, ok := r["responseSummary"].(map[string]interface{})
	if !ok {
		return 0, false
	}
	n, ok := summary["count"].(float64)
	return int(n), ok
}
