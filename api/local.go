/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package api

import (
	"context"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
)

// A LocalClient calls a beacon in the same process. Authorization is passed
// to the beacon as if it came with an HTTP request.
type LocalClient struct {
	beacon        beacon.Beacon
	Authorization string
}

func NewLocalClient(b beacon.Beacon, authorization string) *LocalClient {
	return &LocalClient{beacon: b, Authorization: authorization}
}

func (client *LocalClient) Info(ctx context.Context) (beacon.Info, error) {
	return client.beacon.Info(ctx)
}

func (client *LocalClient) Overview(ctx context.Context) (beacon.Overview, error) {
	return client.beacon.Overview(ctx, client.Authorization)
}

func (client *LocalClient) FilteringTerms(ctx context.Context) ([]terms.Entry, error) {
	return client.beacon.FilteringTerms(ctx, client.Authorization)
}

func (client *LocalClient) Query(ctx context.Context, endpoint string, body beacon.RequestBody) (Response, error) {
	env, err := client.beacon.Query(ctx, endpoint, body, client.Authorization)
	if err != nil {
		return nil, err
	}
	return toResponse(env)
}
