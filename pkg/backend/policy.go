/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package backend

import (
	"context"

	"github.com/bento-platform/bento-beacon-sub000/pkg/authz"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/pkg/errors"
)

type (
	evaluateRequest struct {
		Resources   []authz.Resource   `json:"resources"`
		Permissions []authz.Permission `json:"permissions"`
	}

	evaluateResponse struct {
		Result [][]bool `json:"result"`
	}
)

// PolicyService is the authorization service client. It implements
// authz.Oracle, forwarding the caller's own authorization header.
type PolicyService struct {
	URL       string
	Transport *Transport
}

func NewPolicyService(baseURL string, t *Transport) *PolicyService {
	return &PolicyService{URL: baseURL, Transport: t}
}

func (p *PolicyService) Evaluate(ctx context.Context, token string, resource authz.Resource, permissions []authz.Permission) ([]bool, error) {
	body := evaluateRequest{
		Resources:   []authz.Resource{resource},
		Permissions: permissions,
	}

	var resp evaluateResponse
	if err := p.Transport.PostJSON(ctx, Endpoint(p.URL, "/policy/evaluate", nil), token, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) != 1 {
		return nil, beacon.Upstream(errors.Errorf("expected one resource in evaluation, got %d", len(resp.Result)), p.Transport.Service)
	}
	return resp.Result[0], nil
}
