/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package api is a Go client for the Beacon API, either over HTTP or against
// a beacon running in the same process.
package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/pkg/errors"
)

// ParseTarget validates a beacon API URL and returns it without a trailing
// slash.
func ParseTarget(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", errors.Wrapf(err, "invalid beacon url %q", target)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Errorf("invalid beacon url %q: scheme must be http or https", target)
	}
	if u.Host == "" {
		return "", errors.Errorf("invalid beacon url %q: missing host", target)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// NewClient creates a client for the beacon at target. When local is not
// nil, calls are answered in process instead of over the network.
func NewClient(target string, local beacon.Beacon, httpClient *http.Client, timeout time.Duration) (Client, error) {
	if local != nil {
		return NewLocalClient(local, ""), nil
	}

	base, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	return NewRemoteClient(base, httpClient, timeout), nil
}
