/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package beacon

import (
	"context"

	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
)

type (
	Organization struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Info describes a beacon. It is the body of the info endpoint and what a
	// network node is identified by.
	Info struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		APIVersion   string       `json:"apiVersion"`
		Environment  string       `json:"environment,omitempty"`
		Description  string       `json:"description,omitempty"`
		Organization Organization `json:"organization"`
		Version      string       `json:"version,omitempty"`
	}

	ServiceType struct {
		Group    string `json:"group"`
		Artifact string `json:"artifact"`
		Version  string `json:"version"`
	}

	ServiceInfo struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		Type         ServiceType  `json:"type"`
		Organization Organization `json:"organization"`
		Environment  string       `json:"environment,omitempty"`
		Version      string       `json:"version,omitempty"`
	}

	Bucket struct {
		Label string `json:"label"`
		Value int    `json:"value"`
	}

	// Overview is the summary of the data a beacon holds: entity counts and
	// the charts shown on its landing page.
	Overview struct {
		Counts map[string]int      `json:"counts"`
		Charts map[string][]Bucket `json:"charts,omitempty"`
	}
)

func (i Info) ServiceInfo() ServiceInfo {
	return ServiceInfo{
		ID:           i.ID,
		Name:         i.Name,
		Type:         ServiceType{Group: "org.ga4gh", Artifact: "beacon", Version: i.APIVersion},
		Organization: i.Organization,
		Environment:  i.Environment,
		Version:      i.Version,
	}
}

// A Beacon answers the public Beacon API. authorization is the caller's
// Authorization header, empty for anonymous callers.
type Beacon interface {
	Info(ctx context.Context) (Info, error)
	Overview(ctx context.Context, authorization string) (Overview, error)
	FilteringTerms(ctx context.Context, authorization string) ([]terms.Entry, error)
	Query(ctx context.Context, endpoint string, body RequestBody, authorization string) (Envelope, error)
}
