/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package authz

import (
	"context"
	"sync"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/pkg/errors"
)

type Permission string

const (
	QueryData           Permission = "query:data"
	QueryProjectCounts  Permission = "query:project_level_counts"
	QueryProjectBoolean Permission = "query:project_level_boolean"
	QueryDatasetCounts  Permission = "query:dataset_level_counts"
	QueryDatasetBoolean Permission = "query:dataset_level_boolean"
	DownloadData        Permission = "download:data"
)

type ScopeKind int

const (
	ScopeEverything ScopeKind = iota
	ScopeProject
	ScopeDataset
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeProject:
		return "project"
	case ScopeDataset:
		return "dataset"
	}
	return "everything"
}

type Scope struct {
	Kind      ScopeKind
	ProjectID string
	DatasetID string
}

func ScopeOf(projectID, datasetID string) Scope {
	switch {
	case datasetID != "":
		return Scope{Kind: ScopeDataset, ProjectID: projectID, DatasetID: datasetID}
	case projectID != "":
		return Scope{Kind: ScopeProject, ProjectID: projectID}
	}
	return Scope{Kind: ScopeEverything}
}

// Resource is the descriptor the policy service evaluates permissions on.
type Resource struct {
	Everything bool   `json:"everything,omitempty"`
	Project    string `json:"project,omitempty"`
	Dataset    string `json:"dataset,omitempty"`
}

func (s Scope) Resource() Resource {
	switch s.Kind {
	case ScopeDataset:
		return Resource{Project: s.ProjectID, Dataset: s.DatasetID}
	case ScopeProject:
		return Resource{Project: s.ProjectID}
	}
	return Resource{Everything: true}
}

// Checklist is the set of permissions requested for a scope. The everything
// and project lists are identical; there is no distinct project-level
// permission model yet.
func Checklist(kind ScopeKind) []Permission {
	if kind == ScopeDataset {
		return []Permission{QueryData, QueryDatasetCounts, QueryDatasetBoolean, DownloadData}
	}
	return []Permission{QueryData, QueryProjectCounts, QueryProjectBoolean, DownloadData}
}

func countPermission(kind ScopeKind) Permission {
	if kind == ScopeDataset {
		return QueryDatasetCounts
	}
	return QueryProjectCounts
}

func booleanPermission(kind ScopeKind) Permission {
	if kind == ScopeDataset {
		return QueryDatasetBoolean
	}
	return QueryProjectBoolean
}

type PermissionSet map[Permission]bool

func (p PermissionSet) FullRecord() bool {
	return p[QueryData]
}

// CheckSufficient fails with a permissions error when perms do not allow a
// response of granularity g in scope kind.
func CheckSufficient(perms PermissionSet, kind ScopeKind, g beacon.Granularity) error {
	var ok bool
	switch g {
	case beacon.GranularityRecord:
		ok = perms[QueryData]
	case beacon.GranularityCount:
		ok = perms[countPermission(kind)]
	case beacon.GranularityBoolean:
		ok = perms[booleanPermission(kind)]
	}
	if !ok {
		return beacon.PermissionsDenied()
	}
	return nil
}

// An Oracle answers, in one call, whether the bearer of token holds each of
// permissions on resource. The answer is positional.
type Oracle interface {
	Evaluate(ctx context.Context, token string, resource Resource, permissions []Permission) ([]bool, error)
}

// AllowAll grants everything; it stands in for the policy service when
// authorization is disabled.
type AllowAll struct{}

func (AllowAll) Evaluate(_ context.Context, _ string, _ Resource, permissions []Permission) ([]bool, error) {
	out := make([]bool, len(permissions))
	for i := range out {
		out[i] = true
	}
	return out, nil
}

// Resolver memoises the permission set of one request.
type Resolver struct {
	oracle Oracle
	token  string
	scope  Scope

	once  sync.Once
	perms PermissionSet
	err   error
}

func NewResolver(oracle Oracle, scope Scope, token string) *Resolver {
	return &Resolver{oracle: oracle, scope: scope, token: token}
}

func (r *Resolver) Scope() Scope {
	return r.scope
}

// Resolve issues a single batched evaluation on first use.
func (r *Resolver) Resolve(ctx context.Context) (PermissionSet, error) {
	r.once.Do(func() {
		checklist := Checklist(r.scope.Kind)
		answers, err := r.oracle.Evaluate(ctx, r.token, r.scope.Resource(), checklist)
		if err != nil {
			r.err = err
			return
		}
		if len(answers) != len(checklist) {
			r.err = beacon.Upstream(
				errors.Errorf("policy service answered %d of %d permissions", len(answers), len(checklist)),
				"authorization service",
			)
			return
		}
		r.perms = make(PermissionSet, len(checklist))
		for i, p := range checklist {
			r.perms[p] = answers[i]
		}
	})
	return r.perms, r.err
}

// Check resolves permissions and verifies they allow granularity g.
func (r *Resolver) Check(ctx context.Context, g beacon.Granularity) (PermissionSet, error) {
	perms, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := CheckSufficient(perms, r.scope.Kind, g); err != nil {
		return nil, err
	}
	return perms, nil
}
