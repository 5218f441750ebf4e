/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package plan

import "sort"

// IDSet is a deduplicated set of backend entity identifiers.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Union(other IDSet) IDSet {
	out := make(IDSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

func (s IDSet) Intersect(other IDSet) IDSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(IDSet, len(small))
	for id := range small {
		if large.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the ids in ascending order so callers can page through them
// deterministically.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// NamedSet is the result of one sub-query, named after the facet it searched.
type NamedSet struct {
	Name string
	IDs  IDSet
}

// Intersect combines the sets that were actually requested. ok is false when
// sets is empty; an unrestricted query is the caller's decision, never an
// empty result.
func Intersect(sets []NamedSet) (result IDSet, ok bool) {
	if len(sets) == 0 {
		return nil, false
	}
	result = IDSet{}.Union(sets[0].IDs)
	for _, s := range sets[1:] {
		result = result.Intersect(s.IDs)
	}
	return result, true
}
