/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package terms

// Entry is one filtering term as published by a beacon.
type Entry struct {
	ID          string   `json:"id"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	Values      []string `json:"values"`
}

// grouping keeps entries grouped by id, in order of first appearance.
type grouping struct {
	order   []string
	entries map[string][]Entry
}

func group(perNode [][]Entry) grouping {
	g := grouping{entries: map[string][]Entry{}}
	for _, nodeTerms := range perNode {
		for _, e := range nodeTerms {
			if _, ok := g.entries[e.ID]; !ok {
				g.order = append(g.order, e.ID)
			}
			g.entries[e.ID] = append(g.entries[e.ID], e)
		}
	}
	return g
}

func appendUnique(dst []string, seen map[string]struct{}, values ...string) []string {
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

// Union merges the vocabularies of every responding node. Descriptive fields
// come from the first entry seen for an id; values are concatenated without
// duplicates in order of first appearance.
func Union(perNode [][]Entry) []Entry {
	g := group(perNode)
	out := make([]Entry, 0, len(g.order))

	for _, id := range g.order {
		entries := g.entries[id]
		merged := entries[0]
		merged.Values = []string{}

		seen := map[string]struct{}{}
		for _, e := range entries {
			merged.Values = appendUnique(merged.Values, seen, e.Values...)
		}
		out = append(out, merged)
	}
	return out
}

// Intersection keeps only the ids every node in perNode answered, restricted
// to the values they all share. An id left without values is dropped.
//
// perNode must only contain nodes whose filtering terms call succeeded.
func Intersection(perNode [][]Entry) []Entry {
	g := group(perNode)
	out := []Entry{}

	for _, id := range g.order {
		entries := g.entries[id]
		if len(entries) != len(perNode) {
			continue
		}

		counts := map[string]int{}
		for _, e := range entries {
			seen := map[string]struct{}{}
			for _, v := range appendUnique(nil, seen, e.Values...) {
				counts[v]++
			}
		}

		merged := entries[0]
		merged.Values = []string{}
		seen := map[string]struct{}{}
		for _, e := range entries {
			for _, v := range e.Values {
				if counts[v] == len(entries) {
					merged.Values = appendUnique(merged.Values, seen, v)
				}
			}
		}
		if len(merged.Values) == 0 {
			continue
		}
		out = append(out, merged)
	}
	return out
}
