/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package terms

import "strings"

// Field is a discovery search field exposed by the metadata service.
type Field struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Datatype     string   `json:"datatype"`
	Options      []string `json:"options"`
	Mapping      string   `json:"mapping"`
	GroupBy      string   `json:"group_by,omitempty"`
	GroupByValue string   `json:"group_by_value,omitempty"`
	ValueMapping string   `json:"value_mapping,omitempty"`
}

// Key identifies the same underlying field across discovery sections, which
// may publish it under different ids.
func (f Field) Key() string {
	return strings.Join([]string{f.Mapping, f.GroupBy, f.GroupByValue, f.ValueMapping}, "\x00")
}

func (f Field) Entry() Entry {
	t := "alphanumeric"
	if f.Datatype == "number" {
		t = "numeric"
	}
	values := f.Options
	if values == nil {
		values = []string{}
	}
	return Entry{
		ID:          f.ID,
		Label:       f.Title,
		Description: f.Description,
		Type:        t,
		Values:      values,
	}
}

// MergeFields combines search fields from several sections. Fields sharing a
// key collapse to the first one seen, with options unioned.
func MergeFields(sections ...[]Field) []Field {
	var order []string
	merged := map[string]*Field{}
	seen := map[string]map[string]struct{}{}

	for _, section := range sections {
		for _, f := range section {
			k := f.Key()
			m, ok := merged[k]
			if !ok {
				first := f
				first.Options = nil
				m = &first
				merged[k] = m
				seen[k] = map[string]struct{}{}
				order = append(order, k)
			}
			m.Options = appendUnique(m.Options, seen[k], f.Options...)
		}
	}

	out := make([]Field, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	return out
}

func Entries(fields []Field) []Entry {
	out := make([]Entry, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Entry())
	}
	return out
}
