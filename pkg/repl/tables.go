/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package repl

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/bento-platform/bento-beacon-sub000/api"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/network"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

func renderTable(w io.Writer, v Printable) error {
	headers := v.Headers()
	h := make([]any, len(headers))
	for i := range headers {
		h[i] = headers[i]
	}

	table := tablewriter.NewWriter(w)
	table.Header(h...)
	if err := table.Bulk(v.Values()); err != nil {
		return err
	}
	return table.Render()
}

type InfoTable beacon.Info

func (t InfoTable) Headers() []string {
	return []string{"id", "name", "api version", "organization"}
}

func (t InfoTable) Values() [][]string {
	return [][]string{{t.ID, t.Name, t.APIVersion, t.Organization.Name}}
}

type OverviewTable beacon.Overview

func (t OverviewTable) Headers() []string {
	return []string{"chart", "label", "count"}
}

func (t OverviewTable) Values() [][]string {
	rows := [][]string{}
	for _, k := range sortedKeys(t.Counts) {
		rows = append(rows, []string{"", k, humanize.Comma(int64(t.Counts[k]))})
	}
	for _, k := range sortedKeys(t.Charts) {
		for _, b := range t.Charts[k] {
			rows = append(rows, []string{k, b.Label, humanize.Comma(int64(b.Value))})
		}
	}
	return rows
}

type TermsTable []terms.Entry

func (t TermsTable) Headers() []string {
	return []string{"id", "label", "type", "values"}
}

func (t TermsTable) Values() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{e.ID, e.Label, e.Type, strings.Join(e.Values, ", ")})
	}
	return rows
}

type NetworkTable network.Snapshot

func (t NetworkTable) Headers() []string {
	return []string{"id", "name", "api url", "individuals", "biosamples", "filtering terms"}
}

func (t NetworkTable) Values() [][]string {
	rows := make([][]string, 0, len(t.Beacons))
	for _, b := range t.Beacons {
		rows = append(rows, []string{
			b.ID,
			b.ServiceDetails.Name,
			b.APIURL,
			humanize.Comma(int64(b.Overview.Counts["individuals"])),
			humanize.Comma(int64(b.Overview.Counts["biosamples"])),
			strconv.Itoa(len(b.FilteringTerms)),
		})
	}
	return rows
}

// ResponseTable shows a query response: one summary row, then one row per
// returned record.
type ResponseTable api.Response

func (t ResponseTable) Headers() []string {
	return []string{"beacon", "exists", "count", "id"}
}

func (t ResponseTable) Values() [][]string {
	r := api.Response(t)
	id := ""
	if meta, ok := r["meta"].(map[string]interface{}); ok {
		id, _ = meta["beaconId"].(string)
	}

	exists, count := "", "-"
	if summary, ok := r["responseSummary"].(map[string]interface{}); ok {
		if e, ok := summary["exists"].(bool); ok {
			exists = strconv.FormatBool(e)
		}
	}
	if n, ok := r.Count(); ok {
		count = humanize.Comma(int64(n))
	}
	rows := [][]string{{id, exists, count, ""}}

	resp, _ := r["response"].(map[string]interface{})
	sets, _ := resp["resultSets"].([]interface{})
	for _, s := range sets {
		set, _ := s.(map[string]interface{})
		results, _ := set["results"].([]interface{})
		for _, res := range results {
			rec, _ := res.(map[string]interface{})
			rid, _ := rec["id"].(string)
			rows = append(rows, []string{"", "", "", rid})
		}
	}
	return rows
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
