/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package network

import (
	"github.com/bento-platform/bento-beacon-sub000/api"
)

// Normalize adjusts a peer response written against an older revision of the
// API: the summary count used to be called numTotalResults, and exists was
// optional.
func Normalize(resp api.Response) api.Response {
	summary, ok := resp["responseSummary"].(map[string]interface{})
	if !ok {
		return resp
	}

	if n, ok := summary["numTotalResults"]; ok {
		if _, has := summary["count"]; !has {
			summary["count"] = n
		}
		delete(summary, "numTotalResults")
	}
	if _, ok := summary["exists"]; !ok {
		if n, ok := summary["count"].(float64); ok {
			summary["exists"] = n > 0
		}
	}
	return resp
}
