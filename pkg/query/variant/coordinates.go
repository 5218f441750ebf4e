/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package variant

import "strings"

// OneBased converts a half-open 0-based Beacon coordinate into the 1-based
// inclusive coordinate the variant store indexes on.
func OneBased(pos int64) int64 {
	return pos + 1
}

// Chromosome strips the "chr" prefix some callers put on reference names.
func Chromosome(referenceName string) string {
	return strings.TrimPrefix(referenceName, "chr")
}
