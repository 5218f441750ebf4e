/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"github.com/bento-platform/bento-beacon-sub000/cmd/beacon"
)

func main() {
	beacon.Execute()
}
