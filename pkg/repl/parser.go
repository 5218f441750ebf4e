/*
 * Copyright (c) 2022, Gideon Williams gideon@gideonw.com
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package repl

import (
	"net/url"
	"strings"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/pkg/errors"
)

const (
	CommandInfo     = "INFO"
	CommandOverview = "OVERVIEW"
	CommandTerms    = "TERMS"
	CommandNetwork  = "NETWORK"
	CommandQuery    = "QUERY"
)

// Command is one parsed line of input.
type Command struct {
	Name string
	// Args holds the words after the command name, except for queries.
	Args []string

	// Query only.
	Endpoint string
	// Beacon names a network member to send the query to; empty means the
	// beacon the client is connected to.
	Beacon string
	Body   beacon.RequestBody
}

var queryParams = map[string]bool{
	"requestedGranularity": true,
	"skip":                 true,
	"limit":                true,
	"project":              true,
	"datasets":             true,
	"referenceName":        true,
	"start":                true,
	"end":                  true,
	"referenceBases":       true,
	"alternateBases":       true,
	"assemblyId":           true,
	"geneId":               true,
}

// ParseREPLCommand parses input from the command line
//
// A query reads
//
//	query <endpoint> [@beaconId] [boolean|count|record] [param=value ...] [filter ...]
//
// where params are the GET parameters of the query endpoints and any other
// word is a filter term such as sex=FEMALE or phenopacket.subject.age>=30.
func ParseREPLCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.Errorf("empty command")
	}

	cmd := Command{Name: strings.ToUpper(fields[0])}
	switch cmd.Name {
	case CommandInfo, CommandOverview, CommandTerms, CommandNetwork:
		cmd.Args = fields[1:]
		return cmd, nil
	case CommandQuery:
	default:
		return Command{}, errors.Errorf("unknown command %q", fields[0])
	}

	if len(fields) < 2 {
		return Command{}, errors.Errorf("query needs an endpoint")
	}
	cmd.Endpoint = fields[1]

	values := url.Values{}
	var filters []string
	for _, word := range fields[2:] {
		switch {
		case strings.HasPrefix(word, "@"):
			cmd.Beacon = word[1:]
		case beacon.Granularity(word).Valid():
			values.Set("requestedGranularity", word)
		default:
			key, value, ok := strings.Cut(word, "=")
			if ok && queryParams[key] {
				values.Set(key, value)
				continue
			}
			filters = append(filters, word)
		}
	}
	if len(filters) > 0 {
		values.Set("filters", strings.Join(filters, ","))
	}

	body, err := beacon.FromValues(values)
	if err != nil {
		return Command{}, err
	}
	cmd.Body = body
	return cmd, nil
}
