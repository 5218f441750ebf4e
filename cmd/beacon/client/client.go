/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 * Copyright (c) 2022-2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package client

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/api"
	"github.com/bento-platform/bento-beacon-sub000/pkg/network"
	"github.com/bento-platform/bento-beacon-sub000/pkg/repl"
	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log zerolog.Logger

var (
	Command = &cobra.Command{
		Use:   "client",
		Short: "Interactive terminal for querying a beacon",

		Run: func(cmd *cobra.Command, args []string) {
			log := viper.Get("logger").(zerolog.Logger)
			output := viper.GetString("beacon.output")
			if len(filterStringSlice([]string{"csv", "text", "json"}, output)) != 1 {
				log.Fatal().Msg("unsupported output format")
			}

			host := viper.GetString("beacon.host")
			target, err := api.ParseTarget(host)
			if err != nil {
				log.Fatal().Err(err).Msg("error parsing URL")
			}

			client := api.NewRemoteClient(target, nil, viper.GetDuration("beacon.timeout"))
			if token := viper.GetString("beacon.token"); token != "" {
				client.Authorization = "Bearer " + token
			}

			readlinePrompt(client, output)
		},
	}
)

func init() {
	log = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).
		With().
		Timestamp().
		Caller().
		Logger()

	// Flags for this command
	Command.Flags().StringP("output", "o", "text", "Output format of results [csv, json, text]")
	Command.Flags().StringP("token", "t", "", "Bearer token sent with every request")
	Command.Flags().Duration("timeout", 2*time.Minute, "Timeout for each request")

	// Bind flags to viper
	viper.BindPFlag("beacon.output", Command.Flags().Lookup("output"))
	viper.BindPFlag("beacon.token", Command.Flags().Lookup("token"))
	viper.BindPFlag("beacon.timeout", Command.Flags().Lookup("timeout"))
}

func filterStringSlice(s []string, prefix string) []string {
	retList := []string{}
	for i := range s {
		if strings.HasPrefix(s[i], prefix) {
			retList = append(retList, s[i])
		}
	}
	return retList
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// listBeacons completes @beaconId from the network, when the beacon has one.
func listBeacons(c *api.RemoteClient) func(string) []string {
	var snap network.Snapshot
	if err := c.Get(context.Background(), "/network", &snap); err != nil {
		return func(string) []string { return []string{} }
	}
	ids := make([]string, 0, len(snap.Beacons))
	for _, b := range snap.Beacons {
		ids = append(ids, "@"+b.ID)
	}
	return func(line string) []string {
		return ids
	}
}

func endpointItems(c *api.RemoteClient) []readline.PrefixCompleterInterface {
	ret := []readline.PrefixCompleterInterface{}
	for _, e := range []string{"individuals", "biosamples", "g_variants"} {
		ret = append(ret, readline.PcItem(e, readline.PcItemDynamic(listBeacons(c))))
	}
	return ret
}

func readlinePrompt(c *api.RemoteClient, output string) {
	// Configure the completer
	completer := readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("info"),
		readline.PcItem("overview"),
		readline.PcItem("terms", readline.PcItem("union"), readline.PcItem("intersection")),
		readline.PcItem("network"),
		readline.PcItem("query", endpointItems(c)...),
		readline.PcItem("exit"),
	)

	// Setup the readline executor
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31m>\033[0m ",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	// Configure output writer
	writer := repl.NewOutputWriter(os.Stdout, output)

	// Handle input
	for {
		ln := rl.Line()
		if ln.CanContinue() {
			continue
		} else if ln.CanBreak() {
			break
		}
		line := strings.TrimSpace(ln.Line)
		if line == "" {
			continue
		}

		if strings.ToUpper(line) == "HELP" {
			fmt.Println("usage:")
			fmt.Println(completer.Tree("    "))
			fmt.Println("query <endpoint> [@beaconId] [boolean|count|record] [param=value ...] [filter ...]")
			continue
		}
		if strings.ToUpper(line) == "EXIT" {
			return
		}

		cmd, err := repl.ParseREPLCommand(line)
		if err != nil {
			log.Error().Err(err).Send()
			continue
		}

		v, err := run(context.Background(), c, cmd)
		if err != nil {
			log.Error().Err(err).Send()
			continue
		}
		if err := writer.Write(v); err != nil {
			log.Error().Err(err).Msg("unable to write output")
		}
	}
}

func run(ctx context.Context, c *api.RemoteClient, cmd repl.Command) (repl.Printable, error) {
	switch cmd.Name {
	case repl.CommandInfo:
		info, err := c.Info(ctx)
		return repl.InfoTable(info), err
	case repl.CommandOverview:
		o, err := c.Overview(ctx)
		return repl.OverviewTable(o), err
	case repl.CommandNetwork:
		var snap network.Snapshot
		err := c.Get(ctx, "/network", &snap)
		return repl.NetworkTable(snap), err
	case repl.CommandTerms:
		if len(cmd.Args) == 0 {
			entries, err := c.FilteringTerms(ctx)
			return repl.TermsTable(entries), err
		}
		var snap network.Snapshot
		if err := c.Get(ctx, "/network", &snap); err != nil {
			return nil, err
		}
		switch cmd.Args[0] {
		case "union":
			return repl.TermsTable(snap.FiltersUnion), nil
		case "intersection":
			return repl.TermsTable(snap.FiltersIntersection), nil
		}
		return nil, errors.Errorf("terms takes union or intersection, not %q", cmd.Args[0])
	case repl.CommandQuery:
		endpoint := cmd.Endpoint
		if cmd.Beacon != "" {
			endpoint = "network/beacons/" + cmd.Beacon + "/" + cmd.Endpoint
		}
		resp, err := c.Query(ctx, endpoint, cmd.Body)
		return repl.ResponseTable(resp), err
	}
	return nil, errors.Errorf("unknown command %s", cmd.Name)
}
