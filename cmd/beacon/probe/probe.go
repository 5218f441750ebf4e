/*
 * Copyright (c) 2022, Gideon Williams gideon@gideonw.com
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package probe

import (
	"context"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/api"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Command = &cobra.Command{
	Use:   "probe",
	Short: "Time a series of requests against a beacon",

	Run: func(cmd *cobra.Command, args []string) {
		log := viper.Get("logger").(zerolog.Logger)

		host := viper.GetString("beacon.host")
		target, err := api.ParseTarget(host)
		if err != nil {
			log.Fatal().Err(err).Msg("error parsing URL")
		}
		client := api.NewRemoteClient(target, nil, viper.GetDuration("probe.timeout"))

		ctx := context.Background()
		timeIt(log, "info", func() error { _, err := client.Info(ctx); return err })
		timeIt(log, "overview", func() error { _, err := client.Overview(ctx); return err })
		timeIt(log, "filtering_terms", func() error { _, err := client.FilteringTerms(ctx); return err })

		count := viper.GetInt("probe.count")
		for _, endpoint := range []string{"individuals", "biosamples"} {
			timeIt(log, endpoint, func() error { return repeat(ctx, client, endpoint, count) })
		}
	},
}

func init() {
	// Flags for this command
	Command.Flags().Int("count", 10, "Number of count queries to send per endpoint")
	Command.Flags().Duration("timeout", 30*time.Second, "Timeout for each request")

	// Bind flags to viper
	viper.BindPFlag("probe.count", Command.Flags().Lookup("count"))
	viper.BindPFlag("probe.timeout", Command.Flags().Lookup("timeout"))
}

func timeIt(log zerolog.Logger, name string, f func() error) {
	t := time.Now()
	err := f()
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Str("dur", time.Since(t).String()).Str("name", name).Send()
}

func repeat(ctx context.Context, client api.Client, endpoint string, count int) error {
	var body beacon.RequestBody
	body.Query.RequestedGranularity = beacon.GranularityCount
	for i := 0; i < count; i++ {
		if _, err := client.Query(ctx, endpoint, body); err != nil {
			return err
		}
	}
	return nil
}
