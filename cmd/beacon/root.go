/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package beacon

import (
	"fmt"
	"os"

	"github.com/bento-platform/bento-beacon-sub000/cmd/beacon/client"
	"github.com/bento-platform/bento-beacon-sub000/cmd/beacon/probe"
	"github.com/bento-platform/bento-beacon-sub000/cmd/beacon/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Version        = "develop"
	CommitHash     = "n/a"
	BuildTimestamp = "n/a"

	rootCmd = &cobra.Command{
		Use:   "beacon",
		Short: "Beacon v2 gateway for Bento metadata and variant services",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging()
			initLogLevel()
			initConfig(cmd.Root().PersistentFlags().Lookup("config").Value.String())
			initLogLevel()
			traceConfig()
		},
		Version: Version,
	}
)

func init() {
	// Configure the root binary options
	rootCmd.PersistentFlags().CountP("verbose", "v", "-v for debug logs (-vv for trace)")
	rootCmd.PersistentFlags().Bool("local", false, "Configures the logger to print readable logs")
	rootCmd.PersistentFlags().StringP("host", "H", "http://localhost:5000", "Beacon API URL the client commands talk to")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the beacon config file (default ./config.toml)")

	// Bind viper config to the root flags
	viper.BindPFlag("beacon.local", rootCmd.PersistentFlags().Lookup("local"))
	viper.BindPFlag("beacon.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("beacon.host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.SetVersionTemplate(fmt.Sprintf("beacon version: %s git_commit: %s build_time: %s\n", Version, CommitHash, BuildTimestamp))

	// Bind viper flags to ENV variables
	viper.AutomaticEnv()

	// Register commands on the root binary command
	server.Command.Version = rootCmd.Version
	client.Command.Version = rootCmd.Version
	probe.Command.Version = rootCmd.Version
	rootCmd.AddCommand(server.Command)
	rootCmd.AddCommand(client.Command)
	rootCmd.AddCommand(probe.Command)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("root command failed")
		os.Exit(1)
	}
}
