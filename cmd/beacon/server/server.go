/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/pkg/authz"
	"github.com/bento-platform/bento-beacon-sub000/pkg/backend"
	"github.com/bento-platform/bento-beacon-sub000/pkg/backend/memory"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/network"
	"github.com/bento-platform/bento-beacon-sub000/pkg/search"
	"github.com/bento-platform/bento-beacon-sub000/pkg/server"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Command = &cobra.Command{
	Use:   "server",
	Short: "Serve the Beacon API for this node and its network",
}

func run(cmd *cobra.Command, args []string) {
	logger := viper.Get("logger").(zerolog.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := buildPipeline(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to configure backends")
	}

	var registry *network.Registry
	if viper.GetBool("network.enabled") {
		registry = buildRegistry(logger, pipeline)
	}

	srv := server.New(logger, server.Config{
		Port:        viper.GetInt("beacon.port"),
		MetricsPort: viper.GetInt("beacon.metrics-port"),
	}, pipeline, registry)
	pipeline.SetObserver(srv.Metrics())

	if registry != nil {
		go func() {
			if _, err := registry.Build(ctx); err != nil {
				logger.Warn().Err(err).Msg("initial network resolution failed")
			}
		}()
	}

	// Serve the metrics endpoint
	go srv.ServeMetrics()

	// Serve the beacon
	if err := srv.ServeBeacon(ctx); err != nil {
		logger.Fatal().Err(err).Msg("error serving beacon api")
	}
}

func buildInfo() beacon.Info {
	return beacon.Info{
		ID:          viper.GetString("beacon.id"),
		Name:        viper.GetString("beacon.name"),
		APIVersion:  viper.GetString("beacon.api-version"),
		Environment: viper.GetString("beacon.environment"),
		Description: viper.GetString("beacon.description"),
		Organization: beacon.Organization{
			ID:   viper.GetString("beacon.organization.id"),
			Name: viper.GetString("beacon.organization.name"),
		},
		Version: Command.Version,
	}
}

func serviceClient() *http.Client {
	return backend.NewHTTPClient(backend.OAuth{
		ClientID:     viper.GetString("oauth.client-id"),
		ClientSecret: viper.GetString("oauth.client-secret"),
		TokenURL:     viper.GetString("oauth.token-url"),
	})
}

// buildPipeline wires the query pipeline to either the configured services or,
// when fixtures is set, an in-memory store.
func buildPipeline(logger zerolog.Logger) (*search.Pipeline, error) {
	c := search.Config{
		Info:               buildInfo(),
		Facets:             search.DefaultFacets(),
		Assemblies:         viper.GetStringSlice("gohan.assemblies"),
		DefaultGranularity: beacon.Granularity(viper.GetString("beacon.default-granularity")),
		RestrictAnonymous:  viper.GetBool("censorship.restrict-anonymous"),
	}

	client := serviceClient()
	timeout := viper.GetDuration("network.default-timeout")

	var oracle authz.Oracle = authz.AllowAll{}
	if viper.GetBool("authz.enabled") {
		// The policy service evaluates the caller's own token, so it must not
		// go through the service token client.
		oracle = backend.NewPolicyService(viper.GetString("authz.url"), backend.NewTransport(&http.Client{}, "authorization service", timeout))
	} else {
		logger.Warn().Msg("authorization is disabled, every caller has full access")
	}

	if path := viper.GetString("fixtures"); path != "" {
		store, err := memory.Load(path)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("fixtures", path).Msg("serving from in-memory fixtures")
		return search.New(logger, c, store, store, oracle), nil
	}

	katsu := backend.NewKatsu(viper.GetString("katsu.url"), backend.NewTransport(client, "metadata service", timeout))

	var variants search.Variants
	if u := viper.GetString("gohan.url"); u != "" {
		variants = backend.NewGohan(u, backend.NewTransport(client, "variant service", viper.GetDuration("network.variants-timeout")))
	}
	return search.New(logger, c, katsu, variants, oracle), nil
}

func buildRegistry(logger zerolog.Logger, host beacon.Beacon) *network.Registry {
	ttl := viper.GetDuration("network.cache-ttl")

	var cache network.Cache = network.NewMemoryCache(ttl)
	if viper.GetString("network.cache") == "redis" {
		rdb := redis.NewClient(&redis.Options{Addr: viper.GetString("network.redis-addr")})
		cache = network.NewRedisCache(rdb, "", ttl)
	}

	// Peers are other organisations; they never see this node's service token.
	peerClient := &http.Client{Timeout: 5 * time.Minute}

	return network.NewRegistry(logger, network.Config{
		HostURL:         viper.GetString("beacon.host-url"),
		Peers:           viper.GetStringSlice("network.peers"),
		Timeout:         viper.GetDuration("network.default-timeout"),
		VariantsTimeout: viper.GetDuration("network.variants-timeout"),
	}, host, peerClient, cache)
}

func init() {
	Command.Run = run

	// Flags for this command
	Command.Flags().IntP("port", "p", 5000, "Beacon API port")
	Command.Flags().Int("metrics-port", 2112, "Set the port for /metrics")
	Command.Flags().String("fixtures", "", "Serve from a JSON fixtures file instead of the metadata and variant services")
	Command.Flags().String("katsu", "", "Metadata service URL")
	Command.Flags().String("gohan", "", "Variant service URL")
	Command.Flags().Bool("network", false, "Serve the network endpoints")

	// Bind flags to viper
	viper.BindPFlag("beacon.port", Command.Flags().Lookup("port"))
	viper.BindPFlag("beacon.metrics-port", Command.Flags().Lookup("metrics-port"))
	viper.BindPFlag("fixtures", Command.Flags().Lookup("fixtures"))
	viper.BindPFlag("katsu.url", Command.Flags().Lookup("katsu"))
	viper.BindPFlag("gohan.url", Command.Flags().Lookup("gohan"))
	viper.BindPFlag("network.enabled", Command.Flags().Lookup("network"))
}
