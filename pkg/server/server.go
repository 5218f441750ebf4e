/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/network"
	"github.com/rs/zerolog"
)

// Beacon is the local beacon served by the HTTP API.
type Beacon interface {
	beacon.Beacon
	Builder() beacon.Builder
}

type Config struct {
	Port        int
	MetricsPort int
}

type Server struct {
	log     zerolog.Logger
	metrics MetricsStore

	beacon  Beacon
	network *network.Registry

	port        int
	metricsPort int
}

// New builds a server for b. registry may be nil, in which case the network
// endpoints answer not implemented.
func New(log zerolog.Logger, c Config, b Beacon, registry *network.Registry) *Server {
	s := &Server{
		log:         log,
		metrics:     NewMetricsStore(),
		beacon:      b,
		network:     registry,
		port:        c.Port,
		metricsPort: c.MetricsPort,
	}
	if registry != nil {
		registry.SetRecorder(s.metrics)
		s.metrics.RegisterCollector(NewNetworkCollector(registry))
	}
	return s
}

func (s *Server) Metrics() MetricsStore {
	return s.metrics
}

// ServeBeacon serves the Beacon API until ctx is done.
func (s *Server) ServeBeacon(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			s.log.Error().Err(err).Msg("error shutting down beacon api")
		}
	}()

	s.log.Info().Int("port", s.port).Msg("listening for beacon requests")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) ServeMetrics() {
	s.log.Info().Int("port", s.metricsPort).Msg("/metrics endpoint started")
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	if err := http.ListenAndServe(fmt.Sprintf(":%d", s.metricsPort), mux); err != nil {
		s.log.Error().Err(err).Msg("error serving metrics")
	}
}
