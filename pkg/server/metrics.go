/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsStore interface {
	Registry() *prometheus.Registry
	RegisterCollector(c prometheus.Collector)
	Handler() http.Handler

	// Collection
	IncRequests(endpoint, granularity string)
	ObserveResponseNS(endpoint string, t int64)
	// PeerCall and Censored let the store observe the network registry and
	// the query pipeline.
	PeerCall(peer string, err error)
	Censored(endpoint string)
}

type metricsStore struct {
	registry   *prometheus.Registry
	Requests   *prometheus.CounterVec
	ResponseNS *prometheus.HistogramVec
	PeerCalls  *prometheus.CounterVec
	Censorship *prometheus.CounterVec
}

var (
	EndpointLabel    = "endpoint"
	GranularityLabel = "granularity"
	PeerLabel        = "peer"
	OutcomeLabel     = "outcome"
)

func NewMetricsStore() MetricsStore {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.MetricsAll),
		),
	)

	// Backend searches dominate; variant searches can take tens of seconds.
	buckets := prometheus.ExponentialBuckets(float64(5*time.Millisecond), 2, 16)

	factory := promauto.With(reg)
	return &metricsStore{
		registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_requests",
			Help: "Request counts per beacon endpoint and requested granularity",
		}, []string{EndpointLabel, GranularityLabel}),
		ResponseNS: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_response_ns",
			Help:    "Response times of beacon endpoints",
			Buckets: buckets,
		}, []string{EndpointLabel}),
		PeerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_peer_calls",
			Help: "Calls made to network peers by outcome",
		}, []string{PeerLabel, OutcomeLabel}),
		Censorship: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_censored_total",
			Help: "Responses whose count was censored",
		}, []string{EndpointLabel}),
	}
}

func (ms *metricsStore) Registry() *prometheus.Registry {
	return ms.registry
}

func (ms *metricsStore) RegisterCollector(c prometheus.Collector) {
	ms.registry.MustRegister(c)
}

func (ms *metricsStore) Handler() http.Handler {
	return promhttp.HandlerFor(ms.Registry(), promhttp.HandlerOpts{Registry: ms.Registry()})
}

func (ms *metricsStore) IncRequests(endpoint, granularity string) {
	ms.Requests.With(prometheus.Labels{EndpointLabel: endpoint, GranularityLabel: granularity}).Inc()
}

func (ms *metricsStore) ObserveResponseNS(endpoint string, t int64) {
	ms.ResponseNS.
		With(prometheus.Labels{EndpointLabel: endpoint}).
		Observe(float64(t))
}

func (ms *metricsStore) PeerCall(peer string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ms.PeerCalls.With(prometheus.Labels{PeerLabel: peer, OutcomeLabel: outcome}).Inc()
}

func (ms *metricsStore) Censored(endpoint string) {
	ms.Censorship.With(prometheus.Labels{EndpointLabel: endpoint}).Inc()
}
