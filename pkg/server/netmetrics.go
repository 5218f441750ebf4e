/*
 * Copyright (c) 2022, Gideon Williams gideon@gideonw.com
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"context"

	"github.com/bento-platform/bento-beacon-sub000/pkg/network"
	"github.com/prometheus/client_golang/prometheus"
)

// networkCollector reports the last cached network snapshot. It never
// triggers a rebuild.
type networkCollector struct {
	registry *network.Registry

	nodes *prometheus.Desc
	terms *prometheus.Desc
}

func NewNetworkCollector(r *network.Registry) prometheus.Collector {
	return &networkCollector{
		registry: r,
		nodes: prometheus.NewDesc(
			"beacon_network_nodes",
			"Number of beacons in the last resolved network.",
			nil, nil,
		),
		terms: prometheus.NewDesc(
			"beacon_network_filtering_terms",
			"Number of merged filtering terms in the last resolved network.",
			[]string{"merge"}, nil,
		),
	}
}

// Describe implements Collector.
func (c *networkCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodes
	ch <- c.terms
}

// Collect implements Collector.
func (c *networkCollector) Collect(ch chan<- prometheus.Metric) {
	s, ok := c.registry.Cached(context.Background())
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(len(s.Beacons)))
	ch <- prometheus.MustNewConstMetric(c.terms, prometheus.GaugeValue, float64(len(s.FiltersUnion)), "union")
	ch <- prometheus.MustNewConstMetric(c.terms, prometheus.GaugeValue, float64(len(s.FiltersIntersection)), "intersection")
}
