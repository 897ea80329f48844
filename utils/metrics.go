// elvotu: a tool for aggregating viral contigs into vOTUs.
// Copyright (c) 2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elvotu/blob/master/LICENSE.txt>.

package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects summary statistics of an elvotu run. They can be
// written to a file in the Prometheus text exposition format, for
// example for the node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	SimilarityRecords *prometheus.CounterVec
	Edges             prometheus.Gauge
	UnknownEdges      prometheus.Gauge
	Sequences         prometheus.Gauge
	Clusters          prometheus.Gauge
	Singletons        prometheus.Gauge
	Samples           prometheus.Gauge
	MatrixRows        prometheus.Gauge
	NonZeroCells      prometheus.Gauge
	PhaseSeconds      *prometheus.GaugeVec
}

// NewMetrics creates a fresh set of metrics with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.SimilarityRecords = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "elvotu_similarity_records_total",
			Help: "Similarity records read, by outcome",
		},
		[]string{"outcome"}, // accepted, rejected, self, malformed
	)
	m.Edges = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "elvotu_edges",
		Help: "Distinct qualifying edges after filtering",
	})
	m.UnknownEdges = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "elvotu_unknown_edges",
		Help: "Edges skipped because they name unknown sequences",
	})
	m.Sequences = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "elvotu_sequences",
		Help: "Sequences in the cluster graph",
	})
	m.Clusters = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "elvotu_clusters",
		Help: "Number of vOTUs",
	})
	m.Singletons = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "elvotu_singletons",
		Help: "Sequences without any qualifying edge",
	})
	m.Samples = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "elvotu_samples",
		Help: "Samples in the abundance matrix",
	})
	m.MatrixRows = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "elvotu_matrix_rows",
		Help: "Representatives in the abundance matrix",
	})
	m.NonZeroCells = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "elvotu_matrix_nonzero_cells",
		Help: "Abundance matrix cells with a value other than zero",
	})
	m.PhaseSeconds = promauto.With(reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "elvotu_phase_seconds",
			Help: "Wall clock time per phase",
		},
		[]string{"phase"},
	)
	return m
}

// WriteTextfile writes all metrics to the given file.
func (m *Metrics) WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.registry)
}
