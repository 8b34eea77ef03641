/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// JobRuns counts scheduled and manual job executions by outcome.
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugboard",
		Name:      "job_runs_total",
		Help:      "Job executions by job name and outcome.",
	}, []string{"job", "status"})

	// Deliveries counts webhook posts by outcome.
	Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugboard",
		Name:      "deliveries_total",
		Help:      "Chat webhook deliveries by outcome.",
	}, []string{"status"})

	// UpstreamErrors counts collaborator fetch failures by source.
	UpstreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugboard",
		Name:      "upstream_errors_total",
		Help:      "Upstream fetch failures by source.",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(JobRuns, Deliveries, UpstreamErrors)
}
