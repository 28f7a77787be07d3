// Package telemetry exposes the Prometheus metrics nopea's orchestrator
// emits around each deploy, following the teacher's package-level
// promauto registration pattern (telemetry/flow-ingest/internal/metrics)
// generalized from flow-ingest counters to deploy-lifecycle counters.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeployStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nopea_deploy_started_total",
		Help: "Total deploys started, by strategy.",
	}, []string{"strategy"})

	DeployOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nopea_deploy_outcomes_total",
		Help: "Total deploys by terminal status.",
	}, []string{"status", "strategy"})

	DeployDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nopea_deploy_duration_seconds",
		Help:    "Deploy duration in seconds, by terminal status.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"status"})

	VerificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nopea_verification_outcomes_total",
		Help: "Total post-deploy drift verification outcomes.",
	}, []string{"outcome"})

	AgentQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nopea_agent_queue_depth",
		Help: "Current queue depth of a service's agent.",
	}, []string{"service"})

	WorkerCrashes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nopea_agent_worker_crashes_total",
		Help: "Total agent worker crashes, by service.",
	}, []string{"service"})

	MemoryNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nopea_memory_graph_nodes",
		Help: "Current number of nodes in the knowledge graph.",
	})

	MemoryRelationships = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nopea_memory_graph_relationships",
		Help: "Current number of relationships in the knowledge graph.",
	})
)
