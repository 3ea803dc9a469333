// Package metrics holds the service's prometheus collectors. They live on a
// dedicated registry so tests and embedders never collide with the default one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "airdrop"

// Fetch outcomes.
const (
	FetchHit     = "cache_hit"
	FetchOK      = "ok"
	FetchFailed  = "failed"
	FetchInvalid = "invalid"
)

var (
	Registry = prometheus.NewRegistry()

	DocumentsAssembled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_assembled_total",
		Help:      "Balance maps assembled successfully.",
	})
	AssemblyFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assembly_failures_total",
		Help:      "Rejected or failed balance map assemblies by error kind.",
	}, []string{"kind"})
	AssembledLeaves = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "assembled_leaves",
		Help:      "Number of allocations per assembled balance map.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
	DocumentFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_fetches_total",
		Help:      "Document retrievals by outcome.",
	}, []string{"outcome"})
	LookupDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "lookup_duration_seconds",
		Help:      "Claim lookup latency by mode.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})
	EnrichmentFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrichment_failures_total",
		Help:      "Claim records returned without ledger metadata because enrichment failed.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		DocumentsAssembled,
		AssemblyFailures,
		AssembledLeaves,
		DocumentFetches,
		LookupDuration,
		EnrichmentFailures,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
