package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsNormalized counts canonical records produced, by kind.
	RecordsNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusfeed_records_normalized_total",
		Help: "Total normalized canonical records produced.",
	}, []string{"kind"})

	// Ticks counts scheduled poll executions by source and outcome.
	Ticks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusfeed_ticks_total",
		Help: "Total poll target ticks by outcome.",
	}, []string{"source", "outcome"})

	// SinkAppends counts persistence appends by sink format and outcome.
	SinkAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusfeed_sink_appends_total",
		Help: "Total sink append attempts by outcome.",
	}, []string{"outcome"})

	// FetchLatency observes vendor fetch latency by source.
	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexusfeed_fetch_latency_seconds",
		Help:    "Vendor fetch latency by source.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
)
