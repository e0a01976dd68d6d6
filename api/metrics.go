package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors, exposed on GET /metrics.
var (
	reportsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "commission",
		Name:      "reports_computed_total",
		Help:      "Reports computed from a stored upload.",
	})

	reportComputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "commission",
		Name:      "report_compute_seconds",
		Help:      "Time spent ingesting, calculating and overlaying one report.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	salesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "commission",
		Name:      "sales_ingested_total",
		Help:      "Sale records accepted from uploaded files.",
	})

	ingestFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "commission",
		Name:      "ingest_failures_total",
		Help:      "Uploaded files rejected as malformed.",
	})

	adjustmentsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "commission",
		Name:      "adjustments_saved_total",
		Help:      "Manual adjustments written by the report editor.",
	})
)
