// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. Create one
// instance per process; registration uses the default registry.
type Metrics struct {
	// Feed metrics
	EventsDelivered     *prometheus.CounterVec // by direction
	TicksDelivered      prometheus.Counter
	DedupeHits          prometheus.Counter
	ActiveSubscriptions prometheus.Gauge
	PollCycles          *prometheus.CounterVec // by result

	// Decode metrics
	DecodeNulls   prometheus.Counter
	DecodeErrors  prometheus.Counter
	DecodeLatency prometheus.Histogram

	// Relay metrics
	EndpointAttempts *prometheus.CounterVec // by outcome
	RelayExhaustions prometheus.Counter
	RelayDegraded    prometheus.Gauge

	// Pricing metrics
	PriceRefreshes *prometheus.CounterVec // by result

	// Risk metrics
	RiskAnalyses *prometheus.CounterVec // by risk level
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_vortex"
	}

	return &Metrics{
		EventsDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_delivered_total",
			Help:      "Total number of classified swaps delivered to consumers",
		}, []string{"direction"}),
		TicksDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_delivered_total",
			Help:      "Total number of chart ticks delivered to consumers",
		}),
		DedupeHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "dedupe_hits_total",
			Help:      "Total number of signatures dropped as already processed",
		}),
		ActiveSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "active_subscriptions",
			Help:      "Number of live feed subscriptions currently streaming",
		}),
		PollCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "poll_cycles_total",
			Help:      "Total number of poll fallback cycles by result",
		}, []string{"result"}),

		DecodeNulls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "not_applicable_total",
			Help:      "Total number of transactions decoded to no swap",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "errors_total",
			Help:      "Total number of decode infrastructure failures",
		}),
		DecodeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "latency_seconds",
			Help:      "Swap decode latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		EndpointAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "endpoint_attempts_total",
			Help:      "Total number of endpoint attempts by outcome",
		}, []string{"outcome"}),
		RelayExhaustions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "exhaustions_total",
			Help:      "Total number of calls that exhausted every endpoint",
		}),
		RelayDegraded: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "degraded",
			Help:      "Whether the relay is currently degraded (1) or healthy (0)",
		}),

		PriceRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "refreshes_total",
			Help:      "Total number of reference price refreshes by result",
		}, []string{"result"}),

		RiskAnalyses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "analyses_total",
			Help:      "Total number of bundle risk analyses by level",
		}, []string{"level"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
