package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ascents",
			Subsystem: "client",
			Name:      "calls_total",
			Help:      "Calls scheduled on the worker pool, by result shape.",
		},
		[]string{"shape"},
	)

	deduplicatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ascents",
			Subsystem: "client",
			Name:      "deduplicated_total",
			Help:      "Submissions that joined an equivalent in-flight call.",
		},
	)

	forceLogoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ascents",
			Subsystem: "client",
			Name:      "force_logouts_total",
			Help:      "Authenticated sessions ended by a 401 response.",
		},
	)

	pendingCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ascents",
			Subsystem: "client",
			Name:      "pending_calls",
			Help:      "Calls currently in flight.",
		},
	)
)
