package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var serverLogoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ascents",
		Subsystem: "client",
		Name:      "server_logouts_total",
		Help:      "Server logouts fired when a signed-in session ended.",
	},
	[]string{"outcome"},
)
