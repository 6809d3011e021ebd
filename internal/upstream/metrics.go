package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_upstream_auth_failures_total",
		Help: "Total number of 401/403 responses received from the commerce backend",
	},
	[]string{"status"},
)
