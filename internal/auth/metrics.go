package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var forcedLogoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "console_forced_logouts_total",
		Help: "Total number of sessions torn down after a backend authorization failure",
	},
)
