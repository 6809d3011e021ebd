package listing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var staleResponsesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "console_listing_stale_responses_total",
		Help: "Total number of listing fetch results discarded because a later fetch already delivered",
	},
)
