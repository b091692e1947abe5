package pitchside

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	optimisticRollbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pitchside_client",
			Name:      "optimistic_rollbacks_total",
			Help:      "Optimistic mutations reverted after backend rejection.",
		},
	)

	fetchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pitchside_client",
			Name:      "fetch_failures_total",
			Help:      "Paged fetches that failed and left the cache untouched.",
		},
	)
)
