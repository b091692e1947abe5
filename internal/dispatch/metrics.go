package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchside_client",
		Subsystem: "dispatch",
		Name:      "events_submitted_total",
		Help:      "Events accepted into the dispatch lane.",
	})

	eventsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchside_client",
		Subsystem: "dispatch",
		Name:      "events_failed_total",
		Help:      "Events whose handler returned an error or panicked.",
	})

	queueFullTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchside_client",
		Subsystem: "dispatch",
		Name:      "queue_full_total",
		Help:      "Submissions rejected by back-pressure.",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pitchside_client",
		Subsystem: "dispatch",
		Name:      "queue_depth",
		Help:      "Jobs currently waiting in the dispatch lane.",
	})
)
