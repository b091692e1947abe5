package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchside_client",
		Subsystem: "channel",
		Name:      "reconnects_total",
		Help:      "Reconnect attempts after a dropped or failed connection.",
	})
	eventsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchside_client",
		Subsystem: "channel",
		Name:      "events_received_total",
		Help:      "Inbound frames read off the transport.",
	})
)
