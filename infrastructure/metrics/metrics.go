package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Spin metrics
var (
	SpinsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slotbridge_spins_submitted_total",
			Help: "Spins accepted by the bridge and sent to the chain",
		},
	)

	SpinsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbridge_spins_resolved_total",
			Help: "Spins that reached a terminal status",
		},
		[]string{"status"},
	)

	SpinsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slotbridge_spins_rejected_total",
			Help: "Spin requests rejected before submission",
		},
	)
)

// Channel metrics
var (
	ChannelMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbridge_channel_messages_total",
			Help: "Envelopes sent and received on the session channel",
		},
		[]string{"direction", "type"},
	)

	ChannelIgnored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slotbridge_channel_ignored_total",
			Help: "Envelopes dropped for a foreign namespace",
		},
	)
)

// Event metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbridge_events_published_total",
			Help: "Domain events published on the session bus",
		},
		[]string{"type"},
	)
)
