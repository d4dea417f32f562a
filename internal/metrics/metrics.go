// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSent counts messages accepted into rooms.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supportme_messages_sent_total",
		Help: "Number of chat messages stored.",
	})

	// MessagesCensored counts messages rewritten by the moderation screen.
	MessagesCensored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supportme_messages_censored_total",
		Help: "Number of chat messages censored by moderation.",
	})

	// ModerationFailures counts screening calls that errored (fail-open).
	ModerationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supportme_moderation_failures_total",
		Help: "Number of moderation API calls that failed.",
	})

	// JoinsRejected counts join attempts rejected by reason.
	JoinsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportme_joins_rejected_total",
		Help: "Number of room join attempts rejected.",
	}, []string{"reason"})

	// ActiveSubscriptions gauges open WebSocket message streams.
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "supportme_active_subscriptions",
		Help: "Number of live room subscriptions.",
	})

	// RoomsCreated counts rooms created since start.
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supportme_rooms_created_total",
		Help: "Number of rooms created.",
	})
)
