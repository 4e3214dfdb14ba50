package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebSocket metrics
var (
	// ConnectedClients tracks the number of currently registered connections
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scorefeed_connected_clients",
			Help: "Number of currently connected WebSocket clients",
		},
	)

	// FramesReceived tracks inbound client frames by message type
	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorefeed_frames_received_total",
			Help: "Inbound WebSocket frames by message type",
		},
		[]string{"type"},
	)

	// FramesDropped tracks outbound frames dropped because a client send buffer was full
	FramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scorefeed_frames_dropped_total",
			Help: "Outbound frames dropped due to a full client send buffer",
		},
	)
)

// Poll loop metrics
var (
	// PollTicks tracks poll-and-diff ticks by outcome (ok/error)
	PollTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorefeed_poll_ticks_total",
			Help: "Poll-and-diff ticks by outcome",
		},
		[]string{"outcome"},
	)

	// SnapshotsEvicted tracks event snapshots evicted after the inactivity window
	SnapshotsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scorefeed_snapshots_evicted_total",
			Help: "Event snapshots evicted after the inactivity window",
		},
	)

	// TrackedEvents tracks the current snapshot cache size
	TrackedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scorefeed_tracked_events",
			Help: "Event snapshots currently held in the cache",
		},
	)
)

// Dispatcher metrics
var (
	// Dispatches tracks dispatch attempts by outcome (sent/suppressed)
	Dispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorefeed_dispatches_total",
			Help: "Broadcast dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)

	// UpdatesSent tracks score_update frames pushed to clients
	UpdatesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scorefeed_score_updates_sent_total",
			Help: "score_update frames pushed to clients",
		},
	)
)
