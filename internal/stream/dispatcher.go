package stream

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/oddsline/scorefeed/internal/feed"
	"github.com/oddsline/scorefeed/internal/metrics"
	"github.com/oddsline/scorefeed/internal/ws"
)

// Dispatcher pushes changed-event sets to every matching connection, holding
// a minimum interval between dispatches that produce output. A dispatch
// arriving inside the interval is dropped, not queued.
type Dispatcher struct {
	registry    *ws.Registry
	minInterval time.Duration
	clock       clockwork.Clock
	logger      *zap.Logger

	// Written only from the poller goroutine driving Dispatch.
	lastDispatch time.Time
}

func NewDispatcher(registry *ws.Registry, minInterval time.Duration, clock clockwork.Clock, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		minInterval: minInterval,
		clock:       clock,
		logger:      logger,
	}
}

// Dispatch sends one score_update frame per connection whose subscription
// matches part of the changed set. Delivery is best-effort per connection.
func (d *Dispatcher) Dispatch(changed []feed.Event) {
	if len(changed) == 0 {
		return
	}

	now := d.clock.Now()
	if !d.lastDispatch.IsZero() && now.Sub(d.lastDispatch) < d.minInterval {
		metrics.Dispatches.WithLabelValues("suppressed").Inc()
		d.logger.Debug("dispatch suppressed by broadcast interval",
			zap.Int("changed", len(changed)),
			zap.Duration("sinceLast", now.Sub(d.lastDispatch)),
		)
		return
	}

	sent := 0
	for _, client := range d.registry.Connections() {
		candidates := client.FilterEvents(changed)
		if len(candidates) == 0 {
			continue
		}
		client.TrySend(ws.ScoreUpdateFrame(now, candidates))
		sent++
	}

	// Only a dispatch that produced output starts the interval; one that
	// matched no connection leaves the next changed set unthrottled.
	if sent == 0 {
		return
	}
	d.lastDispatch = now

	metrics.Dispatches.WithLabelValues("sent").Inc()
	metrics.UpdatesSent.Add(float64(sent))

	d.logger.Debug("dispatched score updates",
		zap.Int("changed", len(changed)),
		zap.Int("connections", sent),
	)
}
