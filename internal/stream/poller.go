package stream

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/oddsline/scorefeed/internal/feed"
	"github.com/oddsline/scorefeed/internal/metrics"
)

// Source is the upstream boundary of the poll loop: one call per tick
// returning the events currently considered live.
type Source interface {
	LiveEvents(ctx context.Context, sport string) ([]feed.Event, error)
}

// Alerter is notified about sustained feed outages and their recovery.
type Alerter interface {
	PollFailed(ctx context.Context, streak int, err error)
	Recovered(ctx context.Context, downFor time.Duration)
}

// Broadcaster receives each tick's changed-event set.
type Broadcaster interface {
	Dispatch(changed []feed.Event)
}

// Poller drives the poll-and-diff loop: fetch live events, diff against the
// snapshot cache, evict stale snapshots, and hand the changed set to the
// dispatcher.
type Poller struct {
	source     Source
	cache      *Cache
	dispatcher Broadcaster
	alerter    Alerter
	interval   time.Duration
	window     time.Duration
	clock      clockwork.Clock
	logger     *zap.Logger

	failures  int
	firstFail time.Time
}

func NewPoller(source Source, cache *Cache, dispatcher Broadcaster, alerter Alerter, interval, window time.Duration, clock clockwork.Clock, logger *zap.Logger) *Poller {
	return &Poller{
		source:     source,
		cache:      cache,
		dispatcher: dispatcher,
		alerter:    alerter,
		interval:   interval,
		window:     window,
		clock:      clock,
		logger:     logger,
	}
}

// Run starts the poll loop. Call in a goroutine.
// Returns when context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started",
		zap.Duration("interval", p.interval),
		zap.Duration("evictionWindow", p.window),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping")
			return

		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one poll-and-diff pass. A failed fetch skips the tick entirely:
// no cache mutation, no dispatch, and the ticker keeps running.
func (p *Poller) Tick(ctx context.Context) {
	events, err := p.source.LiveEvents(ctx, "")
	if err != nil {
		metrics.PollTicks.WithLabelValues("error").Inc()
		p.failures++
		if p.failures == 1 {
			p.firstFail = p.clock.Now()
		}
		p.logger.Error("live events poll failed",
			zap.Int("consecutiveFailures", p.failures),
			zap.Error(err),
		)
		if p.alerter != nil {
			p.alerter.PollFailed(ctx, p.failures, err)
		}
		return
	}

	if p.failures > 0 {
		if p.alerter != nil {
			p.alerter.Recovered(ctx, p.clock.Since(p.firstFail))
		}
		p.failures = 0
	}
	metrics.PollTicks.WithLabelValues("ok").Inc()

	changed := p.cache.Apply(events)
	evicted := p.cache.Evict(p.window)

	if evicted > 0 {
		p.logger.Debug("evicted stale snapshots", zap.Int("count", evicted))
	}

	if len(changed) > 0 {
		p.dispatcher.Dispatch(changed)
	}
}
