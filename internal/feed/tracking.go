package feed

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Tracker serves on-demand live-event and event-detail lookups. It keeps a
// short-lived copy of the live list so bursts of client requests between two
// poll ticks do not each hit the upstream feed.
type Tracker struct {
	client Client
	ttl    time.Duration
	clock  clockwork.Clock
	logger *zap.Logger

	group singleflight.Group

	mu        sync.RWMutex
	events    []Event
	fetchedAt time.Time
}

func NewTracker(client Client, ttl time.Duration, clock clockwork.Clock, logger *zap.Logger) *Tracker {
	return &Tracker{
		client: client,
		ttl:    ttl,
		clock:  clock,
		logger: logger,
	}
}

// GetLiveEvents returns the current live events, optionally restricted to one
// sport slug. Sport-filtered requests bypass the cache and go straight to the
// feed; unfiltered requests share a cached list within the TTL.
func (t *Tracker) GetLiveEvents(ctx context.Context, sport string) ([]Event, error) {
	if sport != "" {
		return t.client.LiveEvents(ctx, sport)
	}

	t.mu.RLock()
	if t.events != nil && t.clock.Since(t.fetchedAt) < t.ttl {
		events := t.events
		t.mu.RUnlock()
		return events, nil
	}
	t.mu.RUnlock()

	// Collapse concurrent refreshes into a single upstream call.
	v, err, _ := t.group.Do("live", func() (any, error) {
		events, err := t.client.LiveEvents(ctx, "")
		if err != nil {
			return nil, err
		}

		t.mu.Lock()
		t.events = events
		t.fetchedAt = t.clock.Now()
		t.mu.Unlock()

		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Event), nil
}

// GetEventByID looks up one event by id, serving from the cached live list
// when possible and falling back to the feed's detail endpoint.
func (t *Tracker) GetEventByID(ctx context.Context, id string) (*Event, error) {
	t.mu.RLock()
	if t.events != nil && t.clock.Since(t.fetchedAt) < t.ttl {
		for i := range t.events {
			if t.events[i].ID == id {
				ev := t.events[i]
				t.mu.RUnlock()
				return &ev, nil
			}
		}
	}
	t.mu.RUnlock()

	ev, err := t.client.EventByID(ctx, id)
	if err != nil {
		t.logger.Debug("event detail lookup failed",
			zap.String("eventID", id),
			zap.Error(err),
		)
		return nil, err
	}
	return ev, nil
}
