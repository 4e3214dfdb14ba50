// Package stream holds the poll-and-diff loop, the event snapshot cache, and
// the broadcast dispatcher that together drive score_update pushes.
package stream

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/oddsline/scorefeed/internal/feed"
	"github.com/oddsline/scorefeed/internal/metrics"
)

// Snapshot is the last observed state of one live event.
type Snapshot struct {
	Event      feed.Event
	LastSeenAt time.Time
}

// Cache maps event id to its last observed snapshot. It is owned by the
// poller goroutine; nothing else reads or writes it.
type Cache struct {
	clock     clockwork.Clock
	snapshots map[string]Snapshot
}

func NewCache(clock clockwork.Clock) *Cache {
	return &Cache{
		clock:     clock,
		snapshots: make(map[string]Snapshot),
	}
}

// Apply compares the polled events against the cached snapshots and returns
// the changed subset: events seen for the first time, or whose score or
// status differs from the cached value. Every polled event is then upserted
// with a fresh LastSeenAt.
func (c *Cache) Apply(events []feed.Event) []feed.Event {
	now := c.clock.Now()

	var changed []feed.Event
	for _, ev := range events {
		prev, ok := c.snapshots[ev.ID]
		if !ok || prev.Event.Score != ev.Score || prev.Event.Status != ev.Status {
			changed = append(changed, ev)
		}
		c.snapshots[ev.ID] = Snapshot{Event: ev, LastSeenAt: now}
	}

	metrics.TrackedEvents.Set(float64(len(c.snapshots)))
	return changed
}

// Evict drops every snapshot not seen within the window and returns how many
// were removed. An evicted event's next appearance counts as a first
// sighting.
func (c *Cache) Evict(window time.Duration) int {
	cutoff := c.clock.Now().Add(-window)

	evicted := 0
	for id, snap := range c.snapshots {
		if snap.LastSeenAt.Before(cutoff) {
			delete(c.snapshots, id)
			evicted++
		}
	}

	if evicted > 0 {
		metrics.SnapshotsEvicted.Add(float64(evicted))
		metrics.TrackedEvents.Set(float64(len(c.snapshots)))
	}
	return evicted
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int {
	return len(c.snapshots)
}
