package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type countingClient struct {
	events    []Event
	liveCalls int
	byIDCalls int
}

func (c *countingClient) LiveEvents(ctx context.Context, sport string) ([]Event, error) {
	c.liveCalls++
	if sport != "" {
		var filtered []Event
		for _, ev := range c.events {
			if ev.SportID == 1 && sport == "football" {
				filtered = append(filtered, ev)
			}
		}
		return filtered, nil
	}
	return c.events, nil
}

func (c *countingClient) EventByID(ctx context.Context, id string) (*Event, error) {
	c.byIDCalls++
	for i := range c.events {
		if c.events[i].ID == id {
			return &c.events[i], nil
		}
	}
	return nil, ErrNotFound
}

func newTestTracker(client Client, clock clockwork.Clock) *Tracker {
	logger, _ := zap.NewDevelopment()
	return NewTracker(client, 10*time.Second, clock, logger)
}

func TestTracker_CachesWithinTTL(t *testing.T) {
	client := &countingClient{events: []Event{{ID: "e1", SportID: 1}}}
	clock := clockwork.NewFakeClock()
	tracker := newTestTracker(client, clock)

	for i := 0; i < 3; i++ {
		events, err := tracker.GetLiveEvents(context.Background(), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("expected one event, got %d", len(events))
		}
	}

	if client.liveCalls != 1 {
		t.Errorf("expected one upstream call within the TTL, got %d", client.liveCalls)
	}
}

func TestTracker_RefreshesAfterTTL(t *testing.T) {
	client := &countingClient{events: []Event{{ID: "e1", SportID: 1}}}
	clock := clockwork.NewFakeClock()
	tracker := newTestTracker(client, clock)

	if _, err := tracker.GetLiveEvents(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(11 * time.Second)

	if _, err := tracker.GetLiveEvents(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.liveCalls != 2 {
		t.Errorf("expected a refresh after the TTL, got %d calls", client.liveCalls)
	}
}

func TestTracker_SportFilterBypassesCache(t *testing.T) {
	client := &countingClient{events: []Event{{ID: "e1", SportID: 1}}}
	tracker := newTestTracker(client, clockwork.NewFakeClock())

	if _, err := tracker.GetLiveEvents(context.Background(), "football"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tracker.GetLiveEvents(context.Background(), "football"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.liveCalls != 2 {
		t.Errorf("sport-filtered lookups should hit upstream each time, got %d calls", client.liveCalls)
	}
}

func TestTracker_EventByIDServedFromCache(t *testing.T) {
	client := &countingClient{events: []Event{{ID: "e1", SportID: 1}}}
	tracker := newTestTracker(client, clockwork.NewFakeClock())

	// Warm the live list.
	if _, err := tracker.GetLiveEvents(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev, err := tracker.GetEventByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID != "e1" {
		t.Errorf("unexpected event: %v", ev)
	}
	if client.byIDCalls != 0 {
		t.Errorf("expected cached lookup, got %d upstream calls", client.byIDCalls)
	}
}

func TestTracker_EventByIDFallsBackToClient(t *testing.T) {
	client := &countingClient{events: []Event{{ID: "e1", SportID: 1}}}
	tracker := newTestTracker(client, clockwork.NewFakeClock())

	ev, err := tracker.GetEventByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID != "e1" || client.byIDCalls != 1 {
		t.Errorf("expected direct lookup, got event=%v calls=%d", ev, client.byIDCalls)
	}

	if _, err := tracker.GetEventByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
