package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/oddsline/scorefeed/internal/feed"
	"github.com/oddsline/scorefeed/internal/ws"
)

type mockDirectory struct {
	events []feed.Event
}

func (m *mockDirectory) GetLiveEvents(ctx context.Context, sport string) ([]feed.Event, error) {
	return m.events, nil
}

func (m *mockDirectory) GetEventByID(ctx context.Context, id string) (*feed.Event, error) {
	for i := range m.events {
		if m.events[i].ID == id {
			return &m.events[i], nil
		}
	}
	return nil, feed.ErrNotFound
}

func newTestRouter(events []feed.Event) http.Handler {
	logger, _ := zap.NewDevelopment()
	directory := &mockDirectory{events: events}
	registry := ws.NewRegistry(directory, logger)
	srv := NewServer(directory, registry, logger)
	return NewRouter(srv, registry, logger)
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
	if resp.Connections != 0 {
		t.Errorf("expected 0 connections, got %d", resp.Connections)
	}
}

func TestHandleLiveEvents(t *testing.T) {
	router := newTestRouter([]feed.Event{
		{ID: "e1", SportID: 1, HomeTeam: "Arsenal", AwayTeam: "Chelsea"},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp liveEventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Sport != "all" || resp.Count != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleEventDetails(t *testing.T) {
	router := newTestRouter([]feed.Event{
		{ID: "e1", SportID: 4, HomeTeam: "Yankees", AwayTeam: "Red Sox"},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/e1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var ev feed.Event
	if err := json.NewDecoder(rec.Body).Decode(&ev); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if ev.ID != "e1" || ev.HomeTeam != "Yankees" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestHandleEventDetails_NotFound(t *testing.T) {
	router := newTestRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
