package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oddsline/scorefeed/internal/feed"
	"github.com/oddsline/scorefeed/internal/ws"
)

// Server carries the dependencies of the REST glue handlers.
type Server struct {
	directory ws.EventDirectory
	registry  *ws.Registry
	startedAt time.Time
	logger    *zap.Logger
}

func NewServer(directory ws.EventDirectory, registry *ws.Registry, logger *zap.Logger) *Server {
	return &Server{
		directory: directory,
		registry:  registry,
		startedAt: time.Now(),
		logger:    logger,
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Connections   int    `json:"connections"`
}

type liveEventsResponse struct {
	Sport  string       `json:"sport"`
	Count  int          `json:"count"`
	Events []feed.Event `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Connections:   s.registry.Count(),
	})
}

func (s *Server) handleLiveEvents(w http.ResponseWriter, r *http.Request) {
	sport := r.URL.Query().Get("sport")

	events, err := s.directory.GetLiveEvents(r.Context(), sport)
	if err != nil {
		s.logger.Error("live events request failed",
			zap.String("sport", sport),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to fetch live events"})
		return
	}

	if sport == "" {
		sport = "all"
	}
	if events == nil {
		events = []feed.Event{}
	}
	writeJSON(w, http.StatusOK, liveEventsResponse{
		Sport:  sport,
		Count:  len(events),
		Events: events,
	})
}

func (s *Server) handleEventDetails(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	event, err := s.directory.GetEventByID(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "event not found: " + eventID})
			return
		}
		s.logger.Error("event details request failed",
			zap.String("eventID", eventID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to fetch event details"})
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
