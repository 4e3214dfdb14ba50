package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oddsline/scorefeed/internal/feed"
	"github.com/oddsline/scorefeed/internal/sports"
)

const invalidJSONMessage = "Invalid message format. Message must be valid JSON."

// Client message types for internal routing
type (
	subscribeRequest struct {
		sports []string
		events []string
	}
	unsubscribeRequest struct {
		sports []string
		events []string
	}
	authenticateRequest struct {
		token string
	}
	liveEventsRequest struct {
		sport string
	}
	eventDetailsRequest struct {
		eventID string
	}
)

// clientEnvelope is the inbound JSON envelope. Fields beyond the ones a
// given type uses are ignored.
type clientEnvelope struct {
	Type    string   `json:"type"`
	Sports  []string `json:"sports"`
	Events  []string `json:"events"`
	Token   string   `json:"token"`
	Request string   `json:"request"`
	Sport   string   `json:"sport"`
	EventID string   `json:"eventId"`
}

// errMalformed marks a frame that failed JSON decoding, as opposed to a
// well-formed frame with an unknown type.
type errMalformed struct{ err error }

func (e errMalformed) Error() string { return invalidJSONMessage }
func (e errMalformed) Unwrap() error { return e.err }

// parseClientMessage decodes an inbound frame into a typed request.
func parseClientMessage(data []byte) (any, error) {
	var env clientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errMalformed{err: err}
	}

	switch env.Type {
	case "subscribe":
		return &subscribeRequest{sports: env.Sports, events: env.Events}, nil

	case "unsubscribe":
		return &unsubscribeRequest{sports: env.Sports, events: env.Events}, nil

	case "authenticate":
		return &authenticateRequest{token: env.Token}, nil

	case "request":
		switch env.Request {
		case "live_events":
			return &liveEventsRequest{sport: env.Sport}, nil
		case "event_details":
			return &eventDetailsRequest{eventID: env.EventID}, nil
		default:
			return nil, fmt.Errorf("Unknown request type: %s", env.Request)
		}

	default:
		return nil, fmt.Errorf("Unknown message type: %s", env.Type)
	}
}

// Server frame shapes. Every frame carries a "type" discriminator.
type (
	connectionFrame struct {
		Type         string   `json:"type"`
		ConnectionID string   `json:"connectionId"`
		Message      string   `json:"message"`
		Subscription []string `json:"subscription"`
	}

	subscriptionFrame struct {
		Type         string   `json:"type"`
		Status       string   `json:"status"`
		Subscription []string `json:"subscription"`
	}

	authenticationFrame struct {
		Type    string `json:"type"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	liveEventsFrame struct {
		Type   string       `json:"type"`
		Sport  string       `json:"sport"`
		Count  int          `json:"count"`
		Events []feed.Event `json:"events"`
	}

	eventDetailsFrame struct {
		Type    string      `json:"type"`
		EventID string      `json:"eventId"`
		Event   *feed.Event `json:"event"`
	}

	scoreUpdateFrame struct {
		Type      string        `json:"type"`
		Timestamp time.Time     `json:"timestamp"`
		Count     int           `json:"count"`
		Events    []scoreUpdate `json:"events"`
	}

	errorFrame struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
)

// scoreUpdate is the compact event projection carried by score_update frames.
type scoreUpdate struct {
	ID        string    `json:"id"`
	SportID   int       `json:"sportId"`
	Sport     string    `json:"sport"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	Score     string    `json:"score"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"startTime"`
}

func buildConnectionFrame(connID string, subscription []string) []byte {
	data, _ := json.Marshal(connectionFrame{
		Type:         "connection",
		ConnectionID: connID,
		Message:      "Connected to live score feed",
		Subscription: subscription,
	})
	return data
}

func buildSubscriptionFrame(status string, subscription []string) []byte {
	data, _ := json.Marshal(subscriptionFrame{
		Type:         "subscription",
		Status:       status,
		Subscription: subscription,
	})
	return data
}

func buildAuthenticationFrame(ok bool) []byte {
	frame := authenticationFrame{Type: "authentication"}
	if ok {
		frame.Status = "success"
		frame.Message = "Authenticated"
	} else {
		frame.Status = "failed"
		frame.Message = "Authentication requires a non-empty token"
	}
	data, _ := json.Marshal(frame)
	return data
}

func buildLiveEventsFrame(sport string, events []feed.Event) []byte {
	if sport == "" {
		sport = "all"
	}
	if events == nil {
		events = []feed.Event{}
	}
	data, _ := json.Marshal(liveEventsFrame{
		Type:   "live_events",
		Sport:  sport,
		Count:  len(events),
		Events: events,
	})
	return data
}

func buildEventDetailsFrame(eventID string, event *feed.Event) []byte {
	data, _ := json.Marshal(eventDetailsFrame{
		Type:    "event_details",
		EventID: eventID,
		Event:   event,
	})
	return data
}

// ScoreUpdateFrame builds the broadcast frame for a changed-event set.
func ScoreUpdateFrame(timestamp time.Time, events []feed.Event) []byte {
	updates := make([]scoreUpdate, 0, len(events))
	for _, ev := range events {
		updates = append(updates, scoreUpdate{
			ID:        ev.ID,
			SportID:   ev.SportID,
			Sport:     sports.SlugOf(ev.SportID),
			HomeTeam:  ev.HomeTeam,
			AwayTeam:  ev.AwayTeam,
			Score:     ev.Score,
			Status:    ev.Status,
			StartTime: ev.StartTime,
		})
	}
	data, _ := json.Marshal(scoreUpdateFrame{
		Type:      "score_update",
		Timestamp: timestamp,
		Count:     len(updates),
		Events:    updates,
	})
	return data
}

func buildErrorFrame(message string) []byte {
	data, _ := json.Marshal(errorFrame{Type: "error", Message: message})
	return data
}
