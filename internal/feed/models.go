package feed

import "time"

// Event is one live event as reported by the upstream feed.
type Event struct {
	ID         string    `json:"id"`
	SportID    int       `json:"sportId"`
	HomeTeam   string    `json:"homeTeam"`
	AwayTeam   string    `json:"awayTeam"`
	Score      string    `json:"score"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"startTime"`
	LeagueName string    `json:"leagueName"`
}

// liveEventsResponse is the upstream envelope for the live events endpoint.
type liveEventsResponse struct {
	Events []Event `json:"events"`
}
