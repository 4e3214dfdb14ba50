package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oddsline/scorefeed/internal/feed"
	"github.com/oddsline/scorefeed/internal/metrics"
	"github.com/oddsline/scorefeed/internal/sports"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	// Send buffer size per client.
	sendBufferSize = 256

	// Deadline for on-demand lookups triggered by request frames.
	requestTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Browser clients connect from any origin
}

// Client represents one WebSocket client connection and its subscription
// state.
type Client struct {
	registry *Registry
	conn     *websocket.Conn
	send     chan []byte
	connID   string
	logger   *zap.Logger

	mu            sync.Mutex
	subscription  *Subscription
	authenticated bool
	closed        bool
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with a default catch-all subscription.
func (r *Registry) HandleWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		registry:     r,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		connID:       uuid.New().String(),
		logger:       r.logger,
		subscription: newSubscription(),
	}

	select {
	case r.register <- client:
	case <-r.done:
		conn.Close()
		return
	}

	client.TrySend(buildConnectionFrame(client.connID, client.Tokens()))

	// Start read/write pumps
	go client.writePump()
	go client.readPump()
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.registry.unregister <- c:
		case <-c.registry.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed, send close message
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one inbound client frame. Errors never close the
// connection; they come back as error frames.
func (c *Client) handleMessage(data []byte) {
	msg, err := parseClientMessage(data)
	if err != nil {
		metrics.FramesReceived.WithLabelValues("invalid").Inc()
		c.logger.Debug("rejected client frame",
			zap.String("connID", c.connID),
			zap.Error(err),
		)
		c.TrySend(buildErrorFrame(err.Error()))
		return
	}

	switch m := msg.(type) {
	case *subscribeRequest:
		metrics.FramesReceived.WithLabelValues("subscribe").Inc()
		c.mu.Lock()
		c.subscription.Subscribe(m.sports, m.events)
		tokens := c.subscription.Tokens()
		c.mu.Unlock()
		c.TrySend(buildSubscriptionFrame("success", tokens))

	case *unsubscribeRequest:
		metrics.FramesReceived.WithLabelValues("unsubscribe").Inc()
		c.mu.Lock()
		c.subscription.Unsubscribe(m.sports, m.events)
		tokens := c.subscription.Tokens()
		c.mu.Unlock()
		c.TrySend(buildSubscriptionFrame("updated", tokens))

	case *authenticateRequest:
		metrics.FramesReceived.WithLabelValues("authenticate").Inc()
		ok := m.token != ""
		if ok {
			c.mu.Lock()
			c.authenticated = true
			c.mu.Unlock()
		}
		c.TrySend(buildAuthenticationFrame(ok))

	case *liveEventsRequest:
		metrics.FramesReceived.WithLabelValues("request").Inc()
		c.serveLiveEvents(m.sport)

	case *eventDetailsRequest:
		metrics.FramesReceived.WithLabelValues("request").Inc()
		c.serveEventDetails(m.eventID)
	}
}

func (c *Client) serveLiveEvents(sport string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	events, err := c.registry.directory.GetLiveEvents(ctx, sport)
	if err != nil {
		c.logger.Debug("live events lookup failed",
			zap.String("connID", c.connID),
			zap.String("sport", sport),
			zap.Error(err),
		)
		c.TrySend(buildErrorFrame("Failed to fetch live events"))
		return
	}
	c.TrySend(buildLiveEventsFrame(sport, events))
}

func (c *Client) serveEventDetails(eventID string) {
	if eventID == "" {
		c.TrySend(buildErrorFrame("eventId is required for event_details request"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	event, err := c.registry.directory.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			c.TrySend(buildErrorFrame("Event not found: " + eventID))
			return
		}
		c.logger.Debug("event details lookup failed",
			zap.String("connID", c.connID),
			zap.String("eventID", eventID),
			zap.Error(err),
		)
		c.TrySend(buildErrorFrame("Failed to fetch event details"))
		return
	}
	c.TrySend(buildEventDetailsFrame(eventID, event))
}

// TrySend queues a frame for delivery without blocking. Delivery is
// best-effort: a full send buffer or an already-closed connection drops the
// frame; the connection is pruned by its own close path, not here. Senders
// may hold a stale registry snapshot, so the closed check and the channel
// send share the lock with closeSend.
func (c *Client) TrySend(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		metrics.FramesDropped.Inc()
		return
	}

	select {
	case c.send <- payload:
	default:
		metrics.FramesDropped.Inc()
		c.logger.Debug("send buffer full, dropping frame",
			zap.String("connID", c.connID),
		)
	}
}

// closeSend closes the outbound channel exactly once. Frames queued before
// the close still drain through the write pump.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// FilterEvents returns the subset of events this connection's subscription
// matches, in input order. Matching by sport token and by event token share
// one pass, so the result carries no duplicates.
func (c *Client) FilterEvents(events []feed.Event) []feed.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscription.All() {
		return events
	}

	var matched []feed.Event
	for _, ev := range events {
		if c.subscription.Matches(sports.SlugOf(ev.SportID), ev.ID) {
			matched = append(matched, ev)
		}
	}
	return matched
}

// Tokens returns the connection's current subscription tokens.
func (c *Client) Tokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscription.Tokens()
}

// Authenticated reports whether the client presented a token. The flag is
// advisory and gates nothing.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// ConnID returns the connection's opaque identifier.
func (c *Client) ConnID() string {
	return c.connID
}
