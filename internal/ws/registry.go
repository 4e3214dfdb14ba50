package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/oddsline/scorefeed/internal/feed"
	"github.com/oddsline/scorefeed/internal/metrics"
)

// Registry tracks every open client connection. Membership changes flow
// through the register/unregister channels and are applied by Run; dispatch
// and handler code reads the client set under the read lock.
type Registry struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	directory  EventDirectory
	logger     *zap.Logger
}

// EventDirectory serves the on-demand request frames. It is the boundary to
// the event tracking collaborator; lookups are independent of the poll tick.
type EventDirectory interface {
	GetLiveEvents(ctx context.Context, sport string) ([]feed.Event, error)
	GetEventByID(ctx context.Context, id string) (*feed.Event, error)
}

// NewRegistry creates a new Registry.
func NewRegistry(directory EventDirectory, logger *zap.Logger) *Registry {
	return &Registry{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		directory:  directory,
		logger:     logger,
	}
}

// Run processes registry events. Call this in a goroutine.
// Returns when context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("connection registry shutting down")
			r.shutdown()
			return

		case client := <-r.register:
			r.mu.Lock()
			r.clients[client] = true
			count := len(r.clients)
			r.mu.Unlock()
			metrics.ConnectedClients.Set(float64(count))
			r.logger.Debug("client registered",
				zap.String("connID", client.connID),
				zap.Int("clients", count),
			)

		case client := <-r.unregister:
			r.mu.Lock()
			if _, ok := r.clients[client]; ok {
				delete(r.clients, client)
				client.closeSend()
			}
			count := len(r.clients)
			r.mu.Unlock()
			metrics.ConnectedClients.Set(float64(count))
			r.logger.Debug("client unregistered",
				zap.String("connID", client.connID),
				zap.Int("clients", count),
			)
		}
	}
}

// shutdown closes every client connection. After done is closed the pumps
// no longer try to unregister through the channel.
func (r *Registry) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	close(r.done)
	for client := range r.clients {
		client.closeSend()
		delete(r.clients, client)
	}
	metrics.ConnectedClients.Set(0)
}

// Connections returns a snapshot of the registered clients.
func (r *Registry) Connections() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// Count returns the number of registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
