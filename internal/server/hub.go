// Package server coordinates channel membership, message broadcast, and
// connection cleanup for the Hubgate WebSocket core via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Hub owns the connection registry and fans published messages out to
// channel members. It tracks every open connection so shutdown can close
// them all and wait for their pump goroutines to finish.
type Hub struct {
	registry *Registry
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool

	wg sync.WaitGroup
}

// NewHub creates a Hub with an empty registry.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		log:      log,
		clients:  make(map[*Client]struct{}),
	}
}

// Registry exposes the hub's connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Register joins an authenticated client to its channel and starts its read
// and write pumps. During shutdown new clients are refused and closed
// immediately, before any registry mutation.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.Close()
		return
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.registry.Join(client.channel, client)
	h.log.Info("channel join",
		"channel", client.channel,
		"user", client.username,
		"conn_id", client.id,
		"members", h.registry.MemberCount(client.channel))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// drop transitions a client to closed and releases it from the registry.
// Safe to call from every termination path; the close and the leave are both
// idempotent.
func (h *Hub) drop(client *Client) {
	client.Close()
	h.registry.Leave(client.channel, client)

	h.mu.Lock()
	_, tracked := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if tracked {
		h.log.Info("channel leave",
			"channel", client.channel,
			"user", client.username,
			"conn_id", client.id)
	}
}

// Publish delivers payload to every member of the sender's channel except
// the sender itself. Delivery is an enqueue onto each member's bounded
// outbound queue, so a dead or stalled peer cannot block the sender. A
// member whose queue is full is a slow consumer: it is force-closed and
// removed without aborting delivery to the remaining members.
func (h *Hub) Publish(sender *Client, payload []byte) {
	slow := h.registry.forEachMember(sender.channel, sender, func(member *Client) bool {
		return member.enqueue(payload)
	})

	for _, member := range slow {
		h.log.Warn("closing slow consumer",
			"channel", member.channel,
			"user", member.username,
			"conn_id", member.id)
		h.drop(member)
	}
}

// Shutdown closes every open connection and waits for all pump goroutines to
// finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	h.log.Info("closing client connections", "count", len(clients))
	for _, client := range clients {
		h.drop(client)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timed out")
		return context.DeadlineExceeded
	}
}
