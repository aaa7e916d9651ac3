// Package server manages individual WebSocket connections, handling the
// read/write pumps, rate limiting, and lifecycle control for each one.
package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hubgate/hubgate/internal/config"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Client represents one authenticated WebSocket connection, member of exactly
// one channel for its whole lifetime. The send channel is its bounded
// outbound queue; closing done cancels both pumps together.
type Client struct {
	id       string
	channel  string
	username string

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	log  *slog.Logger

	maxMessageSize int64
	limiter        *rateLimiter
	rateLimit      config.RateLimitConfig

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient creates a Client for a freshly upgraded, already authenticated
// connection. It does not touch the registry; the hub does that on Register.
func NewClient(conn *websocket.Conn, hub *Hub, channel, username string, cfg *config.Config, log *slog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             uuid.NewString(),
		channel:        channel,
		username:       username,
		conn:           conn,
		send:           make(chan []byte, cfg.SendQueueSize),
		hub:            hub,
		log:            log,
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		done:           make(chan struct{}),
	}
}

// ID returns the connection's opaque identifier.
func (c *Client) ID() string {
	return c.id
}

// Channel returns the name of the channel this connection belongs to.
func (c *Client) Channel() string {
	return c.channel
}

// Username returns the identity established at join time.
func (c *Client) Username() string {
	return c.username
}

// Close makes the connection's terminal transition. It cancels both pumps by
// closing done and closes the underlying transport, which unblocks a pending
// read. Calling Close more than once is a no-op.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// enqueue places payload on the outbound queue without blocking. It reports
// false when the queue is full, which marks this connection a slow consumer.
// A connection already closing counts as delivered; it is being cleaned up
// and must not be reported slow again.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// handleReadError classifies a read error for logging. Every read error ends
// the read pump regardless of kind.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("message exceeded size limit",
			"conn_id", c.id, "channel", c.channel, "limit_bytes", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("client disconnected", "conn_id", c.id, "channel", c.channel)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Info("connection closed", "conn_id", c.id, "channel", c.channel)
	default:
		c.log.Warn("websocket read error", "conn_id", c.id, "channel", c.channel, "error", err)
	}
}

// readPump consumes inbound frames and publishes them to the client's
// channel. It exits on any read error or cancellation, and its deferred drop
// is the single cleanup path out of the Joined state.
func (c *Client) readPump() {
	defer c.hub.drop(c)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("setting read deadline", "conn_id", c.id, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if c.limiter != nil && !c.limiter.allow() {
			c.log.Warn("rate limit exceeded; discarding message",
				"conn_id", c.id, "channel", c.channel,
				"burst", c.rateLimit.Burst, "refill", c.rateLimit.RefillInterval.String())
			continue
		}

		c.hub.Publish(c, payload)
	}
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with periodic pings. It exits when the client is closed
// or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.writeCloseMessage()
			return

		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Warn("setting write deadline", "conn_id", c.id, "error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Warn("websocket write error", "conn_id", c.id, "channel", c.channel, "error", err)
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Warn("setting write deadline for ping", "conn_id", c.id, "error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeCloseMessage sends a best-effort close frame before the transport
// goes away.
func (c *Client) writeCloseMessage() {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug("writing close message", "conn_id", c.id, "error", err)
		}
	}
}
