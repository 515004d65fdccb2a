// Package feed streams audit events to websocket subscribers.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/observability"
)

// Default configuration values.
const (
	DefaultSendBuffer   = 64
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 30 * time.Second
)

// Message is the JSON frame sent for every event.
type Message struct {
	ID         string            `json:"id"`
	Mint       string            `json:"mint"`
	Scope      string            `json:"scope"`
	Operation  string            `json:"operation"`
	Caller     string            `json:"caller"`
	Outcome    string            `json:"outcome"`
	Code       string            `json:"code,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

func newMessage(e *domain.AuditEvent) Message {
	return Message{
		ID:         e.ID,
		Mint:       e.Mint,
		Scope:      e.Scope,
		Operation:  e.Operation,
		Caller:     e.Caller,
		Outcome:    e.Outcome,
		Code:       e.Code,
		Attributes: e.Attributes,
		Timestamp:  e.Timestamp,
	}
}

type client struct {
	conn *websocket.Conn
	mint string // empty = every mint
	send chan []byte
	once sync.Once
}

// Hub fans events out to connected subscribers. Subscribers filter by mint
// with the ?mint= query parameter. Slow subscribers are disconnected.
type Hub struct {
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	sendBuffer   int
	writeTimeout time.Duration
	pingInterval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// Option configures Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithPingInterval sets the keepalive interval.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		h.pingInterval = d
	}
}

// WithSendBuffer sets the per-subscriber queue length.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		h.sendBuffer = n
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logger:       slog.Default(),
		sendBuffer:   DefaultSendBuffer,
		writeTimeout: DefaultWriteTimeout,
		pingInterval: DefaultPingInterval,
		clients:      make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements the audit sink name.
func (h *Hub) Name() string { return "feed" }

// ServeHTTP upgrades the request and streams events until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		mint: r.URL.Query().Get("mint"),
		send: make(chan []byte, h.sendBuffer),
	}
	if !h.register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	h.logger.Debug("feed subscriber connected", "mint", c.mint, "remote", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(c)
}

// Publish implements audit.Sink.
func (h *Hub) Publish(_ context.Context, events []*domain.AuditEvent) error {
	frames := make([][]byte, len(events))
	for i, e := range events {
		data, err := json.Marshal(newMessage(e))
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.ID, err)
		}
		frames[i] = data
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		for i, e := range events {
			if c.mint != "" && c.mint != e.Mint {
				continue
			}
			select {
			case c.send <- frames[i]:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow feed subscriber", "mint", c.mint)
		h.unregister(c)
	}
	return nil
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	observability.SetFeedSubscribers(len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	observability.SetFeedSubscribers(len(h.clients))
	h.mu.Unlock()
	c.once.Do(func() { close(c.send) })
}

// readLoop drains control frames; subscribers never send data.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
