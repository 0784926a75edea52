// Package ws is the live push channel: a registry of connected sessions
// keyed by user identity and role, fed best-effort by the notification
// dispatcher. Delivery here is an optimization layered over the durable
// notification log; a failed or dropped push is never an error.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"shopcore/internal/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// PresenceTracker records which users currently hold a live connection.
type PresenceTracker interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID string) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns the set of connected clients. All sends are non-blocking: a
// client whose buffer is full has the message dropped so one slow
// connection never delays the rest.
type Hub struct {
	presence PresenceTracker
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub(presence PresenceTracker, logger zerolog.Logger) *Hub {
	return &Hub{
		presence: presence,
		logger:   logger.With().Str("component", "ws-hub").Logger(),
		clients:  make(map[*Client]bool),
	}
}

// ServeWS upgrades the request and runs the connection's pumps. The
// identity comes from the auth boundary, already verified upstream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", identity.ID).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: identity,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.MarkOnline(context.Background(), c.identity.ID); err != nil {
			h.logger.Warn().Err(err).Str("user_id", c.identity.ID).Msg("failed to mark user online")
		}
	}

	h.logger.Info().
		Str("user_id", c.identity.ID).
		Str("role", c.identity.Role).
		Int("connected", n).
		Msg("websocket client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	stillOnline := false
	for other := range h.clients {
		if other.identity.ID == c.identity.ID {
			stillOnline = true
			break
		}
	}
	h.mu.Unlock()

	// A user may hold several tabs; only the last one going away takes
	// them offline.
	if h.presence != nil && !stillOnline {
		if err := h.presence.MarkOffline(context.Background(), c.identity.ID); err != nil {
			h.logger.Warn().Err(err).Str("user_id", c.identity.ID).Msg("failed to mark user offline")
		}
	}

	h.logger.Info().Str("user_id", c.identity.ID).Msg("websocket client disconnected")
}

// SendToUser pushes a message to every session of one user.
func (h *Hub) SendToUser(userID string, msg model.PushMessage) {
	h.push(msg, func(c *Client) bool {
		return c.identity.ID == userID
	})
}

// SendToRoles pushes a message to every session whose role is listed.
func (h *Hub) SendToRoles(msg model.PushMessage, roles ...string) {
	h.push(msg, func(c *Client) bool {
		for _, role := range roles {
			if c.identity.Role == role {
				return true
			}
		}
		return false
	})
}

// Broadcast pushes a message to every connected session.
func (h *Hub) Broadcast(msg model.PushMessage) {
	h.push(msg, nil)
}

func (h *Hub) push(msg model.PushMessage, match func(*Client) bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal push message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if match != nil && !match(c) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Slow client: drop rather than block the fan-out.
			h.logger.Warn().Str("user_id", c.identity.ID).Msg("push dropped, send buffer full")
		}
	}
}
