package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"shopcore/internal/middleware"
	"shopcore/internal/model"
	"shopcore/internal/ws"
)

// PresenceReader answers whether a user currently holds a live
// connection anywhere in the cluster.
type PresenceReader interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// RealtimeHandler serves the websocket endpoint and presence lookups.
type RealtimeHandler struct {
	hub      *ws.Hub
	presence PresenceReader
	logger   zerolog.Logger
}

// NewRealtimeHandler creates a realtime handler.
func NewRealtimeHandler(hub *ws.Hub, presence PresenceReader, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:      hub,
		presence: presence,
		logger:   logger.With().Str("handler", "realtime").Logger(),
	}
}

// Connect handles GET /ws.
func (h *RealtimeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing identity", Code: model.ErrCodeUnauthorised})
		return
	}
	h.hub.ServeWS(w, r, identity)
}

// Presence handles GET /api/presence/{id}.
func (h *RealtimeHandler) Presence(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		writeBadRequest(w, "missing user id", h.logger)
		return
	}

	online, err := h.presence.IsOnline(r.Context(), userID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"online": online,
	})
}
