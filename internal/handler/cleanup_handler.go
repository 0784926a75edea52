package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// Sweeper cancels every expired pending order and reports how many.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// CleanupHandler serves the internal maintenance endpoint that external
// cron hits as a backstop for the in-process sweep.
type CleanupHandler struct {
	sweeper Sweeper
	logger  zerolog.Logger
}

// NewCleanupHandler creates a cleanup handler.
func NewCleanupHandler(sweeper Sweeper, logger zerolog.Logger) *CleanupHandler {
	return &CleanupHandler{
		sweeper: sweeper,
		logger:  logger.With().Str("handler", "cleanup").Logger(),
	}
}

// Run handles POST /internal/cleanup.
func (h *CleanupHandler) Run(w http.ResponseWriter, r *http.Request) {
	expired, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"expired": expired})
}
