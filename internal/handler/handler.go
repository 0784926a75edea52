package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"shopcore/internal/model"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps domain error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidOrder, model.ErrCodeInsufficientStock:
		return http.StatusBadRequest
	case model.ErrCodeInvalidTransition:
		return http.StatusConflict
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError maps a service error onto the wire. Infrastructure
// failures are masked; domain errors pass their message through.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	code := model.ErrorCode(err)
	status := statusFor(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("handler error")
		message = "internal server error"
	} else {
		logger.Warn().Str("code", code).Str("error", err.Error()).Msg("request rejected")
	}

	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeBadRequest rejects a malformed payload.
func writeBadRequest(w http.ResponseWriter, message string, logger zerolog.Logger) {
	logger.Warn().Str("error", message).Msg("bad request")
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: model.ErrCodeInvalidOrder})
}
