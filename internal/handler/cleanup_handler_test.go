package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shopcore/internal/middleware"
	"shopcore/internal/model"
)

// MockSweeper is a mock implementation of Sweeper.
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) Sweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockPresenceReader is a mock implementation of PresenceReader.
type MockPresenceReader struct {
	mock.Mock
}

func (m *MockPresenceReader) IsOnline(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func cleanupRouter(sweeper *MockSweeper, cronKey string) http.Handler {
	h := NewCleanupHandler(sweeper, zerolog.Nop())
	r := chi.NewRouter()
	r.Use(middleware.CronAuth(cronKey, zerolog.Nop()))
	r.Post("/internal/cleanup", h.Run)
	return r
}

func TestCleanupHandler_Run(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("Sweep", mock.Anything).Return(3, nil)

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup", nil)
	req.Header.Set("X-Cron-Key", "secret")
	rec := httptest.NewRecorder()
	cleanupRouter(sweeper, "secret").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp["expired"])
}

func TestCleanupHandler_RejectsWithoutKey(t *testing.T) {
	sweeper := new(MockSweeper)

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup", nil)
	rec := httptest.NewRecorder()
	cleanupRouter(sweeper, "secret").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	sweeper.AssertNotCalled(t, "Sweep", mock.Anything)
}

func TestCleanupHandler_SweepFailure(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("Sweep", mock.Anything).Return(0, errors.New("db down"))

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup", nil)
	req.Header.Set("X-Cron-Key", "secret")
	rec := httptest.NewRecorder()
	cleanupRouter(sweeper, "secret").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRealtimeHandler_Presence(t *testing.T) {
	presence := new(MockPresenceReader)
	presence.On("IsOnline", mock.Anything, "user-1").Return(true, nil)

	h := NewRealtimeHandler(nil, presence, zerolog.Nop())
	r := chi.NewRouter()
	r.Use(middleware.Identity(zerolog.Nop()))
	r.Get("/api/presence/{id}", h.Presence)

	rec := doRequest(r, http.MethodGet, "/api/presence/user-1", nil, model.RoleCustomer)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID string `json:"userId"`
		Online bool   `json:"online"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.UserID)
	assert.True(t, resp.Online)
}
