package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"shopcore/internal/handler"
	"shopcore/internal/middleware"
)

// New creates the HTTP router with all routes and middleware configured.
func New(
	orderHandler *handler.OrderHandler,
	notificationHandler *handler.NotificationHandler,
	realtimeHandler *handler.RealtimeHandler,
	cleanupHandler *handler.CleanupHandler,
	cronKey string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Logging(logger))
		r.Use(middleware.Identity(logger))

		r.Route("/api", func(r chi.Router) {
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.Create)
				r.Get("/", orderHandler.List)
				r.Get("/{id}", orderHandler.GetByID)
				r.Post("/{id}/pay", orderHandler.Pay)
				r.Put("/{id}/status", orderHandler.UpdateStatus)
			})

			r.Get("/admin/orders", orderHandler.ListAll)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.Feed)
				r.Post("/read-all", notificationHandler.MarkAllRead)
				r.Post("/{id}/read", notificationHandler.MarkRead)
			})

			r.Get("/presence/{id}", realtimeHandler.Presence)
		})
	})

	// The upgrade needs the raw ResponseWriter, so the websocket route
	// skips the logging wrapper.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(logger))
		r.Get("/ws", realtimeHandler.Connect)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Logging(logger))
		r.Use(middleware.CronAuth(cronKey, logger))
		r.Post("/internal/cleanup", cleanupHandler.Run)
	})

	return r
}
