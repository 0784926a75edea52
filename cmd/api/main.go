package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shopcore/internal/config"
	"shopcore/internal/events"
	"shopcore/internal/handler"
	"shopcore/internal/presence"
	"shopcore/internal/repository"
	"shopcore/internal/router"
	"shopcore/internal/schedule"
	"shopcore/internal/service"
	"shopcore/internal/ws"
)

const serviceName = "shopcore"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; production supplies real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shopcore API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := repository.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	rdb := presence.NewClient(cfg.Redis.Addr)
	defer rdb.Close()
	tracker := presence.NewTracker(rdb)

	// The event stream is optional; a nil producer makes every publish
	// a no-op.
	var producer *events.Producer
	if cfg.Kafka.Enabled {
		producer = events.NewProducer(cfg.Kafka.Brokers, 256, logger)
		producer.Start(ctx)
		defer func() {
			cancel()
			producer.WaitClosed()
		}()
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("order event stream enabled")
	} else {
		logger.Info().Msg("order event stream disabled")
	}
	stream := events.NewStream(producer, serviceName, logger)

	orderRepo := repository.NewOrderRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	inventoryRepo := repository.NewInventoryRepository(pool, logger)
	notificationRepo := repository.NewNotificationRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	hub := ws.NewHub(tracker, logger)
	scheduler := schedule.New(cfg.Checkout.ReservationWindow, cfg.Checkout.SweepInterval, logger)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, hub, logger)
	orderService := service.NewOrderService(
		orderRepo,
		productRepo,
		inventoryRepo,
		notificationService,
		scheduler,
		stream,
		cfg.Checkout.LowStockThreshold,
		logger,
	)
	scheduler.Start(ctx, orderService)

	orderHandler := handler.NewOrderHandler(orderService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)
	realtimeHandler := handler.NewRealtimeHandler(hub, tracker, logger)
	cleanupHandler := handler.NewCleanupHandler(scheduler, logger)

	mux := router.New(orderHandler, notificationHandler, realtimeHandler, cleanupHandler, cfg.Cron.Key, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		// Cancelling the root context stops the sweep loop and flushes
		// any queued events before the producer closes.
		scheduler.Stop()
		cancel()

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
