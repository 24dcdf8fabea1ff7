// Package main is the entry point for the TutorPass membership API server.
//
// It loads configuration, opens the snapshot-backed store (seeding the default
// catalog when no snapshot exists), selects the payment gateway, builds the
// HTTP server with the core chassis (middleware, routing, health checks), and
// serves until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tutorpass/internal/api/handlers"
	"tutorpass/internal/config"
	"tutorpass/internal/core"
	"tutorpass/internal/external"
	"tutorpass/internal/membership"
	"tutorpass/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("tutorpass API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	// Open the snapshot-backed store. A missing or corrupt snapshot is
	// replaced with the default seed catalog.
	registry, err := store.Open(cfg.Store.DataFile, cfg.Store.Backups, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	gateway := selectGateway(cfg, logger)
	svc := membership.NewService(registry, gateway, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, registry)

	userHandler := handlers.NewUserHandler(registry.Users(), srv.Validator, logger)
	templateHandler := handlers.NewTemplateHandler(registry.Templates(), srv.Validator, logger)
	membershipHandler := handlers.NewMembershipHandler(svc, srv.Validator, logger)
	usageHandler := handlers.NewUsageHandler(svc, srv.Validator, logger)
	adminHandler := handlers.NewAdminHandler(svc, srv.Validator, logger)
	paymentHandler := handlers.NewPaymentHandler(svc, srv.Validator, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		userHandler.RegisterRoutes,
		templateHandler.RegisterRoutes,
		membershipHandler.RegisterRoutes,
		usageHandler.RegisterRoutes,
		adminHandler.RegisterRoutes,
		paymentHandler.RegisterRoutes,
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// selectGateway picks the payment gateway implementation. With no gateway URL
// configured, charges settle in-process with deterministic success.
func selectGateway(cfg *config.Config, logger *slog.Logger) external.PaymentGateway {
	if cfg.Payment.GatewayURL == "" {
		logger.Info("payment gateway: local (deterministic success)")
		return external.NewLocalGateway()
	}
	logger.Info("payment gateway: http", "url", cfg.Payment.GatewayURL)
	return external.NewHTTPGateway(cfg.Payment.GatewayURL, cfg.Payment.APIKey, cfg.Payment.Timeout)
}

// runHTTPServer starts the server in HTTP mode with graceful shutdown on
// SIGINT/SIGTERM.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
