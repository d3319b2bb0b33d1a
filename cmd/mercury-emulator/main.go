// Package main runs a local emulator of the Mercury banking API for
// development and testing of mercury-sync.
//
// Environment:
//
//	PORT   listen port (default 8080)
//	TOKEN  bearer token clients must send (default "test-token")
//	SEED   optional YAML seed file (see testdata/emulator-seed.yaml)
//
// The API is served under /api/v1, so MERCURY_API_URL=http://localhost:8080/api/v1.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mockbank"
)

const (
	defaultPort  = "8080"
	defaultToken = "test-token"
)

func main() {
	// Setup structured JSON logging.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Get configuration from environment variables.
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	token := os.Getenv("TOKEN")
	if token == "" {
		token = defaultToken
	}

	// Initialize store.
	st := mockbank.NewStore()
	if seedPath := os.Getenv("SEED"); seedPath != "" {
		seed, err := mockbank.LoadSeed(seedPath)
		if err != nil {
			slog.Error("failed to load seed", "error", err, "seed", seedPath)
			os.Exit(1)
		}
		if err := seed.Apply(st); err != nil {
			slog.Error("failed to apply seed", "error", err, "seed", seedPath)
			os.Exit(1)
		}
		slog.Info("seed loaded", "seed", seedPath, "accounts", len(seed.Accounts))
	}

	// Setup router.
	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/api/v1", mockbank.NewRouter(st, token))

	// Health check endpoint.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Start server.
	addr := fmt.Sprintf(":%s", port)
	slog.Info("starting Mercury API emulator", "addr", addr, "port", port)

	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
