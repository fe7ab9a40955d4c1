package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pscheid92/agromarket/internal/platform/config"
	"github.com/pscheid92/agromarket/internal/platform/logging"
	"github.com/pscheid92/agromarket/internal/platform/version"
	"github.com/pscheid92/agromarket/internal/sandbox"
)

func runGracefulShutdown(srv *sandbox.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, stopping sandbox...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	cfg, err := config.LoadSandbox()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.Info("Sandbox starting", "env", cfg.AppEnv, "version", version.Get().String())
	if cfg.IsProduction() {
		slog.Warn("The sandbox keeps accounts in memory and logs one-time codes; do not expose it to real users")
	}

	srv := sandbox.New(cfg, sandbox.Options{})
	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
