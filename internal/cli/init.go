// Package cli wires configuration, logging and the ledger service into the
// tracker and tracker-worker commands.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tracker/internal/config"
	"tracker/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default. Quiet loggers drop everything below warnings so
// report output stays readable.
func SetupLogger(cfg *config.Config, out io.Writer, quiet bool) *log.Logger {
	level := log.ParseLevel(cfg.LogLevel)
	if quiet && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentCLI,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	config.LoadDotEnv()
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM, or when
// the returned cancel func is called.
func GracefulShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
