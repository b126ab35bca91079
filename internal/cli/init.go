// Package cli holds the startup steps shared by cmd/fintrack and
// cmd/fintrack-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

// SetupLogger builds the process logger from config and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	return setupLogger(cfg, component, os.Stdout)
}

func setupLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	lc := log.DefaultConfig()
	lc.Component = component
	lc.Output = out
	if cfg != nil {
		lc.Level = log.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err.Error())
	os.Exit(1)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM; done is closed
// once cleanup has run or timeout has passed, whichever comes first.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return ctx, shutdownOn(sigChan, logger, timeout, cancel, cleanup)
}

func shutdownOn(sigChan <-chan os.Signal, logger *log.Logger, timeout time.Duration, cancel context.CancelFunc, cleanup func(ctx context.Context)) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
