package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

func TestSetupLoggerHonoursConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, log.ComponentApp, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"component":"app"`) {
		t.Fatalf("expected json warn record, got %s", out)
	}
}

func TestShutdownRunsCleanup(t *testing.T) {
	sig := make(chan os.Signal, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cleaned := make(chan struct{})

	done := shutdownOn(sig, log.Discard(), time.Second, cancel, func(context.Context) { close(cleaned) })
	sig <- syscall.SIGTERM

	WaitForShutdown(ctx, done)
	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup did not run")
	}
}

func TestShutdownTimesOut(t *testing.T) {
	sig := make(chan os.Signal, 1)
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	defer close(block)

	done := shutdownOn(sig, log.Discard(), 20*time.Millisecond, cancel, func(context.Context) { <-block })
	sig <- syscall.SIGINT

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not honour timeout")
	}
	if ctx.Err() == nil {
		t.Fatal("context should be cancelled")
	}
}
