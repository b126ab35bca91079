package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger(nil, log.ComponentApp), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	catCache := cache.NewLRUCache[[]core.Category](1, cfg.CategoryCacheTTL)
	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithLocation(cfg.Location()),
		ledger.WithCategoryCache(catCache),
	}
	if result.Publisher != nil {
		opts = append(opts, ledger.WithPublisher(result.Publisher))
	}
	svc := ledger.NewService(result.Store, opts...)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		CategoryCache:      catCache,
	}, svc)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err.Error())
			}
		}
	})

	janitor := cache.NewJanitor(cacheSweepInterval, logger)
	janitor.Register(catCache)
	go janitor.Run(ctx)

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", cfg.EventsEnabled(),
		"timezone", cfg.Timezone,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
