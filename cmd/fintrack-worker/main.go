package main

import (
	"context"
	"errors"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateWorker()
	}
	if err != nil {
		cli.Fatal(cli.SetupLogger(nil, log.ComponentWorker), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting fintrack-worker", "mirror", cfg.MirrorBackend, log.FieldOperation, log.OpStartup)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	// The worker consumes events itself; the store must not publish.
	backendCfg.AMQPURL = ""

	factory := backend.NewFactory(logger)
	stores, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	mirror, err := factory.CreateMirror(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize mirror", err)
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	mirrorWorker := worker.NewMirrorWorker(mirror.Mirror, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := consumer.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err.Error())
		}
		if mirror.Cleanup != nil {
			if err := mirror.Cleanup(); err != nil {
				logger.Warn("Mirror cleanup error", log.FieldError, err.Error())
			}
		}
		if stores.Cleanup != nil {
			if err := stores.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err.Error())
			}
		}
	})

	if cfg.ResyncOnStart {
		if err := mirrorWorker.Resync(ctx, stores.Store); err != nil {
			// Not fatal: the consumer below still applies new events.
			logger.Error("Startup resync failed", log.FieldError, err.Error())
		}
	}

	go func() {
		if err := consumer.ConsumeLedgerEvents(ctx, mirrorWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			cli.Fatal(logger, "Message consumption failed", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
