package main

import (
	"context"
	"errors"
	"os"
	"time"

	"releve/internal/cli"
	"releve/internal/config"
	applog "releve/internal/log"
	"releve/internal/services"
	"releve/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	config.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)
	logger.Info("Starting tagging-worker")

	res, err := cli.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to open backend", "error", err)
		os.Exit(1)
	}

	tagger := services.NewTagger(res.Ledger)
	retag := services.NewRetagProcessor(tagger, services.RetagProcessorConfig{Interval: cfg.RetagInterval})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := retag.Stop(ctx); err != nil {
			logger.Error("Failed to stop retag processor", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	taggingWorker := worker.NewTaggingWorker(tagger)
	logger.Info("Performing startup tagging check...")
	if err := taggingWorker.StartupTagCheck(ctx); err != nil {
		logger.Error("Failed startup tagging check", "error", err)
		// Don't exit - the periodic pass retries
	}

	if err := retag.Start(ctx); err != nil {
		logger.Error("Failed to start retag processor", "error", err)
	}

	if res.AMQP != nil {
		go func() {
			err := res.AMQP.ConsumeStatementImported(ctx, taggingWorker.HandleStatementImported)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption, relying on periodic tagging", "interval", cfg.RetagInterval)
	}

	<-done
	logger.Info("Tagging worker stopped",
		"messages", taggingWorker.Handled(),
		"links", taggingWorker.Links(),
		"periodic_passes", retag.Passes())
}
