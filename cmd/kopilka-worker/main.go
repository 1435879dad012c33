package main

import (
	"context"
	"errors"
	"os"
	"sync"

	"kopilka/internal/amqp"
	"kopilka/internal/cli"
	"kopilka/internal/log"
	"kopilka/internal/source/file"
	"kopilka/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	bootstrap := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting kopilka-worker", log.FieldOperation, log.OpStartup, log.FieldBackend, cfg.DataBackend)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := cli.BuildApp(ctx, logger, cfg, cli.AppOptions{CacheRates: true})
	if err != nil {
		logger.Error("Failed to build report stack", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	client, err := amqp.NewClient(amqp.Config{
		URL:          cfg.AMQPURL,
		Exchange:     cfg.AMQPExchange,
		RequestQueue: cfg.AMQPRequestQueue,
		ResultQueue:  cfg.AMQPResultQueue,
		Prefetch:     cfg.AMQPPrefetch,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	var wg sync.WaitGroup
	runCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		cancel()
		wg.Wait()
	})

	reports := worker.NewReportWorker(app.Reports, client, 0, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reports.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Report worker stopped", log.FieldError, err)
		}
	}()

	if cfg.ImportInterval > 0 {
		store, ok := app.Backend.Writer.(worker.Store)
		if !ok {
			logger.Error("Backend cannot store imports", log.FieldBackend, cfg.DataBackend)
			os.Exit(1)
		}
		var opts []file.Option
		if cfg.OperationsSheet != "" {
			opts = append(opts, file.WithSheet(cfg.OperationsSheet))
		}
		imp := worker.NewImporter(file.New(cfg.OperationsPath, logger, opts...), store, cfg.OperationsPath, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			imp.RunPeriodic(ctx, cfg.ImportInterval)
		}()
		logger.Info("Periodic import enabled", log.FieldPathFile, cfg.OperationsPath, "interval", cfg.ImportInterval)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
