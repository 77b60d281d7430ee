// Package main is the entry point for the scheduled queue worker.
//
// The worker runs the queue sweep on a fixed interval: claiming due
// entries, dispatching them through the same pipeline the API uses, and
// purging expired rows. It is deployed alongside the API server and shares
// its configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"teanotify/internal/config"
	"teanotify/internal/db"
	"teanotify/internal/external"
	"teanotify/internal/notifications"
	"teanotify/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("queue worker starting",
		"environment", cfg.Environment,
		"sweep_interval", cfg.Queue.SweepInterval,
		"batch_size", cfg.Queue.BatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	clients, err := external.NewClientRegistry(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing external clients: %w", err)
	}

	metrics, err := newMetrics(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	logRepo := db.NewLogRepository(pool)
	queueRepo := db.NewQueueRepository(pool)
	templateRepo := db.NewTemplateRepository(pool)

	dispatcher := notifications.NewDispatcher(notifications.DispatcherConfig{
		Providers: []notifications.Provider{
			notifications.NewEmailChannelProvider(clients.Email, cfg.Email.FromAddress, cfg.Email.FromName, logger),
			notifications.NewWhatsAppChannelProvider(clients.WhatsApp, logger),
			notifications.NewSMSChannelProvider(clients.SMS, logger),
		},
		Renderer: notifications.NewTemplateRenderer(templateRepo, logger),
		Policy: notifications.RetryPolicy{
			MaxAttempts: cfg.Notify.MaxAttempts,
			Delay:       cfg.Notify.RetryDelay,
		},
		AttemptTimeout: cfg.Notify.AttemptTimeout,
		Metrics:        metrics,
		Logger:         logger,
	})

	sweeper := queue.NewSweeper(queue.SweeperConfig{
		Store:       queueRepo,
		Logs:        logRepo,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		BatchSize:   cfg.Queue.BatchSize,
		Concurrency: cfg.Queue.Concurrency,
		Logger:      logger,
	})

	if err := sweeper.Run(ctx, cfg.Queue.SweepInterval); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sweep loop: %w", err)
	}

	logger.Info("queue worker stopped cleanly")
	return nil
}

// newMetrics builds the delivery metrics publisher, CloudWatch when enabled.
func newMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notifications.Metrics, error) {
	if !cfg.AWS.EnableMetrics {
		return notifications.NopMetrics{}, nil
	}

	awsCfg, err := external.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := cloudwatch.NewFromConfig(awsCfg)
	return notifications.NewCloudWatchMetrics(client, cfg.AWS.MetricNamespace, logger), nil
}

// newLogger creates the structured JSON logger for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
