// Package main is the entry point for the notification API server.
//
// It loads configuration, connects the Postgres pool, builds the external
// transport registry (real or stub clients depending on environment), wires
// the dispatch pipeline and repositories into the HTTP chassis, and serves
// until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teanotify/internal/api/handlers"
	"teanotify/internal/config"
	"teanotify/internal/core"
	"teanotify/internal/db"
	"teanotify/internal/external"
	"teanotify/internal/notifications"
	"teanotify/internal/queue"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests and pool
// teardown.
const shutdownTimeout = 10 * time.Second

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
	logger.Info("notification API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
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
	prefsRepo := db.NewPreferencesRepository(pool)

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

	service := notifications.NewService(notifications.ServiceConfig{
		Dispatcher: dispatcher,
		Logs:       logRepo,
		Queue:      queueRepo,
		Prefs:      prefsRepo,
		AdminEmail: cfg.Notify.AdminEmail,
		Logger:     logger,
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

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, dbProbe{pool: pool})

	notifHandler := handlers.NewNotificationHandler(service, srv.Validator, logger)
	prefsHandler := handlers.NewPreferencesHandler(prefsRepo, srv.Validator, logger)
	templateHandler := handlers.NewTemplateHandler(templateRepo, srv.Validator, logger)
	logsHandler := handlers.NewLogsHandler(logRepo, logger)
	queueHandler := handlers.NewQueueHandler(queueRepo, sweeper, logger)

	srv.V1Routes = append(srv.V1Routes,
		notifHandler.RegisterRoutes,
		prefsHandler.RegisterRoutes,
		func(r chi.Router) { templateHandler.RegisterRoutes(r, srv.AdminOnly) },
		func(r chi.Router) { logsHandler.RegisterRoutes(r, srv.AdminOnly) },
		func(r chi.Router) { queueHandler.RegisterRoutes(r, srv.AdminOnly) },
	)
	srv.MountRoutes()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newMetrics builds the delivery metrics publisher. CloudWatch publishing is
// opt-in; everything else gets the no-op implementation.
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

// dbProbe checks database connectivity for the health endpoint.
type dbProbe struct {
	pool *pgxpool.Pool
}

func (p dbProbe) Name() string                    { return "database" }
func (p dbProbe) Check(ctx context.Context) error { return p.pool.Ping(ctx) }

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
