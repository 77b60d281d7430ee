// Package queue implements the scheduled-send sweep: claiming due entries,
// dispatching them, recording terminal outcomes, and purging expired rows.
package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"teanotify/internal/notifications"
	"teanotify/internal/types"
)

// Store is the queue repository surface the sweeper needs.
type Store interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*types.QueueEntry, error)
	MarkSent(ctx context.Context, id string, processedAt time.Time) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// LogStore appends delivery outcomes for swept entries.
type LogStore interface {
	Append(ctx context.Context, e *types.LogEntry) error
}

// Report summarizes one sweep run.
type Report struct {
	Claimed int   `json:"claimed"`
	Sent    int   `json:"sent"`
	Failed  int   `json:"failed"`
	Purged  int64 `json:"purged"`
}

// Sweeper processes the scheduled queue. Each run claims the batch of due
// entries with a conditional status flip, dispatches them with bounded
// concurrency, writes each entry's terminal state back, and finally purges
// entries past their expiry regardless of status. One entry failing never
// aborts the rest of the batch.
type Sweeper struct {
	store       Store
	logs        LogStore
	dispatcher  notifications.Dispatching
	metrics     notifications.Metrics
	batchSize   int
	concurrency int
	clock       types.Clock
	logger      *slog.Logger
}

// SweeperConfig configures a Sweeper. Zero values fall back to a batch of
// 50, 4 workers, the real clock, and no-op metrics.
type SweeperConfig struct {
	Store       Store
	Logs        LogStore
	Dispatcher  notifications.Dispatching
	Metrics     notifications.Metrics
	BatchSize   int
	Concurrency int
	Clock       types.Clock
	Logger      *slog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Metrics == nil {
		cfg.Metrics = notifications.NopMetrics{}
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sweeper{
		store:       cfg.Store,
		logs:        cfg.Logs,
		dispatcher:  cfg.Dispatcher,
		metrics:     cfg.Metrics,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
	}
}

// Sweep runs one pass over the queue. The returned error covers claim and
// purge failures only; per-entry dispatch failures are recorded on the
// entries and counted in the report.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	now := s.clock.Now()

	entries, err := s.store.ClaimDue(ctx, now, s.batchSize)
	if err != nil {
		return Report{}, err
	}

	var sentCount, failedCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if s.process(gctx, entry, now) {
				sentCount.Add(1)
			} else {
				failedCount.Add(1)
			}
			return nil
		})
	}
	// Workers never return errors; Wait only orders the purge after them.
	_ = g.Wait()

	purged, err := s.store.PurgeExpired(ctx, s.clock.Now())
	if err != nil {
		return Report{
			Claimed: len(entries),
			Sent:    int(sentCount.Load()),
			Failed:  int(failedCount.Load()),
		}, err
	}

	report := Report{
		Claimed: len(entries),
		Sent:    int(sentCount.Load()),
		Failed:  int(failedCount.Load()),
		Purged:  purged,
	}
	if report.Claimed > 0 || report.Purged > 0 {
		s.logger.Info("queue sweep complete",
			"claimed", report.Claimed,
			"sent", report.Sent,
			"failed", report.Failed,
			"purged", report.Purged,
		)
	}
	return report, nil
}

// process dispatches one claimed entry and records its terminal state.
// Returns true when the entry was sent.
func (s *Sweeper) process(ctx context.Context, entry *types.QueueEntry, sweepStart time.Time) bool {
	s.metrics.RecordQueueLag(ctx, sweepStart.Sub(entry.ScheduledAt))

	result := s.dispatcher.Dispatch(ctx, &types.NotificationRequest{
		Event:     entry.Event,
		Channels:  []types.ChannelType{entry.Channel},
		Recipient: entry.Recipient,
		Payload:   entry.Payload,
		Priority:  entry.Priority,
	})

	outcome := result.Outcomes[0]
	s.appendLog(ctx, entry, outcome)

	if outcome.Status == types.StatusSent {
		if err := s.store.MarkSent(ctx, entry.ID, s.clock.Now()); err != nil {
			s.logger.Error("failed to mark queue entry sent", "queue_id", entry.ID, "error", err)
		}
		return true
	}

	if err := s.store.MarkFailed(ctx, entry.ID, outcome.Diagnostic); err != nil {
		s.logger.Error("failed to mark queue entry failed", "queue_id", entry.ID, "error", err)
	}
	return false
}

// appendLog records the swept entry's outcome in the delivery log.
func (s *Sweeper) appendLog(ctx context.Context, entry *types.QueueEntry, outcome types.DeliveryOutcome) {
	logEntry := &types.LogEntry{
		Event:       entry.Event,
		Channel:     entry.Channel,
		Recipient:   entry.Recipient,
		Status:      outcome.Status,
		Priority:    entry.Priority,
		Subject:     outcome.Subject,
		Body:        outcome.Body,
		Payload:     entry.Payload,
		TemplateID:  entry.TemplateID,
		Diagnostic:  outcome.Diagnostic,
		RetryCount:  entry.RetryCount,
		ScheduledAt: &entry.ScheduledAt,
	}
	if outcome.Status == types.StatusSent {
		now := s.clock.Now()
		logEntry.SentAt = &now
	}
	if err := s.logs.Append(ctx, logEntry); err != nil {
		s.logger.Error("failed to append sweep log entry", "queue_id", entry.ID, "error", err)
	}
}

// Run sweeps on a fixed interval until the context is canceled. One sweep
// runs immediately on start.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("queue sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("queue sweep failed", "error", err)
			}
		}
	}
}
