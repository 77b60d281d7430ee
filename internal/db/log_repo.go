package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"teanotify/internal/types"
)

// LogRepository provides data access for the notification_logs table.
// The table is append-only: entries record the terminal outcome of one
// delivery attempt and are never updated afterwards. There is no uniqueness
// constraint; duplicate (event, channel, recipient) rows are independent
// attempts.
type LogRepository struct {
	db DBTX
	sb sq.StatementBuilderType
}

// NewLogRepository creates a LogRepository backed by the given connection.
func NewLogRepository(db DBTX) *LogRepository {
	return &LogRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Append inserts a log entry. If the ID is empty a new one is generated.
// CreatedAt defaults to NOW() when unset.
func (r *LogRepository) Append(ctx context.Context, e *types.LogEntry) error {
	if e.ID == "" {
		e.ID = "nlog_" + uuid.NewString()
	}

	payload, err := marshalPayload(e.Payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to marshal log payload", err)
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO notification_logs
		 (id, event, channel, recipient, status, priority, subject, body,
		  payload, template_id, diagnostic, retry_count, scheduled_at, sent_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, COALESCE($15, NOW()))
		 RETURNING created_at`,
		e.ID,
		string(e.Event),
		string(e.Channel),
		e.Recipient,
		string(e.Status),
		string(e.Priority),
		nilIfEmpty(e.Subject),
		e.Body,
		payload,
		nilIfEmpty(e.TemplateID),
		nilIfEmpty(e.Diagnostic),
		e.RetryCount,
		e.ScheduledAt,
		e.SentAt,
		nilIfZeroTime(e.CreatedAt),
	)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to append notification log", err)
	}
	return nil
}

// logFilterConds translates a LogFilter into squirrel predicates.
// Zero-valued filter fields are ignored.
func logFilterConds(f types.LogFilter) sq.And {
	conds := sq.And{}
	if f.Recipient != "" {
		conds = append(conds, sq.Eq{"recipient": f.Recipient})
	}
	if f.Event != "" {
		conds = append(conds, sq.Eq{"event": string(f.Event)})
	}
	if f.Channel != "" {
		conds = append(conds, sq.Eq{"channel": string(f.Channel)})
	}
	if f.Status != "" {
		conds = append(conds, sq.Eq{"status": string(f.Status)})
	}
	if !f.Since.IsZero() {
		conds = append(conds, sq.GtOrEq{"created_at": f.Since})
	}
	return conds
}

// List returns log entries matching the filter, newest first.
func (r *LogRepository) List(ctx context.Context, f types.LogFilter, limit, offset int) ([]*types.LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.sb.
		Select("id", "event", "channel", "recipient", "status", "priority",
			"subject", "body", "payload", "template_id", "diagnostic",
			"retry_count", "scheduled_at", "sent_at", "created_at").
		From("notification_logs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if conds := logFilterConds(f); len(conds) > 0 {
		q = q.Where(conds)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to build log query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list notification logs", err)
	}
	defer rows.Close()

	var entries []*types.LogEntry
	for rows.Next() {
		e, scanErr := scanLogEntry(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan log row", scanErr)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating log rows", err)
	}
	return entries, nil
}

// Count returns the number of log entries matching the filter.
func (r *LogRepository) Count(ctx context.Context, f types.LogFilter) (int, error) {
	q := r.sb.Select("COUNT(*)").From("notification_logs")
	if conds := logFilterConds(f); len(conds) > 0 {
		q = q.Where(conds)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to build count query", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count notification logs", err)
	}
	return count, nil
}

// Stats aggregates delivery outcomes since the given time, optionally
// restricted to one event and/or channel. The per-channel and per-event
// breakdowns count all matching entries regardless of status, mirroring the
// logs listing the dashboard shows next to them.
func (r *LogRepository) Stats(ctx context.Context, since time.Time, event types.EventType, channel types.ChannelType) (*types.StatsReport, error) {
	f := types.LogFilter{Since: since, Event: event, Channel: channel}

	report := &types.StatsReport{
		ByChannel: map[string]int{},
		ByEvent:   map[string]int{},
	}

	q := r.sb.
		Select("event", "channel", "status", "COUNT(*)").
		From("notification_logs").
		Where(logFilterConds(f)).
		GroupBy("event", "channel", "status")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to build stats query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query notification stats", err)
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var ev, ch, status string
		var n int
		if err := rows.Scan(&ev, &ch, &status, &n); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan stats row", err)
		}
		total += n
		report.ByChannel[ch] += n
		report.ByEvent[ev] += n
		switch types.DeliveryStatus(status) {
		case types.StatusSent:
			report.TotalSent += n
		case types.StatusFailed:
			report.TotalFailed += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating stats rows", err)
	}

	if total > 0 {
		report.SuccessRate = float64(report.TotalSent) / float64(total) * 100
	}

	recent, err := r.List(ctx, f, 10, 0)
	if err != nil {
		return nil, err
	}
	for _, e := range recent {
		report.RecentActivity = append(report.RecentActivity, types.ActivityItem{
			Event:     e.Event,
			Channel:   e.Channel,
			Recipient: e.Recipient,
			Status:    e.Status,
			CreatedAt: e.CreatedAt,
		})
	}

	return report, nil
}

// scanLogEntry reads one notification_logs row in column order.
func scanLogEntry(row interface{ Scan(dest ...any) error }) (*types.LogEntry, error) {
	var (
		e          types.LogEntry
		event      string
		channel    string
		status     string
		priority   string
		subject    *string
		payload    []byte
		templateID *string
		diagnostic *string
	)

	err := row.Scan(
		&e.ID, &event, &channel, &e.Recipient, &status, &priority,
		&subject, &e.Body, &payload, &templateID, &diagnostic,
		&e.RetryCount, &e.ScheduledAt, &e.SentAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Event = types.EventType(event)
	e.Channel = types.ChannelType(channel)
	e.Status = types.DeliveryStatus(status)
	e.Priority = types.Priority(priority)
	e.Subject = derefString(subject)
	e.TemplateID = derefString(templateID)
	e.Diagnostic = derefString(diagnostic)

	p, err := unmarshalPayload(payload)
	if err != nil {
		return nil, err
	}
	e.Payload = p

	return &e, nil
}
