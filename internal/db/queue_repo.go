package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"teanotify/internal/types"
)

// QueueRepository provides data access for the notification_queue table.
//
// Entries are created in 'scheduled' status. The sweep claims due entries
// with a conditional status flip (scheduled -> processing) so that two
// overlapping sweep runs can never dispatch the same entry twice, then
// records the terminal outcome back onto the entry.
type QueueRepository struct {
	db DBTX
	sb sq.StatementBuilderType
}

// NewQueueRepository creates a QueueRepository backed by the given connection.
func NewQueueRepository(db DBTX) *QueueRepository {
	return &QueueRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// queueColumns is the scan order shared by every queue query.
const queueColumns = `id, event, channel, recipient, priority, payload,
	template_id, status, error, retry_count, scheduled_at, expires_at,
	processed_at, created_at`

// Enqueue inserts a new scheduled entry. If the ID is empty a new one is
// generated. Status is forced to 'scheduled'; entries are always created in
// that state.
func (r *QueueRepository) Enqueue(ctx context.Context, e *types.QueueEntry) error {
	if e.ID == "" {
		e.ID = "nq_" + uuid.NewString()
	}
	e.Status = types.StatusScheduled

	payload, err := marshalPayload(e.Payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to marshal queue payload", err)
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO notification_queue
		 (id, event, channel, recipient, priority, payload, template_id,
		  status, retry_count, scheduled_at, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, COALESCE($11, NOW()))
		 RETURNING created_at`,
		e.ID,
		string(e.Event),
		string(e.Channel),
		e.Recipient,
		string(e.Priority),
		payload,
		nilIfEmpty(e.TemplateID),
		string(types.StatusScheduled),
		e.ScheduledAt,
		e.ExpiresAt,
		nilIfZeroTime(e.CreatedAt),
	)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to enqueue notification", err)
	}
	return nil
}

// ClaimDue atomically claims up to limit entries whose scheduled time has
// passed, flipping them from 'scheduled' to 'processing'. SKIP LOCKED keeps
// concurrent sweeps from blocking on each other; the status predicate keeps
// them from claiming the same entry.
func (r *QueueRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*types.QueueEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`UPDATE notification_queue SET status = $1
		 WHERE id IN (
			SELECT id FROM notification_queue
			WHERE status = $2 AND scheduled_at <= $3
			ORDER BY scheduled_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+queueColumns,
		string(types.StatusProcessing),
		string(types.StatusScheduled),
		now,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to claim due queue entries", err)
	}
	defer rows.Close()

	var entries []*types.QueueEntry
	for rows.Next() {
		e, scanErr := scanQueueEntry(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan queue row", scanErr)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating queue rows", err)
	}
	return entries, nil
}

// MarkSent records a successful dispatch: terminal 'sent' status plus the
// processed timestamp. A sent entry is never re-dispatched.
func (r *QueueRepository) MarkSent(ctx context.Context, id string, processedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notification_queue
		 SET status = $1, processed_at = $2, error = NULL
		 WHERE id = $3`,
		string(types.StatusSent),
		processedAt,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark queue entry sent", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundQueueEntry, "queue entry not found", nil)
	}
	return nil
}

// MarkFailed records a failed dispatch: status 'failed', retry count
// incremented, the error text stored, processed_at left unset. Failed entries
// stay queryable but are not retried automatically.
func (r *QueueRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notification_queue
		 SET status = $1, retry_count = retry_count + 1, error = $2
		 WHERE id = $3`,
		string(types.StatusFailed),
		errMsg,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark queue entry failed", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundQueueEntry, "queue entry not found", nil)
	}
	return nil
}

// PurgeExpired deletes every entry whose expiry time has passed, regardless
// of status. Entries with no expiry persist indefinitely.
func (r *QueueRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notification_queue WHERE expires_at IS NOT NULL AND expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to purge expired queue entries", err)
	}
	return tag.RowsAffected(), nil
}

// List returns queue entries, soonest first, optionally filtered by status.
func (r *QueueRepository) List(ctx context.Context, status types.DeliveryStatus, limit int) ([]*types.QueueEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.sb.
		Select("id", "event", "channel", "recipient", "priority", "payload",
			"template_id", "status", "error", "retry_count", "scheduled_at",
			"expires_at", "processed_at", "created_at").
		From("notification_queue").
		OrderBy("scheduled_at").
		Limit(uint64(limit))
	if status != "" {
		q = q.Where(sq.Eq{"status": string(status)})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to build queue query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list queue entries", err)
	}
	defer rows.Close()

	var entries []*types.QueueEntry
	for rows.Next() {
		e, scanErr := scanQueueEntry(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan queue row", scanErr)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating queue rows", err)
	}
	return entries, nil
}

// scanQueueEntry reads one notification_queue row in column order.
func scanQueueEntry(row interface{ Scan(dest ...any) error }) (*types.QueueEntry, error) {
	var (
		e          types.QueueEntry
		event      string
		channel    string
		priority   string
		payload    []byte
		templateID *string
		status     string
		errMsg     *string
	)

	err := row.Scan(
		&e.ID, &event, &channel, &e.Recipient, &priority, &payload,
		&templateID, &status, &errMsg, &e.RetryCount, &e.ScheduledAt,
		&e.ExpiresAt, &e.ProcessedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Event = types.EventType(event)
	e.Channel = types.ChannelType(channel)
	e.Priority = types.Priority(priority)
	e.Status = types.DeliveryStatus(status)
	e.TemplateID = derefString(templateID)
	e.Error = derefString(errMsg)

	p, err := unmarshalPayload(payload)
	if err != nil {
		return nil, err
	}
	e.Payload = p

	return &e, nil
}
