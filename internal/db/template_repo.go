package db

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"teanotify/internal/types"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations, used to surface duplicate (event, channel) templates as a
// conflict rather than an internal error.
const uniqueViolation = "23505"

// TemplateRepository provides data access for the notification_templates
// table. The (event, channel) pair is unique.
type TemplateRepository struct {
	db DBTX
	sb sq.StatementBuilderType
}

// NewTemplateRepository creates a TemplateRepository backed by the given
// connection.
func NewTemplateRepository(db DBTX) *TemplateRepository {
	return &TemplateRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create inserts a new template. Returns a conflict error when a template
// already exists for the same (event, channel).
func (r *TemplateRepository) Create(ctx context.Context, t *types.Template) error {
	if t.ID == "" {
		t.ID = "ntpl_" + uuid.NewString()
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO notification_templates
		 (id, name, event, channel, subject, body, html_body, variables, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		t.ID,
		t.Name,
		string(t.Event),
		string(t.Channel),
		t.Subject,
		t.Body,
		nilIfEmpty(t.BodyHTML),
		t.Variables,
		t.IsActive,
	)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return types.NewAppError(types.ErrCodeConflictTemplate,
				"template already exists for this event and channel", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create template", err)
	}
	return nil
}

// FindActive returns the active template for (event, channel), or nil when
// none exists. Rendering falls back to built-in defaults on nil.
func (r *TemplateRepository) FindActive(ctx context.Context, event types.EventType, channel types.ChannelType) (*types.Template, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, event, channel, subject, body, html_body, variables,
		        is_active, created_at, updated_at
		 FROM notification_templates
		 WHERE event = $1 AND channel = $2 AND is_active = TRUE`,
		string(event),
		string(channel),
	)

	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to find template", err)
	}
	return t, nil
}

// List returns templates, optionally filtered by event, channel, and active
// flag.
func (r *TemplateRepository) List(ctx context.Context, event types.EventType, channel types.ChannelType, activeOnly bool) ([]*types.Template, error) {
	q := r.sb.
		Select("id", "name", "event", "channel", "subject", "body", "html_body",
			"variables", "is_active", "created_at", "updated_at").
		From("notification_templates").
		OrderBy("event", "channel")
	if event != "" {
		q = q.Where(sq.Eq{"event": string(event)})
	}
	if channel != "" {
		q = q.Where(sq.Eq{"channel": string(channel)})
	}
	if activeOnly {
		q = q.Where(sq.Eq{"is_active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to build template query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list templates", err)
	}
	defer rows.Close()

	var templates []*types.Template
	for rows.Next() {
		t, scanErr := scanTemplate(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan template row", scanErr)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating template rows", err)
	}
	return templates, nil
}

// scanTemplate reads one notification_templates row in column order.
func scanTemplate(row interface{ Scan(dest ...any) error }) (*types.Template, error) {
	var (
		t        types.Template
		event    string
		channel  string
		htmlBody *string
	)

	err := row.Scan(
		&t.ID, &t.Name, &event, &channel, &t.Subject, &t.Body, &htmlBody,
		&t.Variables, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Event = types.EventType(event)
	t.Channel = types.ChannelType(channel)
	t.BodyHTML = derefString(htmlBody)

	return &t, nil
}
