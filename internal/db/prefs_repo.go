package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"teanotify/internal/types"
)

// PreferencesRepository provides data access for the
// user_notification_preferences table. One row per user, keyed by user_id.
// The channel/category switches are stored as a JSONB document; the
// unsubscribe lists as text arrays.
type PreferencesRepository struct {
	db DBTX
}

// NewPreferencesRepository creates a PreferencesRepository backed by the
// given connection.
func NewPreferencesRepository(db DBTX) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Get returns the stored preferences for a user, or nil when the user has
// never saved any. Callers apply types.DefaultChannelPrefs on nil.
func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*types.UserPreferences, error) {
	row := r.db.QueryRow(ctx,
		`SELECT user_id, email, phone, prefs, unsubscribed_events,
		        unsubscribed_channels, created_at, updated_at
		 FROM user_notification_preferences
		 WHERE user_id = $1`,
		userID,
	)

	var (
		p          types.UserPreferences
		email      *string
		phone      *string
		prefsRaw   []byte
		unsubEvs   []string
		unsubChans []string
	)
	err := row.Scan(&p.UserID, &email, &phone, &prefsRaw, &unsubEvs, &unsubChans, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get preferences", err)
	}

	p.Email = derefString(email)
	p.Phone = derefString(phone)
	if err := json.Unmarshal(prefsRaw, &p.Prefs); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to decode preferences", err)
	}
	for _, e := range unsubEvs {
		p.UnsubscribedEvents = append(p.UnsubscribedEvents, types.EventType(e))
	}
	for _, c := range unsubChans {
		p.UnsubscribedChannels = append(p.UnsubscribedChannels, types.ChannelType(c))
	}

	return &p, nil
}

// Upsert creates or replaces the preferences row for a user.
func (r *PreferencesRepository) Upsert(ctx context.Context, p *types.UserPreferences) error {
	prefsRaw, err := json.Marshal(p.Prefs)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to encode preferences", err)
	}

	unsubEvs := make([]string, 0, len(p.UnsubscribedEvents))
	for _, e := range p.UnsubscribedEvents {
		unsubEvs = append(unsubEvs, string(e))
	}
	unsubChans := make([]string, 0, len(p.UnsubscribedChannels))
	for _, c := range p.UnsubscribedChannels {
		unsubChans = append(unsubChans, string(c))
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO user_notification_preferences
		 (user_id, email, phone, prefs, unsubscribed_events, unsubscribed_channels, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			prefs = EXCLUDED.prefs,
			unsubscribed_events = EXCLUDED.unsubscribed_events,
			unsubscribed_channels = EXCLUDED.unsubscribed_channels,
			updated_at = NOW()
		 RETURNING created_at, updated_at`,
		p.UserID,
		nilIfEmpty(p.Email),
		nilIfEmpty(p.Phone),
		prefsRaw,
		unsubEvs,
		unsubChans,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert preferences", err)
	}
	return nil
}
