package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"teanotify/internal/core"
	"teanotify/internal/types"
)

// PreferencesRepo is the preference repository surface the handler needs.
type PreferencesRepo interface {
	Get(ctx context.Context, userID string) (*types.UserPreferences, error)
	Upsert(ctx context.Context, p *types.UserPreferences) error
}

// PreferencesHandler serves per-user notification preferences.
type PreferencesHandler struct {
	repo      PreferencesRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewPreferencesHandler creates a PreferencesHandler.
func NewPreferencesHandler(repo PreferencesRepo, validator *core.Validator, logger *slog.Logger) *PreferencesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferencesHandler{repo: repo, validator: validator, logger: logger}
}

// RegisterRoutes mounts the preference endpoints.
func (h *PreferencesHandler) RegisterRoutes(r chi.Router) {
	r.Route("/preferences", func(r chi.Router) {
		r.Get("/{userID}", h.Get)
		r.Put("/{userID}", h.Put)
	})
}

// Get handles GET /v1/preferences/{userID}. Users who never saved
// preferences receive the opt-in defaults rather than a 404 so callers can
// treat the response uniformly.
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "user ID is required", nil))
		return
	}

	p, err := h.repo.Get(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if p == nil {
		p = &types.UserPreferences{
			UserID: userID,
			Prefs:  types.DefaultChannelPrefs(),
		}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: p})
}

// PutPreferencesRequest is the request body for PUT /v1/preferences/{userID}.
type PutPreferencesRequest struct {
	Email                string             `json:"email" validate:"omitempty,email"`
	Phone                string             `json:"phone" validate:"omitempty,max=20"`
	Prefs                types.ChannelPrefs `json:"preferences"`
	UnsubscribedEvents   []string           `json:"unsubscribed_events" validate:"omitempty,dive,event_type"`
	UnsubscribedChannels []string           `json:"unsubscribed_channels" validate:"omitempty,dive,channel_type"`
}

// Put handles PUT /v1/preferences/{userID}, replacing the stored record.
func (h *PreferencesHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "user ID is required", nil))
		return
	}

	var body PutPreferencesRequest
	if err := core.DecodeJSON(w, r, &body); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(body); err != nil {
		core.Error(w, r, err)
		return
	}

	p := &types.UserPreferences{
		UserID: userID,
		Email:  body.Email,
		Phone:  body.Phone,
		Prefs:  body.Prefs,
	}
	for _, ev := range body.UnsubscribedEvents {
		p.UnsubscribedEvents = append(p.UnsubscribedEvents, types.EventType(ev))
	}
	for _, ch := range body.UnsubscribedChannels {
		p.UnsubscribedChannels = append(p.UnsubscribedChannels, types.ChannelType(ch))
	}

	if err := h.repo.Upsert(r.Context(), p); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("preferences updated", "user_id", userID)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: p})
}
