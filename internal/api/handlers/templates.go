package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"teanotify/internal/core"
	"teanotify/internal/types"
)

// TemplateRepo is the template repository surface the handler needs.
type TemplateRepo interface {
	Create(ctx context.Context, t *types.Template) error
	List(ctx context.Context, event types.EventType, channel types.ChannelType, activeOnly bool) ([]*types.Template, error)
}

// TemplateHandler serves the stored message templates. Creation is admin
// only; the route guard is applied at mount time.
type TemplateHandler struct {
	repo      TemplateRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewTemplateHandler creates a TemplateHandler.
func NewTemplateHandler(repo TemplateRepo, validator *core.Validator, logger *slog.Logger) *TemplateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateHandler{repo: repo, validator: validator, logger: logger}
}

// RegisterRoutes mounts the template endpoints. adminOnly guards creation.
func (h *TemplateHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(adminOnly).Post("/", h.Create)
	})
}

// List handles GET /v1/templates with optional event, channel, and active
// query filters.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	event := types.EventType(q.Get("event"))
	if event != "" && !event.IsValid() {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationUnknownEvent, "unknown event type", nil))
		return
	}
	channel := types.ChannelType(q.Get("channel"))
	if channel != "" && !channel.IsValid() {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationUnknownChannel, "unknown channel", nil))
		return
	}
	activeOnly, _ := strconv.ParseBool(q.Get("active"))

	templates, err := h.repo.List(r.Context(), event, channel, activeOnly)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]any{
		"templates": templates,
		"count":     len(templates),
	}})
}

// CreateTemplateRequest is the request body for POST /v1/templates.
type CreateTemplateRequest struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Event     string   `json:"event" validate:"required,event_type"`
	Channel   string   `json:"channel" validate:"required,channel_type"`
	Subject   string   `json:"subject" validate:"max=500"`
	Body      string   `json:"body" validate:"required"`
	BodyHTML  string   `json:"html_body"`
	Variables []string `json:"variables"`
	IsActive  *bool    `json:"is_active"`
}

// Create handles POST /v1/templates. The (event, channel) pair is unique;
// duplicates return 409.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body CreateTemplateRequest
	if err := core.DecodeJSON(w, r, &body); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(body); err != nil {
		core.Error(w, r, err)
		return
	}

	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}

	t := &types.Template{
		Name:      body.Name,
		Event:     types.EventType(body.Event),
		Channel:   types.ChannelType(body.Channel),
		Subject:   body.Subject,
		Body:      body.Body,
		BodyHTML:  body.BodyHTML,
		Variables: body.Variables,
		IsActive:  active,
	}
	if err := h.repo.Create(r.Context(), t); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("template created", "template_id", t.ID, "event", t.Event, "channel", t.Channel)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: t})
}
