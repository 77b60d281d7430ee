package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"teanotify/internal/core"
	"teanotify/internal/types"
)

// defaultStatsWindowDays is the stats lookback when no days parameter is
// given.
const defaultStatsWindowDays = 7

// LogRepo is the log repository surface the handler needs.
type LogRepo interface {
	List(ctx context.Context, f types.LogFilter, limit, offset int) ([]*types.LogEntry, error)
	Count(ctx context.Context, f types.LogFilter) (int, error)
	Stats(ctx context.Context, since time.Time, event types.EventType, channel types.ChannelType) (*types.StatsReport, error)
}

// LogsHandler serves the delivery log and its aggregated stats.
type LogsHandler struct {
	repo   LogRepo
	logger *slog.Logger
}

// NewLogsHandler creates a LogsHandler.
func NewLogsHandler(repo LogRepo, logger *slog.Logger) *LogsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogsHandler{repo: repo, logger: logger}
}

// RegisterRoutes mounts the log endpoints behind the admin guard.
func (h *LogsHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.With(adminOnly).Get("/logs", h.List)
	r.With(adminOnly).Get("/stats", h.Stats)
}

// List handles GET /v1/logs. Filters: recipient, event, channel, status,
// since (RFC 3339); pagination via limit and offset.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := types.LogFilter{Recipient: q.Get("recipient")}

	f.Event = types.EventType(q.Get("event"))
	if f.Event != "" && !f.Event.IsValid() {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationUnknownEvent, "unknown event type", nil))
		return
	}
	f.Channel = types.ChannelType(q.Get("channel"))
	if f.Channel != "" && !f.Channel.IsValid() {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationUnknownChannel, "unknown channel", nil))
		return
	}
	f.Status = types.DeliveryStatus(q.Get("status"))
	if f.Status != "" && !f.Status.IsValid() {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRange, "unknown status", nil))
		return
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRange,
				"since must be an RFC 3339 timestamp", err))
			return
		}
		f.Since = t
	}

	limit := intQuery(q.Get("limit"), 50, 200)
	offset := intQuery(q.Get("offset"), 0, 1<<30)

	entries, err := h.repo.List(r.Context(), f, limit, offset)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	total, err := h.repo.Count(r.Context(), f)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]any{
		"logs":  entries,
		"count": len(entries),
		"total": total,
	}})
}

// Stats handles GET /v1/stats. The window defaults to the last 7 days and
// can be narrowed with the days, event, and channel parameters.
func (h *LogsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	days := intQuery(q.Get("days"), defaultStatsWindowDays, 365)

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

	since := time.Now().UTC().AddDate(0, 0, -days)
	report, err := h.repo.Stats(r.Context(), since, event, channel)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: report})
}

// intQuery parses a positive integer query value with a default and cap.
func intQuery(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
