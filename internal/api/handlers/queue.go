package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"teanotify/internal/core"
	"teanotify/internal/queue"
	"teanotify/internal/types"
)

// QueueRepo is the queue repository surface the handler needs.
type QueueRepo interface {
	List(ctx context.Context, status types.DeliveryStatus, limit int) ([]*types.QueueEntry, error)
}

// QueueSweeper triggers one on-demand sweep of the scheduled queue.
type QueueSweeper interface {
	Sweep(ctx context.Context) (queue.Report, error)
}

// QueueHandler serves the scheduled queue inspection and manual processing
// endpoints. All routes are admin only.
type QueueHandler struct {
	repo    QueueRepo
	sweeper QueueSweeper
	logger  *slog.Logger
}

// NewQueueHandler creates a QueueHandler.
func NewQueueHandler(repo QueueRepo, sweeper QueueSweeper, logger *slog.Logger) *QueueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueHandler{repo: repo, sweeper: sweeper, logger: logger}
}

// RegisterRoutes mounts the queue endpoints behind the admin guard.
func (h *QueueHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Route("/queue", func(r chi.Router) {
		r.Use(adminOnly)
		r.Get("/", h.List)
		r.Post("/process", h.Process)
	})
}

// List handles GET /v1/queue with optional status and limit parameters.
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := types.DeliveryStatus(q.Get("status"))
	if status != "" && !status.IsValid() {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRange, "unknown status", nil))
		return
	}
	limit := intQuery(q.Get("limit"), 50, 200)

	entries, err := h.repo.List(r.Context(), status, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]any{
		"entries": entries,
		"count":   len(entries),
	}})
}

// Process handles POST /v1/queue/process: one synchronous sweep run,
// returning what it claimed, sent, failed, and purged. The background worker
// runs the same sweep on its interval; this endpoint exists for operations
// and tests.
func (h *QueueHandler) Process(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("manual queue sweep triggered",
		"claimed", report.Claimed,
		"sent", report.Sent,
		"failed", report.Failed,
		"purged", report.Purged,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: report})
}
