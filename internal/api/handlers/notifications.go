// Package handlers contains the HTTP handler implementations for the
// notification API. Handlers declare narrow local interfaces for the
// services they consume, decode and validate request bodies through the
// core chassis, and never touch transports or storage directly.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"teanotify/internal/core"
	"teanotify/internal/notifications"
	"teanotify/internal/types"
)

// NotificationSender is the service surface the notification handler needs.
type NotificationSender interface {
	Send(ctx context.Context, req *types.NotificationRequest) (*notifications.SendReceipt, error)
	Schedule(ctx context.Context, req *types.NotificationRequest, expiresAt *time.Time) (*types.QueueEntry, error)
	SendOrderEvent(ctx context.Context, event types.EventType, orderData types.Payload, channels ...types.ChannelType) (*notifications.SendReceipt, error)
	SendUserEvent(ctx context.Context, event types.EventType, userData types.Payload, channels ...types.ChannelType) (*notifications.SendReceipt, error)
	SendAdminEvent(ctx context.Context, event types.EventType, data types.Payload) (*notifications.SendReceipt, error)
}

// NotificationHandler serves the send endpoints.
type NotificationHandler struct {
	service   NotificationSender
	validator *core.Validator
	logger    *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(service NotificationSender, validator *core.Validator, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{service: service, validator: validator, logger: logger}
}

// RegisterRoutes mounts the notification endpoints.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Post("/send", h.Send)
		r.Post("/order", h.SendOrder)
		r.Post("/user", h.SendUser)
		r.Post("/admin", h.SendAdmin)
	})
}

// SendNotificationRequest is the request body for POST /v1/notifications/send.
type SendNotificationRequest struct {
	Event       string        `json:"event" validate:"required,event_type"`
	Channels    []string      `json:"channels" validate:"required,min=1,dive,channel_type"`
	Recipient   string        `json:"recipient" validate:"required"`
	Payload     types.Payload `json:"payload"`
	Priority    string        `json:"priority" validate:"priority"`
	ScheduledAt *time.Time    `json:"scheduled_at"`
	ExpiresAt   *time.Time    `json:"expires_at"`
}

func (req *SendNotificationRequest) toDomain() *types.NotificationRequest {
	channels := make([]types.ChannelType, 0, len(req.Channels))
	for _, ch := range req.Channels {
		channels = append(channels, types.ChannelType(ch))
	}
	return &types.NotificationRequest{
		Event:       types.EventType(req.Event),
		Channels:    channels,
		Recipient:   req.Recipient,
		Payload:     req.Payload,
		Priority:    types.Priority(req.Priority),
		ScheduledAt: req.ScheduledAt,
	}
}

// Send handles POST /v1/notifications/send. Requests with a future
// scheduled_at are queued (202); everything else dispatches immediately and
// returns the per-channel outcomes.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var body SendNotificationRequest
	if err := core.DecodeJSON(w, r, &body); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(body); err != nil {
		core.Error(w, r, err)
		return
	}

	req := body.toDomain()

	// An explicit expiry only makes sense for the scheduled path; route it
	// to Schedule directly so the queue entry carries it.
	if body.ExpiresAt != nil && req.ScheduledAt != nil && req.ScheduledAt.After(time.Now()) {
		entry, err := h.service.Schedule(r.Context(), req, body.ExpiresAt)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: notifications.SendReceipt{
			Scheduled:   true,
			QueueID:     entry.ID,
			ScheduledAt: &entry.ScheduledAt,
		}})
		return
	}

	receipt, err := h.service.Send(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if receipt.Scheduled {
		status = http.StatusAccepted
	}
	core.JSON(w, r, status, core.APIResponse{Data: receipt})
}

// OrderNotificationRequest is the request body for POST /v1/notifications/order.
type OrderNotificationRequest struct {
	Event     string        `json:"event" validate:"required,event_type"`
	OrderData types.Payload `json:"order_data" validate:"required"`
	Channels  []string      `json:"channels" validate:"omitempty,dive,channel_type"`
}

// SendOrder handles POST /v1/notifications/order: order lifecycle events to
// the customer, defaulting to email plus WhatsApp.
func (h *NotificationHandler) SendOrder(w http.ResponseWriter, r *http.Request) {
	var body OrderNotificationRequest
	if err := core.DecodeJSON(w, r, &body); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(body); err != nil {
		core.Error(w, r, err)
		return
	}

	receipt, err := h.service.SendOrderEvent(r.Context(),
		types.EventType(body.Event), body.OrderData, toChannels(body.Channels)...)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: receipt})
}

// UserNotificationRequest is the request body for POST /v1/notifications/user.
type UserNotificationRequest struct {
	Event    string        `json:"event" validate:"required,event_type"`
	UserData types.Payload `json:"user_data" validate:"required"`
	Channels []string      `json:"channels" validate:"omitempty,dive,channel_type"`
}

// SendUser handles POST /v1/notifications/user: user-facing events,
// defaulting to email.
func (h *NotificationHandler) SendUser(w http.ResponseWriter, r *http.Request) {
	var body UserNotificationRequest
	if err := core.DecodeJSON(w, r, &body); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(body); err != nil {
		core.Error(w, r, err)
		return
	}

	receipt, err := h.service.SendUserEvent(r.Context(),
		types.EventType(body.Event), body.UserData, toChannels(body.Channels)...)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: receipt})
}

// AdminNotificationRequest is the request body for POST /v1/notifications/admin.
type AdminNotificationRequest struct {
	Event string        `json:"event" validate:"required,event_type"`
	Data  types.Payload `json:"data" validate:"required"`
}

// SendAdmin handles POST /v1/notifications/admin: operational events to the
// configured admin mailbox.
func (h *NotificationHandler) SendAdmin(w http.ResponseWriter, r *http.Request) {
	var body AdminNotificationRequest
	if err := core.DecodeJSON(w, r, &body); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(body); err != nil {
		core.Error(w, r, err)
		return
	}

	receipt, err := h.service.SendAdminEvent(r.Context(), types.EventType(body.Event), body.Data)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: receipt})
}

// toChannels converts string channel names to their typed form.
func toChannels(names []string) []types.ChannelType {
	channels := make([]types.ChannelType, 0, len(names))
	for _, n := range names {
		channels = append(channels, types.ChannelType(n))
	}
	return channels
}
