package notifications

import (
	"context"
	"log/slog"
	"time"

	"teanotify/internal/types"
)

// LogStore is the subset of the log repository the service needs.
type LogStore interface {
	Append(ctx context.Context, e *types.LogEntry) error
}

// QueueStore is the subset of the queue repository the service needs.
type QueueStore interface {
	Enqueue(ctx context.Context, e *types.QueueEntry) error
}

// PreferenceStore looks up stored per-user preferences. Get returns nil when
// the user has never saved any.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (*types.UserPreferences, error)
}

// Dispatching is the dispatcher surface the service depends on.
type Dispatching interface {
	Dispatch(ctx context.Context, req *types.NotificationRequest) *types.DispatchResult
}

// SendReceipt is the result of submitting one notification request: either
// the immediate dispatch outcomes, or the queue entry created for a future
// send time.
type SendReceipt struct {
	Scheduled   bool                `json:"scheduled"`
	QueueID     string              `json:"queue_id,omitempty"`
	ScheduledAt *time.Time          `json:"scheduled_at,omitempty"`
	Suppressed  []types.ChannelType `json:"suppressed_channels,omitempty"`

	Result *types.DispatchResult `json:"result,omitempty"`
}

// Service is the entry point for sending notifications. It validates the
// request, applies stored recipient preferences, routes between immediate
// dispatch and the scheduled queue, and persists one log entry per delivery
// outcome.
type Service struct {
	dispatcher Dispatching
	logs       LogStore
	queue      QueueStore
	prefs      PreferenceStore
	adminEmail string
	clock      types.Clock
	logger     *slog.Logger
}

// ServiceConfig configures a Service. Prefs may be nil to disable preference
// filtering.
type ServiceConfig struct {
	Dispatcher Dispatching
	Logs       LogStore
	Queue      QueueStore
	Prefs      PreferenceStore
	AdminEmail string
	Clock      types.Clock
	Logger     *slog.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		dispatcher: cfg.Dispatcher,
		logs:       cfg.Logs,
		queue:      cfg.Queue,
		prefs:      cfg.Prefs,
		adminEmail: cfg.AdminEmail,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Send submits one notification request. A request whose scheduled time is
// in the future creates exactly one queue entry (no expiry) and nothing is
// sent now; otherwise the request is dispatched immediately and each
// per-channel outcome is appended to the log.
func (s *Service) Send(ctx context.Context, req *types.NotificationRequest) (*SendReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	suppressed := s.applyPreferences(ctx, req)
	if len(req.Channels) == 0 {
		s.logger.Info("all channels suppressed by recipient preferences",
			"recipient", req.Recipient,
			"event", req.Event,
		)
		return &SendReceipt{Suppressed: suppressed}, nil
	}

	if req.ScheduledAt != nil && req.ScheduledAt.After(s.clock.Now()) {
		entry, err := s.Schedule(ctx, req, nil)
		if err != nil {
			return nil, err
		}
		return &SendReceipt{
			Scheduled:   true,
			QueueID:     entry.ID,
			ScheduledAt: &entry.ScheduledAt,
			Suppressed:  suppressed,
		}, nil
	}

	result := s.dispatcher.Dispatch(ctx, req)
	s.persistOutcomes(ctx, req, result)

	return &SendReceipt{Result: result, Suppressed: suppressed}, nil
}

// Schedule enqueues the request for its future send time. Only the first
// channel is queued; multi-channel scheduled sends submit one request per
// channel. A nil expiresAt means the entry is never purged.
func (s *Service) Schedule(ctx context.Context, req *types.NotificationRequest, expiresAt *time.Time) (*types.QueueEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ScheduledAt == nil {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "scheduled_at is required", nil)
	}

	entry := &types.QueueEntry{
		Event:       req.Event,
		Channel:     req.Channels[0],
		Recipient:   req.Recipient,
		Priority:    req.Priority,
		Payload:     req.Payload,
		ScheduledAt: req.ScheduledAt.UTC(),
		ExpiresAt:   expiresAt,
	}
	if err := s.queue.Enqueue(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("notification scheduled",
		"queue_id", entry.ID,
		"event", entry.Event,
		"channel", entry.Channel,
		"scheduled_at", entry.ScheduledAt,
	)
	return entry, nil
}

// SendOrderEvent dispatches an order lifecycle event to the customer.
// Channels default to email plus WhatsApp; the recipient is taken from the
// order payload (email first, phone as fallback). order_placed is sent at
// high priority.
func (s *Service) SendOrderEvent(ctx context.Context, event types.EventType, orderData types.Payload, channels ...types.ChannelType) (*SendReceipt, error) {
	if len(channels) == 0 {
		channels = []types.ChannelType{types.ChannelEmail, types.ChannelWhatsApp}
	}

	recipient := payloadString(orderData["customer_email"])
	if recipient == "" {
		recipient = payloadString(orderData["customer_phone"])
	}

	priority := types.PriorityMedium
	if event == types.EventOrderPlaced {
		priority = types.PriorityHigh
	}

	return s.Send(ctx, &types.NotificationRequest{
		Event:     event,
		Channels:  channels,
		Recipient: recipient,
		Payload:   orderData,
		Priority:  priority,
	})
}

// SendUserEvent dispatches a user-facing event. Channels default to email;
// the recipient is the payload's email field.
func (s *Service) SendUserEvent(ctx context.Context, event types.EventType, userData types.Payload, channels ...types.ChannelType) (*SendReceipt, error) {
	if len(channels) == 0 {
		channels = []types.ChannelType{types.ChannelEmail}
	}

	return s.Send(ctx, &types.NotificationRequest{
		Event:     event,
		Channels:  channels,
		Recipient: payloadString(userData["email"]),
		Payload:   userData,
		Priority:  types.PriorityMedium,
	})
}

// SendAdminEvent dispatches an operational event to the configured admin
// mailbox at high priority.
func (s *Service) SendAdminEvent(ctx context.Context, event types.EventType, data types.Payload) (*SendReceipt, error) {
	return s.Send(ctx, &types.NotificationRequest{
		Event:     event,
		Channels:  []types.ChannelType{types.ChannelEmail},
		Recipient: s.adminEmail,
		Payload:   data,
		Priority:  types.PriorityHigh,
	})
}

// applyPreferences drops channels the recipient has opted out of and returns
// the suppressed set. Recipients without a stored preference record keep the
// full channel list; a lookup failure is logged and treated the same way so
// a preferences outage never blocks delivery.
func (s *Service) applyPreferences(ctx context.Context, req *types.NotificationRequest) []types.ChannelType {
	if s.prefs == nil {
		return nil
	}

	p, err := s.prefs.Get(ctx, req.Recipient)
	if err != nil {
		s.logger.Warn("preference lookup failed; sending on all channels",
			"recipient", req.Recipient,
			"error", err,
		)
		return nil
	}
	if p == nil {
		return nil
	}

	var kept, suppressed []types.ChannelType
	for _, ch := range req.Channels {
		if p.Allows(ch, req.Event) {
			kept = append(kept, ch)
		} else {
			suppressed = append(suppressed, ch)
		}
	}
	req.Channels = kept
	return suppressed
}

// persistOutcomes appends one log entry per delivery outcome. Append
// failures are logged and swallowed: the delivery already happened and must
// not be reported as failed because bookkeeping lagged.
func (s *Service) persistOutcomes(ctx context.Context, req *types.NotificationRequest, result *types.DispatchResult) {
	for _, out := range result.Outcomes {
		entry := &types.LogEntry{
			Event:      req.Event,
			Channel:    out.Channel,
			Recipient:  req.Recipient,
			Status:     out.Status,
			Priority:   req.Priority,
			Subject:    out.Subject,
			Body:       out.Body,
			Payload:    req.Payload,
			Diagnostic: out.Diagnostic,
			RetryCount: retriesOf(out.Attempts),
		}
		if out.Status == types.StatusSent {
			now := s.clock.Now()
			entry.SentAt = &now
		}
		if err := s.logs.Append(ctx, entry); err != nil {
			s.logger.Error("failed to append notification log",
				"event", req.Event,
				"channel", out.Channel,
				"error", err,
			)
		}
	}
}

// retriesOf converts an attempt count into the number of retries beyond the
// first attempt.
func retriesOf(attempts int) int {
	if attempts <= 1 {
		return 0
	}
	return attempts - 1
}
