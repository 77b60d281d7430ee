package types

import "time"

// Payload is the free-form key/value mapping used for template rendering.
// No schema is guaranteed per event; renderers declare the keys they use and
// substitute empty strings for anything missing.
type Payload map[string]any

// NotificationRequest describes one dispatch: which event happened, which
// channels to reach the recipient on, and the payload used for rendering.
// It is transient; only its per-channel outcomes are persisted.
type NotificationRequest struct {
	Event       EventType     `json:"event"`
	Channels    []ChannelType `json:"channels"`
	Recipient   string        `json:"recipient"`
	Payload     Payload       `json:"payload"`
	Priority    Priority      `json:"priority"`
	ScheduledAt *time.Time    `json:"scheduled_at,omitempty"`
}

// Validate enforces the request invariants: non-empty channel set, non-empty
// recipient, known event/channel/priority values.
func (r *NotificationRequest) Validate() error {
	if !r.Event.IsValid() {
		return NewAppError(ErrCodeValidationUnknownEvent, "unknown event type", nil)
	}
	if len(r.Channels) == 0 {
		return NewAppError(ErrCodeValidationEmptyChannels, "at least one channel is required", nil)
	}
	for _, ch := range r.Channels {
		if !ch.IsValid() {
			return NewAppError(ErrCodeValidationUnknownChannel, "unknown channel: "+string(ch), nil)
		}
	}
	if r.Recipient == "" {
		return NewAppError(ErrCodeValidationMissingField, "recipient is required", nil)
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !r.Priority.IsValid() {
		return NewAppError(ErrCodeValidationUnknownPriority, "unknown priority", nil)
	}
	return nil
}

// RenderedMessage is the channel-agnostic output of template rendering,
// produced upstream of a provider attempt.
type RenderedMessage struct {
	Subject  string
	Body     string
	BodyHTML string
}

// DeliveryOutcome is the terminal result of dispatching one channel.
// Exactly one outcome is produced per (request, channel) pair.
type DeliveryOutcome struct {
	Channel    ChannelType    `json:"channel"`
	Status     DeliveryStatus `json:"status"` // sent or failed
	Diagnostic string         `json:"diagnostic,omitempty"`
	Attempts   int            `json:"attempts"`
	Subject    string         `json:"-"` // rendered snapshot for the log
	Body       string         `json:"-"`
}

// DispatchResult aggregates the per-channel outcomes of one dispatch call.
type DispatchResult struct {
	Event     EventType         `json:"event"`
	Recipient string            `json:"recipient"`
	Priority  Priority          `json:"priority"`
	Outcomes  []DeliveryOutcome `json:"results"`
	Timestamp time.Time         `json:"timestamp"`
}

// Sent reports whether the outcome for the given channel index succeeded.
func (r *DispatchResult) Sent(i int) bool {
	return i < len(r.Outcomes) && r.Outcomes[i].Status == StatusSent
}

// LogEntry is the immutable record of one delivery attempt's final outcome.
// Entries are appended once and never mutated; duplicates for the same
// (event, channel, recipient) represent independent attempts.
type LogEntry struct {
	ID         string         `json:"id"`
	Event      EventType      `json:"event"`
	Channel    ChannelType    `json:"channel"`
	Recipient  string         `json:"recipient"`
	Status     DeliveryStatus `json:"status"`
	Priority   Priority       `json:"priority"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body"`
	Payload    Payload        `json:"payload,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	Diagnostic string         `json:"diagnostic,omitempty"`
	RetryCount int            `json:"retry_count"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LogFilter restricts log queries. Zero-valued fields are ignored.
type LogFilter struct {
	Recipient string
	Event     EventType
	Channel   ChannelType
	Status    DeliveryStatus
	Since     time.Time
}

// QueueEntry is a notification whose send time is in the future. Entries are
// created in scheduled state and transition via the sweep; entries past
// ExpiresAt are purged regardless of status.
type QueueEntry struct {
	ID         string         `json:"id"`
	Event      EventType      `json:"event"`
	Channel    ChannelType    `json:"channel"`
	Recipient  string         `json:"recipient"`
	Priority   Priority       `json:"priority"`
	Payload    Payload        `json:"payload,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	Status     DeliveryStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	RetryCount int            `json:"retry_count"`

	ScheduledAt time.Time  `json:"scheduled_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Template is a stored (event, channel) message template. The pair is unique;
// rendering falls back to built-in defaults when no active template exists.
type Template struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Event     EventType   `json:"event"`
	Channel   ChannelType `json:"channel"`
	Subject   string      `json:"subject"`
	Body      string      `json:"body"`
	BodyHTML  string      `json:"html_body,omitempty"`
	Variables []string    `json:"variables"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ChannelPrefs holds the per-channel and per-category opt-in switches.
type ChannelPrefs struct {
	EmailEnabled    bool `json:"email_enabled"`
	SMSEnabled      bool `json:"sms_enabled"`
	WhatsAppEnabled bool `json:"whatsapp_enabled"`
	PushEnabled     bool `json:"push_enabled"`

	OrderNotifications     bool `json:"order_notifications"`
	MarketingNotifications bool `json:"marketing_notifications"`
	SupportNotifications   bool `json:"support_notifications"`
	InventoryNotifications bool `json:"inventory_notifications"`
}

// DefaultChannelPrefs returns the opt-in defaults applied when a user has
// never saved preferences.
func DefaultChannelPrefs() ChannelPrefs {
	return ChannelPrefs{
		EmailEnabled:         true,
		WhatsAppEnabled:      true,
		OrderNotifications:   true,
		SupportNotifications: true,
	}
}

// UserPreferences is the stored per-user notification preference record.
type UserPreferences struct {
	UserID               string        `json:"user_id"`
	Email                string        `json:"email,omitempty"`
	Phone                string        `json:"phone,omitempty"`
	Prefs                ChannelPrefs  `json:"preferences"`
	UnsubscribedEvents   []EventType   `json:"unsubscribed_events"`
	UnsubscribedChannels []ChannelType `json:"unsubscribed_channels"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// Allows reports whether the user accepts notifications on the channel.
func (p *UserPreferences) Allows(ch ChannelType, ev EventType) bool {
	for _, c := range p.UnsubscribedChannels {
		if c == ch {
			return false
		}
	}
	for _, e := range p.UnsubscribedEvents {
		if e == ev {
			return false
		}
	}
	switch ch {
	case ChannelEmail:
		return p.Prefs.EmailEnabled
	case ChannelSMS:
		return p.Prefs.SMSEnabled
	case ChannelWhatsApp:
		return p.Prefs.WhatsAppEnabled
	case ChannelPush:
		return p.Prefs.PushEnabled
	}
	return false
}

// ActivityItem is one row of the stats recent-activity feed.
type ActivityItem struct {
	Event     EventType      `json:"event"`
	Channel   ChannelType    `json:"channel"`
	Recipient string         `json:"recipient"`
	Status    DeliveryStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// StatsReport summarizes delivery outcomes over a time window.
type StatsReport struct {
	TotalSent      int            `json:"total_sent"`
	TotalFailed    int            `json:"total_failed"`
	SuccessRate    float64        `json:"success_rate"`
	ByChannel      map[string]int `json:"by_channel"`
	ByEvent        map[string]int `json:"by_event"`
	RecentActivity []ActivityItem `json:"recent_activity"`
}
