package types

// ChannelType identifies a delivery transport.
type ChannelType string

const (
	ChannelEmail    ChannelType = "email"
	ChannelSMS      ChannelType = "sms"
	ChannelWhatsApp ChannelType = "whatsapp"
	ChannelPush     ChannelType = "push" // reserved; no provider registered yet
)

// IsValid reports whether the channel is a known transport.
func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush:
		return true
	}
	return false
}

// EventType is the closed enumeration of reasons a notification is sent.
type EventType string

const (
	// Order lifecycle
	EventOrderPlaced    EventType = "order_placed"
	EventOrderConfirmed EventType = "order_confirmed"
	EventOrderShipped   EventType = "order_shipped"
	EventOrderDelivered EventType = "order_delivered"
	EventOrderCancelled EventType = "order_cancelled"

	// Payments
	EventPaymentSuccess EventType = "payment_success"
	EventPaymentFailed  EventType = "payment_failed"
	EventPaymentPending EventType = "payment_pending"

	// Users
	EventUserRegistered EventType = "user_registered"
	EventPasswordReset  EventType = "password_reset"

	// Marketing
	EventCartAbandoned  EventType = "cart_abandoned"
	EventProductRestock EventType = "product_restock"

	// Support
	EventContactForm      EventType = "contact_form"
	EventFeedbackReceived EventType = "feedback_received"

	// Admin
	EventLowInventory  EventType = "low_inventory"
	EventNewOrderAdmin EventType = "new_order_admin"
)

var validEvents = map[EventType]struct{}{
	EventOrderPlaced: {}, EventOrderConfirmed: {}, EventOrderShipped: {},
	EventOrderDelivered: {}, EventOrderCancelled: {},
	EventPaymentSuccess: {}, EventPaymentFailed: {}, EventPaymentPending: {},
	EventUserRegistered: {}, EventPasswordReset: {},
	EventCartAbandoned: {}, EventProductRestock: {},
	EventContactForm: {}, EventFeedbackReceived: {},
	EventLowInventory: {}, EventNewOrderAdmin: {},
}

// IsValid reports whether the event is part of the closed enumeration.
func (e EventType) IsValid() bool {
	_, ok := validEvents[e]
	return ok
}

// Priority orders notifications by urgency. It is carried on log and queue
// entries for observability; it does not change dispatch behavior.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid reports whether the priority is a known level.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// DeliveryStatus is the lifecycle state of a log or queue entry.
type DeliveryStatus string

const (
	// StatusPending marks a log entry created before its outcome is known.
	StatusPending DeliveryStatus = "pending"
	// StatusSent is terminal: the provider accepted the message.
	StatusSent DeliveryStatus = "sent"
	// StatusFailed marks an exhausted delivery. Queue entries in this state
	// are not retried automatically; re-delivery requires operator action.
	StatusFailed DeliveryStatus = "failed"
	// StatusScheduled marks a queue entry waiting for its send time.
	StatusScheduled DeliveryStatus = "scheduled"
	// StatusProcessing marks a queue entry claimed by a sweep run. The claim
	// is a conditional update so overlapping sweeps never double-send.
	StatusProcessing DeliveryStatus = "processing"
)

// IsValid reports whether the status is a known lifecycle state.
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusScheduled, StatusProcessing:
		return true
	}
	return false
}
