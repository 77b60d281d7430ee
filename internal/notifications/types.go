// Package notifications implements the delivery pipeline: channel providers
// that make exactly one transmission attempt, a dispatcher that fans a
// request out across channels with a bounded retry policy, template
// rendering, and the service layer that decides between immediate dispatch
// and scheduling.
package notifications

import (
	"context"
	"time"

	"teanotify/internal/types"
)

// Message is the channel-agnostic input to a provider attempt. Rendered
// carries the subject/body produced by the Renderer; Event and Payload are
// available for transports (WhatsApp) whose message shape is a pre-approved
// template plus parameters rather than free text.
type Message struct {
	Event      types.EventType
	Payload    types.Payload
	Rendered   types.RenderedMessage
	TemplateID string
}

// AttemptResult is the outcome of exactly one provider attempt.
type AttemptResult struct {
	Status        types.DeliveryStatus // sent or failed
	ProviderMsgID string
	Diagnostic    string
}

// Provider is a delivery transport. Implementations make exactly one
// network call per Attempt and never retry internally; retry is the
// dispatcher's responsibility. Transport errors are converted into a failed
// AttemptResult with the error text as diagnostic, never returned as errors.
type Provider interface {
	Channel() types.ChannelType
	Attempt(ctx context.Context, recipient string, msg *Message) AttemptResult
}

// RetryPolicy bounds per-channel retries in the dispatcher. The delay is
// fixed between attempts; there is deliberately no backoff or jitter.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy reproduces the historical dispatch behavior: three
// attempts with a five-second pause between them. Transient transport
// failures (rate limits, momentary network errors) dominate external
// messaging APIs; a small bounded retry absorbs these without unbounded
// blocking of the calling path.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}
}

// Renderer produces the subject/body for an (event, channel) pair from the
// request payload.
type Renderer interface {
	Render(ctx context.Context, event types.EventType, channel types.ChannelType, payload types.Payload) (types.RenderedMessage, string, error)
}

// sent and failed convenience constructors keep provider code terse.

func sent(msgID string) AttemptResult {
	return AttemptResult{Status: types.StatusSent, ProviderMsgID: msgID}
}

func failed(diagnostic string) AttemptResult {
	return AttemptResult{Status: types.StatusFailed, Diagnostic: diagnostic}
}
