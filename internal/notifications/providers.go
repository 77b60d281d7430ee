package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"teanotify/internal/external"
	"teanotify/internal/types"
)

// EmailChannelProvider delivers rendered messages over the configured email
// transport (SendGrid or SES).
type EmailChannelProvider struct {
	client   external.EmailProvider
	from     string
	fromName string
	logger   *slog.Logger
}

// NewEmailChannelProvider creates the email provider.
func NewEmailChannelProvider(client external.EmailProvider, from, fromName string, logger *slog.Logger) *EmailChannelProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailChannelProvider{client: client, from: from, fromName: fromName, logger: logger}
}

// Channel implements Provider.
func (p *EmailChannelProvider) Channel() types.ChannelType { return types.ChannelEmail }

// Attempt sends one email. Exactly one transport call per invocation.
func (p *EmailChannelProvider) Attempt(ctx context.Context, recipient string, msg *Message) AttemptResult {
	id, err := p.client.Send(ctx, types.SendInput{
		To:       recipient,
		From:     p.from,
		FromName: p.fromName,
		Subject:  msg.Rendered.Subject,
		BodyText: msg.Rendered.Body,
		BodyHTML: msg.Rendered.BodyHTML,
	})
	if err != nil {
		p.logger.Error("email attempt failed", "to", recipient, "event", msg.Event, "error", err)
		return failed(err.Error())
	}
	return sent(id)
}

// WhatsAppChannelProvider delivers notifications as pre-approved WhatsApp
// templates. The Cloud API rejects free-form text outside a customer-service
// window, so the rendered body is ignored here; each event maps to a
// template name plus ordered body parameters drawn from the payload.
type WhatsAppChannelProvider struct {
	client external.WhatsAppSender
	logger *slog.Logger
}

// NewWhatsAppChannelProvider creates the WhatsApp provider.
func NewWhatsAppChannelProvider(client external.WhatsAppSender, logger *slog.Logger) *WhatsAppChannelProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &WhatsAppChannelProvider{client: client, logger: logger}
}

// Channel implements Provider.
func (p *WhatsAppChannelProvider) Channel() types.ChannelType { return types.ChannelWhatsApp }

// Attempt sends one template message. Exactly one transport call per
// invocation.
func (p *WhatsAppChannelProvider) Attempt(ctx context.Context, recipient string, msg *Message) AttemptResult {
	name, params := waTemplateFor(msg.Event, msg.Payload)
	id, err := p.client.SendTemplate(ctx, recipient, name, params)
	if err != nil {
		p.logger.Error("whatsapp attempt failed", "to", recipient, "template", name, "error", err)
		return failed(err.Error())
	}
	return sent(id)
}

// waTemplateFor maps an event to its approved template name and body
// parameters. Unmapped events use the general template with the payload's
// message field.
func waTemplateFor(event types.EventType, payload types.Payload) (string, []string) {
	get := func(key string) string { return payloadString(payload[key]) }

	switch event {
	case types.EventOrderPlaced:
		return "order_placed", []string{get("order_id"), "₹" + get("amount")}
	case types.EventOrderShipped:
		return "order_shipped", []string{get("order_id"), get("tracking_id")}
	case types.EventOrderDelivered:
		return "order_delivered", []string{get("order_id")}
	default:
		return "general_notification", []string{get("message")}
	}
}

// SMSChannelProvider delivers short text messages through the transactional
// SMS gateway. SMS has no subject and a tight length budget, so messages are
// composed here per event rather than reusing the email body.
type SMSChannelProvider struct {
	client external.SMSGateway
	logger *slog.Logger
}

// NewSMSChannelProvider creates the SMS provider.
func NewSMSChannelProvider(client external.SMSGateway, logger *slog.Logger) *SMSChannelProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMSChannelProvider{client: client, logger: logger}
}

// Channel implements Provider.
func (p *SMSChannelProvider) Channel() types.ChannelType { return types.ChannelSMS }

// Attempt sends one SMS. Exactly one transport call per invocation.
func (p *SMSChannelProvider) Attempt(ctx context.Context, recipient string, msg *Message) AttemptResult {
	id, err := p.client.SendText(ctx, recipient, smsTextFor(msg.Event, msg.Payload))
	if err != nil {
		p.logger.Error("sms attempt failed", "to", recipient, "event", msg.Event, "error", err)
		return failed(err.Error())
	}
	return sent(id)
}

// smsTextFor composes the SMS body for an event.
func smsTextFor(event types.EventType, payload types.Payload) string {
	get := func(key string) string { return payloadString(payload[key]) }

	switch event {
	case types.EventOrderPlaced:
		name := get("customer_name")
		if name == "" {
			name = "Customer"
		}
		return fmt.Sprintf("Dear %s, your order #%s worth ₹%s has been placed successfully! - Inner Veda",
			name, get("order_id"), get("amount"))
	case types.EventOrderShipped:
		return fmt.Sprintf("Great news! Your order #%s has been shipped. Track: %s - Inner Veda",
			get("order_id"), get("tracking_id"))
	case types.EventOrderDelivered:
		return fmt.Sprintf("Your order #%s has been delivered. Thank you for choosing Inner Veda!",
			get("order_id"))
	default:
		return fmt.Sprintf("You have a notification from Inner Veda. %s", get("message"))
	}
}
