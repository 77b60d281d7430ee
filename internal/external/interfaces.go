package external

import (
	"context"

	"teanotify/internal/types"
)

// EmailProvider abstracts the email delivery service (SendGrid or SES).
// Implementations transmit pre-rendered content and return the provider's
// message ID for correlation. Exactly one transmission per call.
type EmailProvider interface {
	Send(ctx context.Context, input types.SendInput) (string, error)
}

// WhatsAppSender abstracts the WhatsApp Cloud API template-message call.
// templateName identifies an approved message template; params fill its body
// placeholders in order.
type WhatsAppSender interface {
	SendTemplate(ctx context.Context, to string, templateName string, params []string) (string, error)
}

// SMSGateway abstracts the SMS provider's send-text call.
type SMSGateway interface {
	SendText(ctx context.Context, to string, message string) (string, error)
}
