package external

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"teanotify/internal/types"
)

// Stub implementations for local development and test mode. They log the
// would-be transmission and succeed without any network call or credentials.

// StubEmailProvider implements EmailProvider.
type StubEmailProvider struct {
	logger *slog.Logger
	seq    atomic.Int64
}

// NewStubEmailProvider creates a logging stub email provider.
func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	return &StubEmailProvider{logger: logger}
}

// Send logs the email and returns a synthetic message ID.
func (s *StubEmailProvider) Send(_ context.Context, input types.SendInput) (string, error) {
	id := fmt.Sprintf("stub-email-%d", s.seq.Add(1))
	s.logger.Info("stub email send",
		"to", input.To,
		"subject", input.Subject,
		"message_id", id,
	)
	return id, nil
}

// StubWhatsAppSender implements WhatsAppSender.
type StubWhatsAppSender struct {
	logger *slog.Logger
	seq    atomic.Int64
}

// NewStubWhatsAppSender creates a logging stub WhatsApp sender.
func NewStubWhatsAppSender(logger *slog.Logger) *StubWhatsAppSender {
	return &StubWhatsAppSender{logger: logger}
}

// SendTemplate logs the template message and returns a synthetic message ID.
func (s *StubWhatsAppSender) SendTemplate(_ context.Context, to string, templateName string, params []string) (string, error) {
	id := fmt.Sprintf("stub-wa-%d", s.seq.Add(1))
	s.logger.Info("stub whatsapp send",
		"to", to,
		"template", templateName,
		"params", params,
		"message_id", id,
	)
	return id, nil
}

// StubSMSGateway implements SMSGateway.
type StubSMSGateway struct {
	logger *slog.Logger
	seq    atomic.Int64
}

// NewStubSMSGateway creates a logging stub SMS gateway.
func NewStubSMSGateway(logger *slog.Logger) *StubSMSGateway {
	return &StubSMSGateway{logger: logger}
}

// SendText logs the SMS and returns a synthetic request ID.
func (s *StubSMSGateway) SendText(_ context.Context, to string, message string) (string, error) {
	id := fmt.Sprintf("stub-sms-%d", s.seq.Add(1))
	s.logger.Info("stub sms send",
		"to", to,
		"message", message,
		"request_id", id,
	)
	return id, nil
}
