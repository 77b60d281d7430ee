package external

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teanotify/internal/config"
	"teanotify/internal/types"
)

func TestNewClientRegistry_StubModeForLocalEnvironment(t *testing.T) {
	cfg := &config.Config{Environment: "local"}

	reg, err := NewClientRegistry(context.Background(), cfg, discardLogger())

	require.NoError(t, err)
	assert.IsType(t, &StubEmailProvider{}, reg.Email)
	assert.IsType(t, &StubWhatsAppSender{}, reg.WhatsApp)
	assert.IsType(t, &StubSMSGateway{}, reg.SMS)
}

func TestNewClientRegistry_StubModeForTestMode(t *testing.T) {
	cfg := &config.Config{Environment: "prod", IsTestMode: true}

	reg, err := NewClientRegistry(context.Background(), cfg, discardLogger())

	require.NoError(t, err)
	assert.IsType(t, &StubEmailProvider{}, reg.Email)
}

func TestNewClientRegistry_RealClientsOutsideLocal(t *testing.T) {
	cfg := &config.Config{Environment: "prod"}
	cfg.Email.Provider = "sendgrid"
	cfg.Email.SendGridAPIKey = config.SecretString("sg-key")
	cfg.WhatsApp.Token = config.SecretString("wa-token")
	cfg.WhatsApp.PhoneID = "1234567890"
	cfg.WhatsApp.BaseURL = "https://graph.facebook.com/v19.0"

	reg, err := NewClientRegistry(context.Background(), cfg, discardLogger())

	require.NoError(t, err)
	assert.IsType(t, &SendGridClient{}, reg.Email)
	assert.IsType(t, &WhatsAppClient{}, reg.WhatsApp)
	// No SMS gateway configured; attempts log and succeed.
	assert.IsType(t, &StubSMSGateway{}, reg.SMS)
}

func TestNewClientRegistry_SMSClientWhenGatewayConfigured(t *testing.T) {
	cfg := &config.Config{Environment: "prod"}
	cfg.Email.Provider = "sendgrid"
	cfg.WhatsApp.BaseURL = "https://graph.facebook.com/v19.0"
	cfg.SMS.APIKey = config.SecretString("sms-key")
	cfg.SMS.SenderID = "INNERVEDA"
	cfg.SMS.BaseURL = "https://sms.example.com"

	reg, err := NewClientRegistry(context.Background(), cfg, discardLogger())

	require.NoError(t, err)
	assert.IsType(t, &SMSClient{}, reg.SMS)
}

func TestStubProviders_ReturnUniqueSyntheticIDs(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	email := NewStubEmailProvider(logger)
	first, err := email.Send(ctx, types.SendInput{To: "a@example.com"})
	require.NoError(t, err)
	second, err := email.Send(ctx, types.SendInput{To: "b@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Contains(t, first, "stub-email-")

	wa := NewStubWhatsAppSender(logger)
	waID, err := wa.SendTemplate(ctx, "919876543210", "order_placed", []string{"IV-1"})
	require.NoError(t, err)
	assert.Contains(t, waID, "stub-wa-")

	sms := NewStubSMSGateway(logger)
	smsID, err := sms.SendText(ctx, "919876543210", "hi")
	require.NoError(t, err)
	assert.Contains(t, smsID, "stub-sms-")
}
