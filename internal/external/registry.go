package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"teanotify/internal/config"
)

// ClientRegistry holds all external transport client interfaces. It is the
// single point of access for the rest of the application to interact with
// third-party messaging services.
type ClientRegistry struct {
	Email    EmailProvider
	WhatsApp WhatsAppSender
	SMS      SMSGateway
}

// NewClientRegistry initializes all external transport clients.
// If cfg.IsTestMode is true or cfg.Environment is "local", the registry is
// populated with stub implementations that log actions without requiring
// real credentials. Otherwise, real clients are initialized with strict
// per-attempt timeouts.
func NewClientRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ClientRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.IsTestMode || cfg.Environment == "local" {
		logger.Info("initializing external clients in STUB mode",
			"is_test_mode", cfg.IsTestMode,
			"environment", cfg.Environment,
		)
		return &ClientRegistry{
			Email:    NewStubEmailProvider(logger),
			WhatsApp: NewStubWhatsAppSender(logger),
			SMS:      NewStubSMSGateway(logger),
		}, nil
	}

	httpClient := &http.Client{Timeout: cfg.Notify.AttemptTimeout}

	reg := &ClientRegistry{
		WhatsApp: NewWhatsAppClient(httpClient, WhatsAppClientConfig{
			Token:   cfg.WhatsApp.Token,
			PhoneID: cfg.WhatsApp.PhoneID,
			BaseURL: cfg.WhatsApp.BaseURL,
			Logger:  logger,
		}),
	}

	switch cfg.Email.Provider {
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config for SES: %w", err)
		}
		reg.Email = NewSESClient(awsCfg, SESClientConfig{
			ConfigSetName: cfg.Email.SESConfigSet,
			Logger:        logger,
		})
	default:
		reg.Email = NewSendGridClient(httpClient, SendGridClientConfig{
			APIKey: cfg.Email.SendGridAPIKey,
			Logger: logger,
		})
	}

	if cfg.SMS.BaseURL != "" {
		reg.SMS = NewSMSClient(httpClient, SMSClientConfig{
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
			BaseURL:  cfg.SMS.BaseURL,
			Logger:   logger,
		})
	} else {
		// No gateway configured; SMS attempts log and succeed.
		logger.Warn("SMS_BASE_URL not set; using stub SMS gateway")
		reg.SMS = NewStubSMSGateway(logger)
	}

	return reg, nil
}

// LoadAWSConfig resolves the AWS SDK configuration, honoring the LocalStack
// endpoint override when set. Shared by the SES client and the CloudWatch
// metrics publisher.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL))
	}

	return awsconfig.LoadDefaultConfig(loadCtx, opts...)
}
