// Package config defines the global configuration for the notification
// service. Configuration is loaded once at process startup and is immutable
// thereafter, following 12-Factor principles: values come from the OS
// environment, optionally seeded from a .env file in local development.
//
// Any missing required value or invalid format causes startup to fail fast.
package config

import (
	"time"

	"teanotify/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used in configuration to prevent accidental logging of credentials.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server   ServerConfig
	Database DatabaseConfig
	Email    EmailConfig
	WhatsApp WhatsAppConfig
	SMS      SMSConfig
	Notify   NotifyConfig
	Queue    QueueConfig
	AWS      AWSConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// EmailConfig holds email delivery provider credentials.
// Provider selects the transport: "sendgrid" or "ses".
type EmailConfig struct {
	Provider       string       `envconfig:"EMAIL_PROVIDER" default:"sendgrid" validate:"oneof=sendgrid ses"`
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY"`
	SESConfigSet   string       `envconfig:"SES_CONFIG_SET"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"care@innerveda.in"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"Inner Veda"`
}

// WhatsAppConfig holds WhatsApp Cloud API (Graph) credentials.
type WhatsAppConfig struct {
	Token   SecretString `envconfig:"WHATSAPP_TOKEN"`
	PhoneID string       `envconfig:"WHATSAPP_PHONE_ID"`
	BaseURL string       `envconfig:"WHATSAPP_BASE_URL" default:"https://graph.facebook.com/v19.0"`
}

// SMSConfig holds SMS gateway credentials.
type SMSConfig struct {
	APIKey   SecretString `envconfig:"SMS_API_KEY"`
	SenderID string       `envconfig:"SMS_SENDER_ID" default:"INNERVEDA"`
	BaseURL  string       `envconfig:"SMS_BASE_URL"`
}

// NotifyConfig holds dispatch policy knobs. The defaults reproduce the
// historical behavior: three attempts with a fixed five-second delay and no
// backoff or jitter.
type NotifyConfig struct {
	MaxAttempts    int           `envconfig:"NOTIFY_MAX_ATTEMPTS" default:"3" validate:"min=1,max=10"`
	RetryDelay     time.Duration `envconfig:"NOTIFY_RETRY_DELAY" default:"5s"`
	AttemptTimeout time.Duration `envconfig:"NOTIFY_ATTEMPT_TIMEOUT" default:"10s"`
	AdminEmail     string        `envconfig:"ADMIN_EMAIL" default:"care@innerveda.in"`
}

// QueueConfig holds scheduled-queue sweep settings.
type QueueConfig struct {
	SweepInterval time.Duration `envconfig:"QUEUE_SWEEP_INTERVAL" default:"1m"`
	BatchSize     int           `envconfig:"QUEUE_BATCH_SIZE" default:"50" validate:"min=1,max=500"`
	Concurrency   int           `envconfig:"QUEUE_CONCURRENCY" default:"4" validate:"min=1,max=32"`
}

// AWSConfig holds AWS regional configuration for CloudWatch metrics and SES.
type AWSConfig struct {
	Region          string `envconfig:"AWS_REGION" default:"ap-south-1"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"TeaNotify"`
	EndpointURL     string `envconfig:"AWS_ENDPOINT_URL"` // LocalStack support; empty in prod
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// SecurityConfig holds admin access settings. The admin API key guards the
// template, queue, and stats surfaces.
type SecurityConfig struct {
	AdminAPIKey SecretString `envconfig:"ADMIN_API_KEY"`
}
