// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs between log timestamps,
//     queue scheduled_at comparisons, and database NOW().
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by Load to aid debugging.
type ConfigError struct {
	Stage   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load populates and validates the Config from the environment.
func Load() (*Config, error) {
	time.Local = time.UTC

	// .env is a local-development convenience; absence is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Stage: "envconfig", Message: "processing environment", Err: err}
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate runs struct validation plus cross-field checks that tags cannot
// express (provider credentials required only for the selected provider).
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return &ConfigError{Stage: "validate", Message: "invalid configuration", Err: err}
	}

	if cfg.Environment == "local" || cfg.IsTestMode {
		// Stub providers are used; credentials are not required.
		return nil
	}

	if cfg.Email.Provider == "sendgrid" && cfg.Email.SendGridAPIKey.Unmask() == "" {
		return &ConfigError{Stage: "validate", Message: "SENDGRID_API_KEY is required when EMAIL_PROVIDER=sendgrid"}
	}
	if cfg.WhatsApp.Token.Unmask() == "" || cfg.WhatsApp.PhoneID == "" {
		return &ConfigError{Stage: "validate", Message: "WHATSAPP_TOKEN and WHATSAPP_PHONE_ID are required outside local mode"}
	}
	if cfg.Security.AdminAPIKey.Unmask() == "" {
		return &ConfigError{Stage: "validate", Message: "ADMIN_API_KEY is required outside local mode"}
	}

	return nil
}
