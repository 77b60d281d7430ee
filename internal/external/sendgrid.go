package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"teanotify/internal/types"
)

// sendGridAPIBase is the default SendGrid API base URL.
// Overridable in tests via SendGridClientConfig.BaseURL.
const sendGridAPIBase = "https://api.sendgrid.com"

// SendGridClientConfig holds the configuration for creating a SendGridClient.
type SendGridClientConfig struct {
	APIKey  types.SecretString
	BaseURL string // Override for testing; defaults to sendGridAPIBase
	Logger  *slog.Logger
}

// SendGridClient implements EmailProvider by making direct HTTP calls to the
// SendGrid v3 Mail Send API through BaseClient. Requests go through the
// circuit breaker but are never retried here; the dispatcher owns retries.
type SendGridClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewSendGridClient creates a new SendGridClient. The httpClient timeout
// bounds a single transmission attempt.
func NewSendGridClient(httpClient *http.Client, cfg SendGridClientConfig) *SendGridClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sendGridAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(httpClient, "sendgrid", NoRetryPolicy(), "TeaNotify/1.0")

	return &SendGridClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// sendGridPayload mirrors the SendGrid v3 mail/send request schema, limited
// to the fields this service uses.
type sendGridPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	CustomArgs       map[string]string   `json:"custom_args,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send transmits one email via SendGrid's v3 Mail Send API and returns the
// provider message ID from the X-Message-Id response header.
func (s *SendGridClient) Send(ctx context.Context, input types.SendInput) (string, error) {
	payload := sendGridPayload{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: input.To}}}},
		From:             sgAddress{Email: input.From, Name: input.FromName},
		Subject:          input.Subject,
	}
	// SendGrid requires text/plain before text/html.
	payload.Content = append(payload.Content, sgContent{Type: "text/plain", Value: input.BodyText})
	if input.BodyHTML != "" {
		payload.Content = append(payload.Content, sgContent{Type: "text/html", Value: input.BodyHTML})
	}
	if input.ReferenceID != "" {
		payload.CustomArgs = map[string]string{"reference_id": input.ReferenceID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal SendGrid payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create SendGrid request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey.Unmask())

	resp, err := s.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// SendGrid returns 202 Accepted on success.
	if resp.StatusCode == http.StatusAccepted {
		return resp.Header.Get("X-Message-Id"), nil
	}

	snippet := readBodySnippet(resp.Body)
	s.logger.Error("sendgrid send rejected",
		"status", resp.StatusCode,
		"body", snippet,
	)
	return "", types.NewAppError(
		types.ErrCodeUpstreamProvider,
		fmt.Sprintf("sendgrid returned %d", resp.StatusCode),
		nil,
	)
}

// maxErrorBodyRead limits how much of an error response body is read for
// diagnostics.
const maxErrorBodyRead = 2048

func readBodySnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyRead))
	return string(b)
}
