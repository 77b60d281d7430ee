package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"teanotify/internal/types"
)

// SMSClientConfig holds the configuration for creating an SMSClient.
type SMSClientConfig struct {
	APIKey   types.SecretString
	SenderID string
	BaseURL  string
	Logger   *slog.Logger
}

// SMSClient implements SMSGateway against a JSON-over-HTTP SMS provider
// (transactional route). The gateway contract is a POST with sender ID,
// recipient number, and message text, answered with a request identifier.
type SMSClient struct {
	base     *BaseClient
	apiKey   types.SecretString
	senderID string
	baseURL  string
	logger   *slog.Logger
}

// NewSMSClient creates a new SMSClient.
func NewSMSClient(httpClient *http.Client, cfg SMSClientConfig) *SMSClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(httpClient, "sms", NoRetryPolicy(), "TeaNotify/1.0")

	return &SMSClient{
		base:     base,
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:   logger,
	}
}

type smsPayload struct {
	Sender  string `json:"sender"`
	To      string `json:"to"`
	Message string `json:"message"`
	Route   string `json:"route"`
}

type smsResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// SendText sends one SMS and returns the gateway request ID.
func (s *SMSClient) SendText(ctx context.Context, to string, message string) (string, error) {
	payload := smsPayload{
		Sender:  s.senderID,
		To:      to,
		Message: message,
		Route:   "transactional",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal SMS payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create SMS request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey.Unmask())

	resp, err := s.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		snippet := readBodySnippet(resp.Body)
		s.logger.Error("sms send rejected",
			"status", resp.StatusCode,
			"body", snippet,
		)
		return "", types.NewAppError(
			types.ErrCodeUpstreamProvider,
			fmt.Sprintf("sms gateway returned %d", resp.StatusCode),
			nil,
		)
	}

	var parsed smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamProvider, "failed to decode SMS response", err)
	}
	return parsed.RequestID, nil
}
