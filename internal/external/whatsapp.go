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

// WhatsAppClientConfig holds the configuration for creating a WhatsAppClient.
type WhatsAppClientConfig struct {
	Token   types.SecretString
	PhoneID string
	BaseURL string // Override for testing; e.g. https://graph.facebook.com/v19.0
	Logger  *slog.Logger
}

// WhatsAppClient implements WhatsAppSender against the WhatsApp Cloud API
// (Facebook Graph). Messages use pre-approved templates; free-form text is
// not permitted outside a customer-service window, so every event maps to a
// template name plus ordered body parameters.
type WhatsAppClient struct {
	base    *BaseClient
	token   types.SecretString
	phoneID string
	baseURL string
	logger  *slog.Logger
}

// NewWhatsAppClient creates a new WhatsAppClient.
func NewWhatsAppClient(httpClient *http.Client, cfg WhatsAppClientConfig) *WhatsAppClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(httpClient, "whatsapp", NoRetryPolicy(), "TeaNotify/1.0")

	return &WhatsAppClient{
		base:    base,
		token:   cfg.Token,
		phoneID: cfg.PhoneID,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// Graph API message payload, limited to template messages.
type waMessage struct {
	MessagingProduct string     `json:"messaging_product"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Template         waTemplate `json:"template"`
}

type waTemplate struct {
	Name       string        `json:"name"`
	Language   waLanguage    `json:"language"`
	Components []waComponent `json:"components,omitempty"`
}

type waLanguage struct {
	Code string `json:"code"`
}

type waComponent struct {
	Type       string        `json:"type"`
	Parameters []waParameter `json:"parameters"`
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendTemplate sends one template message to the recipient's phone number
// and returns the Graph message ID.
func (w *WhatsAppClient) SendTemplate(ctx context.Context, to string, templateName string, params []string) (string, error) {
	msg := waMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: waTemplate{
			Name:     templateName,
			Language: waLanguage{Code: "en"},
		},
	}
	if len(params) > 0 {
		component := waComponent{Type: "body"}
		for _, p := range params {
			component.Parameters = append(component.Parameters, waParameter{Type: "text", Text: p})
		}
		msg.Template.Components = []waComponent{component}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal WhatsApp payload", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create WhatsApp request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.token.Unmask())

	resp, err := w.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet := readBodySnippet(resp.Body)
		w.logger.Error("whatsapp send rejected",
			"status", resp.StatusCode,
			"template", templateName,
			"body", snippet,
		)
		return "", types.NewAppError(
			types.ErrCodeUpstreamProvider,
			fmt.Sprintf("whatsapp API returned %d", resp.StatusCode),
			nil,
		)
	}

	var parsed waResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamProvider, "failed to decode WhatsApp response", err)
	}
	if len(parsed.Messages) == 0 {
		return "", nil
	}
	return parsed.Messages[0].ID, nil
}
