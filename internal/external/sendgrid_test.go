package external

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teanotify/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendGridClient_Send(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload sendGridPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("X-Message-Id", "sg-msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewSendGridClient(srv.Client(), SendGridClientConfig{
		APIKey:  types.SecretString("sg-key"),
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	msgID, err := client.Send(context.Background(), types.SendInput{
		To:          "amit@example.com",
		From:        "care@innerveda.in",
		FromName:    "Inner Veda",
		Subject:     "Order Confirmation",
		BodyText:    "Thanks for your order",
		BodyHTML:    "<p>Thanks for your order</p>",
		ReferenceID: "nlog_1",
	})

	require.NoError(t, err)
	assert.Equal(t, "sg-msg-1", msgID)
	assert.Equal(t, "/v3/mail/send", gotPath)
	assert.Equal(t, "Bearer sg-key", gotAuth)

	require.Len(t, gotPayload.Personalizations, 1)
	assert.Equal(t, "amit@example.com", gotPayload.Personalizations[0].To[0].Email)
	assert.Equal(t, "care@innerveda.in", gotPayload.From.Email)
	assert.Equal(t, "Inner Veda", gotPayload.From.Name)
	assert.Equal(t, "Order Confirmation", gotPayload.Subject)
	require.Len(t, gotPayload.Content, 2)
	assert.Equal(t, "text/plain", gotPayload.Content[0].Type)
	assert.Equal(t, "text/html", gotPayload.Content[1].Type)
	assert.Equal(t, "nlog_1", gotPayload.CustomArgs["reference_id"])
}

func TestSendGridClient_TextOnlyOmitsHTMLContent(t *testing.T) {
	var gotPayload sendGridPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewSendGridClient(srv.Client(), SendGridClientConfig{
		APIKey:  types.SecretString("sg-key"),
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	_, err := client.Send(context.Background(), types.SendInput{
		To:       "amit@example.com",
		From:     "care@innerveda.in",
		Subject:  "s",
		BodyText: "plain only",
	})

	require.NoError(t, err)
	require.Len(t, gotPayload.Content, 1)
	assert.Equal(t, "text/plain", gotPayload.Content[0].Type)
	assert.Nil(t, gotPayload.CustomArgs)
}

func TestSendGridClient_RejectionIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad from address"}]}`))
	}))
	defer srv.Close()

	client := NewSendGridClient(srv.Client(), SendGridClientConfig{
		APIKey:  types.SecretString("sg-key"),
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	_, err := client.Send(context.Background(), types.SendInput{To: "x@example.com", From: "y@example.com"})

	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamProvider, appErrCode(t, err))
	assert.Contains(t, err.Error(), "sendgrid returned 400")
}
