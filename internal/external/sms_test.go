package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teanotify/internal/types"
)

func newSMSClient(srv *httptest.Server) *SMSClient {
	return NewSMSClient(srv.Client(), SMSClientConfig{
		APIKey:   types.SecretString("sms-key"),
		SenderID: "INNERVEDA",
		BaseURL:  srv.URL,
		Logger:   discardLogger(),
	})
}

func TestSMSClient_SendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload smsPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"request_id":"sms-req-7","status":"queued"}`))
	}))
	defer srv.Close()

	reqID, err := newSMSClient(srv).SendText(context.Background(),
		"919876543210", "Inner Veda: Order IV-3 confirmed!")

	require.NoError(t, err)
	assert.Equal(t, "sms-req-7", reqID)
	assert.Equal(t, "/messages", gotPath)
	assert.Equal(t, "Bearer sms-key", gotAuth)
	assert.Equal(t, smsPayload{
		Sender:  "INNERVEDA",
		To:      "919876543210",
		Message: "Inner Veda: Order IV-3 confirmed!",
		Route:   "transactional",
	}, gotPayload)
}

func TestSMSClient_AcceptedStatusIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"request_id":"sms-req-8"}`))
	}))
	defer srv.Close()

	reqID, err := newSMSClient(srv).SendText(context.Background(), "919876543210", "hi")

	require.NoError(t, err)
	assert.Equal(t, "sms-req-8", reqID)
}

func TestSMSClient_RejectionIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"invalid number"}`))
	}))
	defer srv.Close()

	_, err := newSMSClient(srv).SendText(context.Background(), "not-a-number", "hi")

	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamProvider, appErrCode(t, err))
	assert.Contains(t, err.Error(), "sms gateway returned 400")
}
