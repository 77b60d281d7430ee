package core

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teanotify/internal/config"
	"teanotify/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	srv, err := NewServer(cfg, testLogger())
	require.NoError(t, err)
	return srv
}

func TestRequestIDMiddleware_PropagatesIncomingHeader(t *testing.T) {
	var gotCtxID string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCtxID = types.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/logs", nil)
	req.Header.Set("X-Request-Id", "client-supplied-id")
	h.ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied-id", gotCtxID)
	assert.Equal(t, "client-supplied-id", rec.Header().Get("X-Request-Id"))
}

func TestRequestIDMiddleware_GeneratesWhenAbsent(t *testing.T) {
	var gotCtxID string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCtxID = types.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/logs", nil))

	assert.NotEmpty(t, gotCtxID)
	assert.Equal(t, gotCtxID, rec.Header().Get("X-Request-Id"))
}

func TestRecoverer_Converts500Envelope(t *testing.T) {
	srv := testServer(t, nil)
	h := srv.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/logs", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "internal_unexpected_error")
	assert.NotContains(t, rec.Body.String(), "handler exploded")
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	srv := testServer(t, nil)
	h := srv.SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestCORSMiddleware_WildcardAndPreflight(t *testing.T) {
	h := NewCORSMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/notifications/send", nil)
	req.Header.Set("Origin", "https://innerveda.in")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Admin-Api-Key")
}

func TestCORSMiddleware_OriginAllowList(t *testing.T) {
	mw := NewCORSMiddleware([]string{"https://innerveda.in"})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/logs", nil)
	req.Header.Set("Origin", "https://innerveda.in")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://innerveda.in", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/logs", nil)
	req.Header.Set("Origin", "https://evil.example")
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMountRoutes_HealthEndpoint(t *testing.T) {
	srv := testServer(t, &config.Config{
		Server: config.ServerConfig{CorsAllowedOrigins: []string{"*"}},
	})
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
