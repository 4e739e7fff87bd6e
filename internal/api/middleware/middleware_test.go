package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bmore/mtgateway/internal/auth"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestLogger_SilentPaths(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	serve := func(path string, code int) {
		Logger(log)(statusHandler(code)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	serve("/health", http.StatusOK)
	serve("/metrics", http.StatusOK)
	serve("/health", http.StatusServiceUnavailable)
	serve("/translate", http.StatusOK)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "/health", entries[0].ContextMap()["path"])
	assert.EqualValues(t, http.StatusServiceUnavailable, entries[0].ContextMap()["status"])
	assert.Equal(t, "/translate", entries[1].ContextMap()["path"])
}

func TestCORSHandler(t *testing.T) {
	assert.False(t, CORSHandler(nil).AllowCredentials)
	assert.Equal(t, []string{"*"}, CORSHandler(nil).AllowedOrigins)

	opts := CORSHandler([]string{"https://portal.example.org"})
	assert.True(t, opts.AllowCredentials)
}

func TestRequireScope(t *testing.T) {
	svc := auth.NewJWTService("secret", time.Hour)
	h := AuthMiddleware(svc)(RequireScope(auth.ScopeAdmin)(statusHandler(http.StatusOK)))

	call := func(scope string) int {
		token, err := svc.GenerateToken("ops", scope)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, call(auth.ScopeAdmin))
	assert.Equal(t, http.StatusForbidden, call(auth.ScopeTranslate))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid authorization format"}`, rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	h := rl.Handler(statusHandler(http.StatusOK))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	other := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	h.ServeHTTP(other, req)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, other.Code)
}
