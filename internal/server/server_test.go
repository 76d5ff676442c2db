package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/conf"
	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/download/downloadtest"
	"github.com/lk2023060901/file-portal-backend/internal/download/service"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	apperrors "github.com/lk2023060901/file-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const portalOrigin = "https://portal.example.com"

type fakeWindow struct {
	mu       sync.Mutex
	keys     []string
	decision redis.RateDecision
	err      error
}

func (f *fakeWindow) AllowSlidingWindow(_ context.Context, key string, _ int, _ time.Duration) (redis.RateDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.decision, f.err
}

func testConfig() *conf.Config {
	return &conf.Config{
		Server: conf.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			Mode:           "test",
			AllowedOrigins: []string{portalOrigin},
		},
		RateLimit: conf.RateLimitConfig{Enabled: true, ValidateLimit: 20, ValidateWindow: time.Minute},
	}
}

func newTestServer(t *testing.T, verifier identity.Verifier, limiter SlidingWindow, checks map[string]HealthCheck) http.Handler {
	t.Helper()
	codes := downloadtest.NewCodeRepo()
	uc := biz.NewDownloadUseCase(codes, downloadtest.NewLogRepo(codes), downloadtest.NewAdminLogRepo(),
		downloadtest.NewObjectStore(), nil, biz.DefaultConfig(), logger.NewNop())

	if verifier == nil {
		verifier = identity.NewHeaderVerifier(identity.DefaultHeaderNames(),
			identity.NewAdminPolicy([]string{"admin@example.com"}, nil))
	}
	s := NewHTTPServer(testConfig(), logger.NewNop(), Options{
		Downloads: service.NewDownloadService(uc, logger.NewNop()),
		Verifier:  verifier,
		Limiter:   limiter,
		Checks:    checks,
	})
	return s.Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/api/hello", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	h := newTestServer(t, nil, nil, map[string]HealthCheck{"database": ok, "storage": ok})
	w := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "checks.storage").String())

	h = newTestServer(t, nil, nil, map[string]HealthCheck{"database": ok, "storage": down})
	w = serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", gjson.Get(w.Body.String(), "status").String())
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "checks.database").String())
	assert.Equal(t, "unavailable", gjson.Get(w.Body.String(), "checks.storage").String())
}

func TestIdentityMiddleware(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.Header.Set("Cf-Access-Authenticated-User-Email", "Admin@Example.com")
	w := serve(h, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "admin@example.com", gjson.Get(w.Body.String(), "data.email").String())
	assert.True(t, gjson.Get(w.Body.String(), "data.is_admin").Bool())

	w = serve(h, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentityMiddleware_GroupsHeaderGrantsNothing(t *testing.T) {
	verifier := identity.NewHeaderVerifier(identity.DefaultHeaderNames(),
		identity.NewAdminPolicy([]string{"it-admin@example.com"}, []string{"admin"}))
	h := newTestServer(t, verifier, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/downloads/admin/files", nil)
	req.Header.Set("Cf-Access-Authenticated-User-Email", "intern@example.com")
	req.Header.Set("X-Authenticated-User-Groups", "admin")
	w := serve(h, req)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestIdentityMiddleware_InvalidAssertion(t *testing.T) {
	verifier := identity.NewJWTVerifier("Cf-Access-Jwt-Assertion", identity.JWTConfig{Secret: "s3cret"}, nil)
	h := newTestServer(t, verifier, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.Header.Set("Cf-Access-Jwt-Assertion", "not.a.jwt")
	w := serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, int64(apperrors.ErrUnauthorized), gjson.Get(w.Body.String(), "code").Int())
}

func TestValidateRateLimit(t *testing.T) {
	validate := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/downloads/validate", strings.NewReader(`{"code":""}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Cf-Connecting-Ip", "198.51.100.9")
		return serve(h, req)
	}

	t.Run("allowed", func(t *testing.T) {
		limiter := &fakeWindow{decision: redis.RateDecision{Allowed: true, Remaining: 19, ResetAt: time.Now().Add(time.Minute)}}
		w := validate(newTestServer(t, nil, limiter, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "20", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "19", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, []string{"validate:ip:198.51.100.9"}, limiter.keys)
	})

	t.Run("rejected", func(t *testing.T) {
		limiter := &fakeWindow{decision: redis.RateDecision{Allowed: false, ResetAt: time.Now().Add(30 * time.Second)}}
		w := validate(newTestServer(t, nil, limiter, nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Equal(t, int64(apperrors.ErrTooManyRequests), gjson.Get(w.Body.String(), "code").Int())
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		limiter := &fakeWindow{err: errors.New("redis down")}
		w := validate(newTestServer(t, nil, limiter, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("other routes are not limited", func(t *testing.T) {
		limiter := &fakeWindow{decision: redis.RateDecision{Allowed: false}}
		h := newTestServer(t, nil, limiter, nil)
		w := serve(h, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, limiter.keys)
	})
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/downloads/validate", nil)
	req.Header.Set("Origin", portalOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(h, req)
	assert.Equal(t, portalOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/hello", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	w = serve(h, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
