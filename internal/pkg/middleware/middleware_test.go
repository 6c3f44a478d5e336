package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostore/internal/domain"
	"gostore/internal/pkg/cache"
	"gostore/internal/pkg/logger"
	"gostore/internal/pkg/middleware"
	"gostore/internal/pkg/token"
)

// memCache é um cache.Client em memória, suficiente para o rate limiter.
// ttls guarda a janela aplicada a cada contador.
type memCache struct {
	mu     sync.Mutex
	values map[string]int64
	ttls   map[string]time.Duration
	fail   error
}

func newMemCache() *memCache {
	return &memCache{values: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) { return "", cache.ErrCacheMiss }

func (c *memCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (c *memCache) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return 0, c.fail
	}
	c.values[key]++
	if c.values[key] == 1 || c.ttls[key] == 0 {
		c.ttls[key] = window
	}
	return c.values[key], nil
}

// expire simula o fim da janela no Redis.
func (c *memCache) expire(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	delete(c.ttls, key)
}

func (c *memCache) Delete(ctx context.Context, key string) error { return nil }

func okHandler(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	mc := newMemCache()
	h := middleware.RateLimiter(mc, 2, time.Minute, logger.NewNop())(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_WindowAlwaysExpires(t *testing.T) {
	mc := newMemCache()
	h := middleware.RateLimiter(mc, 1, time.Minute, logger.NewNop())(http.HandlerFunc(okHandler))
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
		req.RemoteAddr = "10.0.0.2:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := call()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, time.Minute, mc.ttls["rate-limit:10.0.0.2"])

	blocked := call()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.Equal(t, time.Minute, mc.ttls["rate-limit:10.0.0.2"], "bloqueio não tira o TTL")

	mc.expire("rate-limit:10.0.0.2")
	assert.Equal(t, http.StatusOK, call().Code, "janela nova depois da expiração")
	assert.Equal(t, time.Minute, mc.ttls["rate-limit:10.0.0.2"])
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	mc := newMemCache()
	mc.fail = errors.New("redis fora do ar")
	h := middleware.RateLimiter(mc, 1, time.Minute, logger.NewNop())(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_RolesAndClaims(t *testing.T) {
	tokens := token.NewService(token.Options{Secret: "segredo-de-teste", Issuer: "gostore-teste", TTL: time.Hour})
	auth := middleware.NewAuthMiddleware(tokens)
	adminOnly := auth(middleware.PermissionMiddleware(domain.RoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserClaimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "u1", claims.UserID)
		w.WriteHeader(http.StatusOK)
	}))

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/users", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		adminOnly(rec, req)
		return rec.Code
	}

	adminToken, err := tokens.Issue(domain.User{ID: "u1", Role: domain.RoleAdmin})
	require.NoError(t, err)
	staffToken, err := tokens.Issue(domain.User{ID: "u2", Role: domain.RoleStaff})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer lixo"))
	assert.Equal(t, http.StatusForbidden, call("Bearer "+staffToken))
	assert.Equal(t, http.StatusOK, call("Bearer "+adminToken))
}
