package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(clients *clientLimiters) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler(clients, clients.rps))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func newClients(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		limiters: make(map[string]*clientLimiter),
		rps:      rps,
		burst:    burst,
		maxAge:   time.Minute,
	}
}

func request(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_LimitsPerClient(t *testing.T) {
	r := newLimitedRouter(newClients(0.001, 2))

	assert.Equal(t, http.StatusOK, request(r, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, request(r, "10.0.0.1:1001").Code)

	rec := request(r, "10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded","error_code":"RATE_LIMIT_EXCEEDED"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, request(r, "10.0.0.2:1000").Code)
}

func TestMiddleware_RemainingHeader(t *testing.T) {
	r := newLimitedRouter(newClients(0.001, 3))

	rec := request(r, "10.0.0.1:1000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestClientLimiters_Evict(t *testing.T) {
	clients := newClients(1, 1)
	now := time.Now()

	clients.get("10.0.0.1", now.Add(-2*time.Minute))
	clients.get("10.0.0.2", now)
	require.Equal(t, 2, clients.size())

	clients.evict(now)
	assert.Equal(t, 1, clients.size())
}
