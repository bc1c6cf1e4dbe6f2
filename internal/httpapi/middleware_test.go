package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, false)
	h := limiter.Middleware(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7:4000"))
	assert.Equal(t, http.StatusOK, send("203.0.113.7:4001"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7:4002"))
	assert.Equal(t, http.StatusOK, send("198.51.100.2:4000"))
}

func TestRateLimiter_IgnoresForwardedHeadersByDefault(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, false)
	h := limiter.Middleware(okHandler())

	allowed := 0
	for i := 0; i < 1000; i++ {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.%d.%d", i/256, i%256))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.1.%d.%d", i/256, i%256))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
	assert.Len(t, limiter.clients, 1)
}

func TestRateLimiter_TrustedProxy(t *testing.T) {
	h := NewRateLimiter(1, time.Minute, true).Middleware(okHandler())

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Forwarded-For", forwarded+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("198.51.100.2"))
}

func TestRateLimiter_SweepsExpiredWindows(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute, false)
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	for i := 0; i < 1000; i++ {
		assert.False(t, limiter.hit(fmt.Sprintf("192.0.2.%d", i)))
	}
	assert.Len(t, limiter.clients, 1000)

	clock = clock.Add(2 * time.Minute)
	assert.False(t, limiter.hit("198.51.100.2"))
	assert.Len(t, limiter.clients, 1)
}

func TestRateLimiter_Disabled(t *testing.T) {
	h := NewRateLimiter(0, time.Minute, false).Middleware(okHandler())
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := NewCORS(CORSOptions{AllowedOrigins: []string{"https://app.example.org"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
	req.Header.Set("Origin", "https://app.example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientKey(req, false))

	req.Header.Set("X-Real-IP", "192.0.2.9")
	assert.Equal(t, "192.0.2.1", clientKey(req, false))
	assert.Equal(t, "192.0.2.9", clientKey(req, true))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientKey(req, false))
}
