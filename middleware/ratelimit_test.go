package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func fixedLimiter(limit rate.Limit, burst int, now *time.Time) *ipLimiter {
	return &ipLimiter{
		limit:    limit,
		burst:    burst,
		visitors: make(map[string]*visitor),
		now:      func() time.Time { return *now },
	}
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/verify-code", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_PerClient(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	l := fixedLimiter(rate.Every(time.Minute), 3, &now)
	h := rateLimitWith(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusNoContent, hit(h, "203.0.113.7:5000").Code)
	}
	rec := hit(h, "203.0.113.7:5001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "the port does not identify the client")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too many requests")

	assert.Equal(t, http.StatusNoContent, hit(h, "198.51.100.2:5000").Code, "other clients keep their own budget")

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, hit(h, "203.0.113.7:5000").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "203.0.113.7:5000").Code)
}

func TestRateLimit_RejectedRequestsDoNotDrainBudget(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	l := fixedLimiter(rate.Every(time.Minute), 1, &now)
	h := rateLimitWith(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	require.Equal(t, http.StatusNoContent, hit(h, "203.0.113.7:1").Code)
	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusTooManyRequests, hit(h, "203.0.113.7:1").Code)
	}
	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, hit(h, "203.0.113.7:1").Code)
}

func TestRateLimit_SweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	l := fixedLimiter(rate.Every(time.Minute), 1, &now)
	h := rateLimitWith(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	hit(h, "203.0.113.7:1")
	hit(h, "198.51.100.2:1")
	require.Len(t, l.visitors, 2)

	now = now.Add(visitorIdle + time.Second)
	hit(h, "192.0.2.1:1")
	assert.Len(t, l.visitors, 1)
}

func TestRateLimit_ZeroDisables(t *testing.T) {
	h := RateLimit(0, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusNoContent, hit(h, "203.0.113.7:1").Code)
	}
}
