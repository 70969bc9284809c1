package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func get(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_AllowsUpToMax(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Wrap(okHandler(), RateLimit(ctx, RateLimitConfig{Max: 3, Window: time.Minute}))

	for i := range 3 {
		rec := get(h, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := get(h, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimit_PerClientBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Wrap(okHandler(), RateLimit(ctx, RateLimitConfig{Max: 1, Window: time.Minute}))

	assert.Equal(t, http.StatusOK, get(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "10.0.0.1:1234").Code)

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, get(h, "10.0.0.2:1234").Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Wrap(okHandler(), RateLimit(ctx, RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-API-Key")
		},
	}))

	doKey := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, doKey("key-a"))
	assert.Equal(t, http.StatusTooManyRequests, doKey("key-a"))
	assert.Equal(t, http.StatusOK, doKey("key-b"))
}

func TestRateLimit_ZeroValueConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Max and Window left unset must clamp to a working bucket, not divide
	// by zero.
	h := Wrap(okHandler(), RateLimit(ctx, RateLimitConfig{}))

	assert.Equal(t, http.StatusOK, get(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "10.0.0.1:1234").Code)
}

func TestRateLimit_RefillsOverTime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Wrap(okHandler(), RateLimit(ctx, RateLimitConfig{Max: 1, Window: 50 * time.Millisecond}))

	require.Equal(t, http.StatusOK, get(h, "10.0.0.1:1234").Code)
	require.Equal(t, http.StatusTooManyRequests, get(h, "10.0.0.1:1234").Code)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, http.StatusOK, get(h, "10.0.0.1:1234").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		set  func(r *http.Request)
		want string
	}{
		{
			name: "remote addr",
			set:  func(r *http.Request) { r.RemoteAddr = "10.0.0.9:4567" },
			want: "10.0.0.9",
		},
		{
			name: "x-forwarded-for single",
			set:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.5") },
			want: "203.0.113.5",
		},
		{
			name: "x-forwarded-for chain takes the first hop",
			set:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1") },
			want: "203.0.113.5",
		},
		{
			name: "x-real-ip",
			set:  func(r *http.Request) { r.Header.Set("X-Real-IP", "198.51.100.7") },
			want: "198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.set(req)
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
