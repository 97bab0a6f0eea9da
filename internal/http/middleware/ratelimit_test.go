package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c.Request = req

	if key := KeyByUserOrIP()(c); key != "ip:203.0.113.9" {
		t.Fatalf("expected ip-based key; got %q", key)
	}
	c.Set(userIDKey, "u123")
	if key := KeyByUserOrIP()(c); key != "user:u123" {
		t.Fatalf("expected user-based key; got %q", key)
	}
}

func TestRateLimiter_BurstCoercionAndReuse(t *testing.T) {
	rl := NewRateLimiter(2, 0, KeyByUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}
	lim := rl.getVisitor("k1")
	if rl.getVisitor("k1") != lim {
		t.Fatalf("expected the same limiter to be reused")
	}
}

func TestRateLimiter_SweepEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByUserOrIP())
	rl.ttl = time.Millisecond
	rl.sweepAt = 2

	old := rl.getVisitor("old")
	time.Sleep(5 * time.Millisecond)
	rl.getVisitor("new") // second lookup triggers the sweep first

	rl.mu.Lock()
	_, stillThere := rl.visitors["old"]
	rl.mu.Unlock()
	if stillThere {
		t.Fatalf("idle visitor should have been evicted")
	}
	if rl.getVisitor("old") == old {
		t.Fatalf("expected a fresh limiter after eviction")
	}
}

func TestRateLimiter_Handler429AndBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.5, 1, func(*gin.Context) string { return "same" })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Replay") == "1" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(rateLimited)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected 429 with Retry-After=2, got %d %q", w.Code, w.Header().Get("Retry-After"))
	}
	if !strings.Contains(w.Body.String(), "too_many_requests") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if got := testutil.ToFloat64(rateLimited) - before; got != 1 {
		t.Fatalf("rate_limited counter delta = %v", got)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Replay", "1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("replay should bypass limiter, got %d", w.Code)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := map[rate.Limit]int{0: 1, rate.Inf: 1, 10: 1, 1: 1, 0.25: 4}
	for in, want := range cases {
		if got := retryAfterSeconds(in); got != want {
			t.Errorf("retryAfterSeconds(%v)=%d want %d", in, got, want)
		}
	}
}
