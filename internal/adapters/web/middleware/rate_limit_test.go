package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(3, 1*time.Second)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("192.168.1.1:50000") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if limiter.Allow("192.168.1.1:50000") {
		t.Error("4th request should be blocked")
	}

	// A different client has its own window
	if !limiter.Allow("192.168.1.2:50000") {
		t.Error("Request from different client should be allowed")
	}
}

func TestRateLimiterWindowExpiration(t *testing.T) {
	limiter := NewRateLimiter(2, 500*time.Millisecond)

	limiter.Allow("192.168.1.1:50000")
	limiter.Allow("192.168.1.1:50000")

	if limiter.Allow("192.168.1.1:50000") {
		t.Error("Request should be blocked before window expires")
	}

	time.Sleep(600 * time.Millisecond)

	if !limiter.Allow("192.168.1.1:50000") {
		t.Error("Request should be allowed after window expires")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(5, 100*time.Millisecond)

	limiter.Allow("192.168.1.1:50000")
	limiter.Allow("192.168.1.2:50000")
	limiter.Allow("192.168.1.3:50000")

	limiter.mu.Lock()
	initialCount := len(limiter.requests)
	limiter.mu.Unlock()

	if initialCount != 3 {
		t.Errorf("Expected 3 clients in map, got %d", initialCount)
	}

	time.Sleep(150 * time.Millisecond)
	limiter.cleanup()

	limiter.mu.Lock()
	afterCleanup := len(limiter.requests)
	limiter.mu.Unlock()

	if afterCleanup != 0 {
		t.Errorf("Expected 0 clients after cleanup, got %d", afterCleanup)
	}
}

func TestRateLimiterConcurrentAccess(t *testing.T) {
	limiter := NewRateLimiter(10, 1*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				limiter.Allow("192.168.1.1:50000")
			}
		}()
	}
	wg.Wait()

	// 15 requests against a limit of 10: the window is saturated
	if limiter.Allow("192.168.1.1:50000") {
		t.Error("Should have exceeded limit with concurrent requests")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2, 1*time.Second)

	handler := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "203.0.113.5:40000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request(); code != http.StatusOK {
		t.Errorf("First request: got %d, want %d", code, http.StatusOK)
	}
	if code := request(); code != http.StatusOK {
		t.Errorf("Second request: got %d, want %d", code, http.StatusOK)
	}
	if code := request(); code != http.StatusTooManyRequests {
		t.Errorf("Third request: got %d, want %d", code, http.StatusTooManyRequests)
	}
}
