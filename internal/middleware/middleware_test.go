package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paiban/roster/pkg/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !limiter.Allow("client1") {
			t.Errorf("第%d次请求应允许", i+1)
		}
	}
	if limiter.Allow("client1") {
		t.Error("第4次请求应拒绝")
	}
	if !limiter.Allow("client2") {
		t.Error("其他客户端应允许")
	}

	// 窗口滑过后恢复
	now = now.Add(time.Minute + time.Second)
	if !limiter.Allow("client1") {
		t.Error("窗口过后应允许")
	}

	now = now.Add(2 * time.Minute)
	limiter.cleanup()
	if len(limiter.requests) != 0 {
		t.Errorf("清理后应无记录，实际 %d", len(limiter.requests))
	}
}

func TestRateLimiter_RunStopsWithContext(t *testing.T) {
	limiter := NewRateLimiter(1, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run 未随 ctx 退出")
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		expected string
	}{
		{"从Bearer提取", func(r *http.Request) { r.Header.Set("Authorization", "Bearer test_key") }, "test_key"},
		{"从X-API-Key提取", func(r *http.Request) { r.Header.Set("X-API-Key", "api_key_123") }, "api_key_123"},
		{"无密钥", func(r *http.Request) {}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			tt.setup(req)
			if got := ExtractAPIKey(req); got != tt.expected {
				t.Errorf("ExtractAPIKey() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestAPIKey(t *testing.T) {
	h := APIKey([]string{"k1", "k2"}, "/health")(ok)
	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{"有效密钥", "/api/v1/roster/solve", "k2", http.StatusOK},
		{"无效密钥", "/api/v1/roster/solve", "bad", http.StatusUnauthorized},
		{"缺少密钥", "/api/v1/roster/solve", "", http.StatusUnauthorized},
		{"跳过路径", "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, expected %d", rec.Code, tt.status)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(NewRateLimiter(1, time.Minute))(ok)
	codes := make([]int, 0, 3)
	for _, addr := range []string{"10.0.0.1:1000", "10.0.0.1:2000", "10.0.0.2:1000"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	expected := []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK}
	for i := range expected {
		if codes[i] != expected[i] {
			t.Errorf("请求%d status = %d, expected %d", i+1, codes[i], expected[i])
		}
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, expected 500", rec.Code)
	}
}

func TestChain_Order(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(logger.RequestIDKey).(string)
	}), RequestID, SecurityHeaders, CORS([]string{"https://a.example"}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("Origin", "https://a.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-1" {
		t.Errorf("上下文请求ID = %q", seen)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://a.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("缺少安全响应头")
	}
}
