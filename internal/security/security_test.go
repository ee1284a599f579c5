package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		expected string
	}{
		{
			name: "从Bearer提取",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer test_key")
			},
			expected: "test_key",
		},
		{
			name: "从X-API-Key提取",
			setup: func(r *http.Request) {
				r.Header.Set("X-API-Key", "api_key_123")
			},
			expected: "api_key_123",
		},
		{
			name: "从query参数提取",
			setup: func(r *http.Request) {
				q := r.URL.Query()
				q.Set("api_key", "query_key")
				r.URL.RawQuery = q.Encode()
			},
			expected: "query_key",
		},
		{
			name: "Bearer优先于X-API-Key",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer bearer_key")
				r.Header.Set("X-API-Key", "header_key")
			},
			expected: "bearer_key",
		},
		{
			name:     "无密钥",
			setup:    func(r *http.Request) {},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			tt.setup(req)

			result := ExtractAPIKey(req)
			if result != tt.expected {
				t.Errorf("ExtractAPIKey() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestVerifyKey(t *testing.T) {
	tests := []struct {
		name     string
		provided string
		expected string
		want     bool
	}{
		{"匹配", "secret123", "secret123", true},
		{"不匹配", "wrong", "secret123", false},
		{"配置为空时拒绝", "anything", "", false},
		{"提供为空时拒绝", "", "secret123", false},
		{"双空拒绝", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyKey(tt.provided, tt.expected); got != tt.want {
				t.Errorf("VerifyKey(%q, %q) = %v, expected %v", tt.provided, tt.expected, got, tt.want)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(5)

	// 桶容量为 2 倍速率，前10次应全部放行
	for i := 0; i < 10; i++ {
		if !limiter.Allow() {
			t.Errorf("第 %d 次请求应被放行", i+1)
		}
	}

	// 桶已耗尽
	if limiter.Allow() {
		t.Error("令牌耗尽后应拒绝请求")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	limiter := NewRateLimiter(10)
	limiter.tokens = 0

	// 手动回拨补充时间，模拟 1 秒流逝
	limiter.lastRefill = limiter.lastRefill.Add(-time.Second)

	if !limiter.Allow() {
		t.Error("补充令牌后应放行请求")
	}
}
