package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labroster/labroster/internal/security"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value("request_id").(string)
	}))

	t.Run("自动生成", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("应在响应头中返回 X-Request-ID")
		}
		if seen == "" {
			t.Error("应将请求ID写入context")
		}
	})

	t.Run("沿用请求头", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("X-Request-ID") != "req-123" {
			t.Errorf("应沿用已有请求ID, got %s", rec.Header().Get("X-Request-ID"))
		}
		if seen != "req-123" {
			t.Errorf("context中的请求ID = %s, expected req-123", seen)
		}
	})
}

func TestAPIKeyAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		key        string
		skipPaths  []string
		path       string
		setup      func(r *http.Request)
		wantStatus int
	}{
		{
			name:       "未配置密钥时放行",
			key:        "",
			path:       "/api/v1/staff",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusOK,
		},
		{
			name:       "缺少密钥拒绝",
			key:        "secret",
			path:       "/api/v1/staff",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "错误密钥拒绝",
			key:  "secret",
			path: "/api/v1/staff",
			setup: func(r *http.Request) {
				r.Header.Set("X-API-Key", "wrong")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "正确密钥放行",
			key:  "secret",
			path: "/api/v1/staff",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer secret")
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "跳过路径免鉴权",
			key:        "secret",
			skipPaths:  []string{"/health"},
			path:       "/health",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyAuth(tt.key, tt.skipPaths)(next)
			req := httptest.NewRequest("GET", tt.path, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, expected %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAPIKeyAuth_ErrorBody(t *testing.T) {
	handler := APIKeyAuth("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/staff", nil))

	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("响应应为JSON: %v", err)
	}
	if body["code"] != "UNAUTHORIZED" {
		t.Errorf("code = %v, expected UNAUTHORIZED", body["code"])
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("通配放行", func(t *testing.T) {
		handler := CORS([]string{"*"})(next)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("应允许任意来源")
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("普通请求应透传, status = %d", rec.Code)
		}
	})

	t.Run("预检短路", func(t *testing.T) {
		handler := CORS(nil)(next)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("OPTIONS 预检应直接返回200, status = %d", rec.Code)
		}
	})

	t.Run("指定来源匹配", func(t *testing.T) {
		handler := CORS([]string{"https://lab.example.com"})(next)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://lab.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") != "https://lab.example.com" {
			t.Error("匹配的来源应被回显")
		}

		req2 := httptest.NewRequest("GET", "/", nil)
		req2.Header.Set("Origin", "https://evil.example.com")
		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, req2)

		if rec2.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("不匹配的来源不应放行")
		}
	})
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(security.NewRateLimiter(1))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 速率1qps 桶容量2，连续请求最终触发限流
	limited := false
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if rec.Header().Get("Retry-After") == "" {
				t.Error("限流响应应携带 Retry-After")
			}
			break
		}
	}
	if !limited {
		t.Error("连续请求应触发限流")
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("模拟崩溃")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panic 应转换为500, status = %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("响应应为JSON: %v", err)
	}
	if body["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %v, expected INTERNAL_ERROR", body["code"])
	}
}

func TestChain(t *testing.T) {
	cfg := &Config{
		APIKey:      "chain-key",
		RateLimit:   100,
		CORSEnabled: true,
		CORSOrigins: []string{"*"},
		SkipPaths:   []string{"/health"},
	}

	handler := Chain(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("健康检查免鉴权", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, expected 200", rec.Code)
		}
	})

	t.Run("业务路径需要密钥", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/staff", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, expected 401", rec.Code)
		}
	})

	t.Run("携带密钥通过全链", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/staff", nil)
		req.Header.Set("X-API-Key", "chain-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, expected 200", rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("全链响应应包含请求ID")
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("全链响应应包含安全头")
		}
	})
}
