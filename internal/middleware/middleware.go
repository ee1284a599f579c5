// Package middleware 提供HTTP中间件链
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labroster/labroster/internal/metrics"
	"github.com/labroster/labroster/internal/security"
	apperrors "github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/logger"
)

// Config 中间件配置
type Config struct {
	APIKey      string   // 为空时关闭鉴权
	RateLimit   int      // 每秒请求数上限，<=0 时关闭限流
	CORSEnabled bool
	CORSOrigins []string
	SkipPaths   []string // 跳过鉴权的路径前缀
}

// Chain 组装标准中间件链
// 执行顺序：requestID -> recovery -> securityHeaders -> rateLimit -> cors -> auth -> logging -> handler
func Chain(cfg *Config, next http.Handler) http.Handler {
	h := Logging(next)
	h = APIKeyAuth(cfg.APIKey, cfg.SkipPaths)(h)
	if cfg.CORSEnabled {
		h = CORS(cfg.CORSOrigins)(h)
	}
	if cfg.RateLimit > 0 {
		h = RateLimit(security.NewRateLimiter(float64(cfg.RateLimit)))(h)
	}
	h = SecurityHeaders(h)
	h = Recovery(h)
	return RequestID(h)
}

// RequestID 请求ID追踪中间件
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 尝试从请求头获取 Request ID，没有则生成新的
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		// 存入 context，日志器会自动附带
		ctx := context.WithValue(r.Context(), "request_id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recovery 恢复中间件（捕获panic）
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithContext(r.Context()).Error().
					Interface("panic", err).
					Str("path", r.URL.Path).
					Msg("请求处理发生panic")
				writeError(w, http.StatusInternalServerError, apperrors.CodeInternal, "服务器内部错误")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RateLimit 限流中间件
func RateLimit(limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, apperrors.CodeRateLimited, "请求过于频繁，请稍后重试")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS CORS中间件
func CORS(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyAuth 静态API密钥鉴权中间件，key 为空时直接放行
func APIKeyAuth(key string, skipPaths []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			for _, path := range skipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			provided := security.ExtractAPIKey(r)
			if provided == "" {
				writeError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "API密钥未提供")
				return
			}
			if !security.VerifyKey(provided, key) {
				logger.WithContext(r.Context()).Warn().
					Str("path", r.URL.Path).
					Msg("API密钥验证失败")
				writeError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "无效的API密钥")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Logging 日志中间件，记录请求日志并上报指标
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包装ResponseWriter以捕获状态码
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.WithContext(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// SecurityHeaders 安全头中间件
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		next.ServeHTTP(w, r)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeError(w http.ResponseWriter, status int, code apperrors.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    string(code),
		"message": message,
	})
}
