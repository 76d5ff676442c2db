package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/redis"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// SlidingWindow is the limiter backend, implemented by *redis.Client
type SlidingWindow interface {
	AllowSlidingWindow(ctx context.Context, key string, limit int, window time.Duration) (redis.RateDecision, error)
}

// RateLimiterConfig 限流配置
type RateLimiterConfig struct {
	// 时间窗口内允许的最大请求数
	MaxRequests int
	// 时间窗口
	Window time.Duration
	// key 前缀，区分不同端点
	Scope string
}

// RateLimiter 基于 Redis 的滑动窗口限流中间件，按客户端 IP 计数
func RateLimiter(limiter SlidingWindow, cfg RateLimiterConfig, log *logger.Logger) gin.HandlerFunc {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 20
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Scope == "" {
		cfg.Scope = "default"
	}

	return func(c *gin.Context) {
		key := buildRateLimitKey(c, cfg.Scope)

		decision, err := limiter.AllowSlidingWindow(c.Request.Context(), key, cfg.MaxRequests, cfg.Window)
		if err != nil {
			log.WithContext(c.Request.Context()).Error("rate limiter error", zap.Error(err), zap.String("key", key))
			// 限流器故障时，降级允许请求通过
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retry := max(int(time.Until(decision.ResetAt).Seconds()+0.5), 1)
			c.Header("Retry-After", strconv.Itoa(retry))
			response.TooManyRequests(c)
			return
		}

		c.Next()
	}
}

// buildRateLimitKey 构建限流 key，使用身份中间件解析出的客户端 IP
func buildRateLimitKey(c *gin.Context, scope string) string {
	ip := identity.FromContext(c.Request.Context()).Location.IP
	if ip == "" {
		ip = identity.ClientIP(c.Request)
	}
	return fmt.Sprintf("%s:ip:%s", scope, ip)
}
