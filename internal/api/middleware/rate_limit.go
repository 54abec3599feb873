package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"pantry-matcher/internal/pkg/common"
)

// maxTrackedClients 同時追蹤的用戶端數量上限
const maxTrackedClients = 4096

// RateLimiter 令牌桶限流器
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
	now      func() time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: now(),
		now:      now,
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now

	// 添加新令牌
	if elapsed > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)
	}

	// 檢查是否有可用令牌
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// RateLimit 依用戶端 IP 限流的中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return rateLimit(requests, window, time.Now)
}

func rateLimit(requests int, window time.Duration, now func() time.Time) gin.HandlerFunc {
	var mu sync.Mutex
	clients, _ := lru.New[string, *RateLimiter](maxTrackedClients)

	limiterFor := func(ip string) *RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		if rl, ok := clients.Get(ip); ok {
			return rl
		}
		rl := NewRateLimiter(requests, window, now)
		clients.Add(ip, rl)
		return rl
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			abort(c, http.StatusTooManyRequests, common.ErrTooManyRequests, "")
			return
		}

		c.Next()
	}
}
