package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/richxcame/giveaway/pkg/common"
	"github.com/richxcame/giveaway/pkg/logger"
	"go.uber.org/zap"
)

// Limiter is a fixed-window request limiter over Redis. Each client IP gets
// a counter per window; the counter expires with the window, so there is
// nothing to sweep.
type Limiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewLimiter creates a limiter allowing limit requests per window per client
func NewLimiter(client redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "rl",
		now:    time.Now,
	}
}

// Allow counts one request for the key and reports whether it is within the
// limit. Redis failures allow the request: rate limiting protects capacity,
// it must not become the outage itself.
func (l *Limiter) Allow(c *gin.Context, key string) bool {
	ctx := c.Request.Context()
	window := l.now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, window)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		return true
	}

	return count.Val() <= int64(l.limit)
}

// Middleware enforces the limit per client IP
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c, c.ClientIP()) {
			common.ErrorResponse(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
