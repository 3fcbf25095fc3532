package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"example.com/craftshop/pkg/logger"
)

// incrWithExpire атомарно увеличивает счётчик и выставляет TTL при первом инкременте.
var incrWithExpire = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("EXPIRE", KEYS[1], ARGV[1])
	end
	return current
`)

// RateLimit — ограничение частоты запросов по IP через Redis.
// При недоступном Redis запросы пропускаются (fail-open): деградация
// защиты предпочтительнее недоступности магазина.
type RateLimit struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimit создаёт rate limiter. Значения по умолчанию: 100 запросов в минуту.
func NewRateLimit(redisClient *redis.Client, limit int, window time.Duration) *RateLimit {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimit{redis: redisClient, limit: limit, window: window}
}

// Handle возвращает Gin handler function для middleware.
func (m *RateLimit) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "ratelimit:" + c.ClientIP()

		count, err := incrWithExpire.Run(ctx, m.redis, []string{key}, int(m.window.Seconds())).Int()
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("Ошибка проверки rate limit, запрос пропущен")
			c.Next()
			return
		}

		remaining := m.limit - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", m.limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > m.limit {
			log := logger.FromContext(ctx)
			log.Warn().
				Str("client_ip", c.ClientIP()).
				Int("limit", m.limit).
				Msg("Rate limit превышен")

			c.Header("Retry-After", fmt.Sprintf("%d", int(m.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Превышен лимит запросов, попробуйте позже",
			})
			return
		}

		c.Next()
	}
}
