// Package middleware содержит HTTP middleware магазина.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/craftshop/pkg/logger"
)

// HTTP заголовки для трассировки.
const (
	HeaderTraceID       = "X-Trace-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID" // Алиас для Trace ID
)

// Tracing добавляет trace_id и correlation_id к каждому запросу.
// Идентификаторы берутся из заголовков или генерируются, попадают
// в контекст (и далее в логи и заголовки событий Kafka) и в ответ.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = c.GetHeader(HeaderRequestID)
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		ctx := logger.NewContextWithIDs(c.Request.Context(), traceID, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderTraceID, traceID)
		c.Header(HeaderCorrelationID, correlationID)

		log := logger.FromContext(ctx)
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Msg("Входящий запрос")

		c.Next()

		statusCode := c.Writer.Status()
		logEvent := log.Info()
		if statusCode >= 400 {
			logEvent = log.Warn()
		}
		if statusCode >= 500 {
			logEvent = log.Error()
		}

		logEvent.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Msg("Запрос завершён")
	}
}
