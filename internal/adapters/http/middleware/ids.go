package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/promptlib/internal/platform/logging"
)

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"

	ContextKeyRequestID     = "request_id"
	ContextKeyCorrelationID = "correlation_id"
)

type idMiddlewareConfig struct {
	header   string
	key      string
	withCtx  func(context.Context, string) context.Context
	withLogs func(context.Context, string) context.Context
}

// RequestID reads X-Request-ID or mints a UUID, echoes it on the response and
// stores it for handlers, the context logger and outbound calls.
func RequestID() gin.HandlerFunc {
	return idMiddleware(idMiddlewareConfig{
		header:   HeaderRequestID,
		key:      ContextKeyRequestID,
		withCtx:  ContextWithRequestID,
		withLogs: logging.WithRequestID,
	})
}

// CorrelationID is RequestID for X-Correlation-ID. Unlike the request ID it is
// meant to span a whole transaction, so an upstream value is always kept.
func CorrelationID() gin.HandlerFunc {
	return idMiddleware(idMiddlewareConfig{
		header:   HeaderCorrelationID,
		key:      ContextKeyCorrelationID,
		withCtx:  ContextWithCorrelationID,
		withLogs: logging.WithCorrelationID,
	})
}

func GetRequestID(c *gin.Context) string     { return c.GetString(ContextKeyRequestID) }
func GetCorrelationID(c *gin.Context) string { return c.GetString(ContextKeyCorrelationID) }

func idMiddleware(cfg idMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(cfg.header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(cfg.key, id)
		c.Header(cfg.header, id)

		ctx := cfg.withCtx(c.Request.Context(), id)
		ctx = cfg.withLogs(ctx, id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
