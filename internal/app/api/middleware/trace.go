package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/getdigitalpayments/paybridge/pkg/logctx"
	"github.com/getdigitalpayments/paybridge/pkg/tool"
)

const requestIDHeader = "X-Request-ID"

// TraceMiddleware puts a trace ID on the request context.
// A client supplied X-Request-ID wins over a generated UUIDv7.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(requestIDHeader)
		if traceID == "" {
			traceID = tool.GenerateUUIDV7()
		}

		c.Set(string(logctx.TraceIDKey), traceID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logctx.TraceIDKey, traceID))
		c.Next()
	}
}
