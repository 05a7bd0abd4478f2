// Package middleware holds the gin middleware chain of the ledger API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/medierp/ledger/internal/infrastructure/logger"
)

// ErrorCodeKey is where handlers record the error code they answered with
const ErrorCodeKey = "response_error_code"

// Tracing starts a server span per request. Disabled tracing passes
// straight through.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName)
}

// SpanAttributes tags the request span with the request, tenant and user
// and marks it failed when the handler answered with an error code. It
// must run after JWTAuth.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := c.GetString(logger.GinRequestIDKey); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if id, ok := GetTenantID(c); ok {
			span.SetAttributes(attribute.String("tenant_id", id.String()))
		}
		if id, ok := GetUserID(c); ok {
			span.SetAttributes(attribute.String("user_id", id.String()))
		}

		c.Next()

		code := c.GetString(ErrorCodeKey)
		if code == "" {
			return
		}
		span.SetAttributes(attribute.String("error.code", code))
		if c.Writer.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, code)
		}
	}
}
