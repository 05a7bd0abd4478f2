package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medierp/ledger/internal/infrastructure/telemetry"
)

// Profiling attaches pyroscope labels (resource, route, method, tenant) to
// the goroutine serving the request. It must run after JWTAuth.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		tenant := ""
		if id, ok := GetTenantID(c); ok {
			tenant = id.String()
		}
		labels := telemetry.HTTPRequestLabels(resourceOf(route), route, c.Request.Method, tenant)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceOf returns the first static segment after /api/v1,
// e.g. "invoices" for /api/v1/invoices/:id/payments
func resourceOf(route string) string {
	for _, part := range strings.Split(strings.TrimPrefix(route, "/api/v1"), "/") {
		if part != "" && !strings.HasPrefix(part, ":") && !strings.HasPrefix(part, "*") {
			return part
		}
	}
	return ""
}
