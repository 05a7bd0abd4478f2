package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey struct{}

// scope is the request scoped state carried in a context
type scope struct {
	log       *zap.Logger
	requestID string
	tenantID  string
	userID    string
}

func scopeFrom(ctx context.Context) scope {
	if s, ok := ctx.Value(contextKey{}).(scope); ok {
		return s
	}
	return scope{}
}

// WithContext returns a context carrying log
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	s := scopeFrom(ctx)
	s.log = log
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the logger stored in ctx, tagged with the trace and
// span of the active span. It never returns nil.
func FromContext(ctx context.Context) *zap.Logger {
	log := scopeFrom(ctx).log
	if log == nil {
		log = zap.NewNop()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		log = log.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return log
}

// WithRequestID records the request id and tags the stored logger with it
func WithRequestID(ctx context.Context, requestID string) context.Context {
	s := scopeFrom(ctx)
	s.requestID = requestID
	s.log = tagged(s.log, "request_id", requestID)
	return context.WithValue(ctx, contextKey{}, s)
}

// WithTenantID records the tenant and tags the stored logger with it
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	s := scopeFrom(ctx)
	s.tenantID = tenantID
	s.log = tagged(s.log, "tenant_id", tenantID)
	return context.WithValue(ctx, contextKey{}, s)
}

// WithUserID records the acting user and tags the stored logger with it
func WithUserID(ctx context.Context, userID string) context.Context {
	s := scopeFrom(ctx)
	s.userID = userID
	s.log = tagged(s.log, "user_id", userID)
	return context.WithValue(ctx, contextKey{}, s)
}

// RequestID returns the request id stored in ctx
func RequestID(ctx context.Context) string { return scopeFrom(ctx).requestID }

// TenantID returns the tenant stored in ctx
func TenantID(ctx context.Context) string { return scopeFrom(ctx).tenantID }

// UserID returns the acting user stored in ctx
func UserID(ctx context.Context) string { return scopeFrom(ctx).userID }

func tagged(log *zap.Logger, key, value string) *zap.Logger {
	if log == nil {
		return nil
	}
	return log.With(zap.String(key, value))
}
