package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which events a consumer has already handled
type IdempotencyStore interface {
	// MarkProcessed records eventID and reports whether it was new
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Release forgets eventID so a failed attempt can be redelivered
	Release(ctx context.Context, eventID string) error
	Close() error
}

// IdempotencyConfig controls duplicate suppression for event consumers
type IdempotencyConfig struct {
	Enabled bool
	// TTL must exceed the longest outbox retry schedule, otherwise a late
	// redelivery is handled twice
	TTL time.Duration
}

// DefaultIdempotencyConfig keeps processed ids for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: 24 * time.Hour}
}
