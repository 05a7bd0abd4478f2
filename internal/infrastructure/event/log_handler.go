package event

import (
	"context"

	"github.com/medierp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// DeliveryLogHandler writes one structured log line per delivered event
type DeliveryLogHandler struct {
	logger *zap.Logger
	types  []string
}

// NewDeliveryLogHandler logs eventTypes, or every event when none are given
func NewDeliveryLogHandler(logger *zap.Logger, eventTypes ...string) *DeliveryLogHandler {
	return &DeliveryLogHandler{logger: logger, types: eventTypes}
}

// Name identifies the consumer
func (h *DeliveryLogHandler) Name() string { return "delivery-log" }

// EventTypes returns the subscribed types
func (h *DeliveryLogHandler) EventTypes() []string { return h.types }

// Handle logs the event envelope
func (h *DeliveryLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("domain event delivered",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}
