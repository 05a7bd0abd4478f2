package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate and delivered through the
// outbox. EventID is the idempotency key consumers deduplicate on.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// EventHeader is embedded by every ledger event. Its fields are part of
// the stored outbox payload, so the json names must stay stable.
type EventHeader struct {
	ID        uuid.UUID `json:"event_id"`
	Type      string    `json:"event_type"`
	Occurred  time.Time `json:"occurred_at"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	Kind      string    `json:"aggregate_type"`
	Tenant    uuid.UUID `json:"tenant_id"`
}

// NewEventHeader stamps a new event of eventType raised by the aggregate
// kind/id of tenantID
func NewEventHeader(eventType, kind string, aggregateID, tenantID uuid.UUID) EventHeader {
	return EventHeader{
		ID:        uuid.New(),
		Type:      eventType,
		Occurred:  time.Now().UTC(),
		Aggregate: aggregateID,
		Kind:      kind,
		Tenant:    tenantID,
	}
}

func (h EventHeader) EventID() uuid.UUID     { return h.ID }
func (h EventHeader) EventType() string      { return h.Type }
func (h EventHeader) OccurredAt() time.Time  { return h.Occurred }
func (h EventHeader) AggregateID() uuid.UUID { return h.Aggregate }
func (h EventHeader) AggregateType() string  { return h.Kind }
func (h EventHeader) TenantID() uuid.UUID    { return h.Tenant }
