package shared

import "github.com/google/uuid"

// EventSource buffers the domain events an aggregate raised until the
// surrounding transaction moves them to the outbox
type EventSource interface {
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// TenantAggregateRoot is embedded by every tenant-owned aggregate.
// Version starts at 1; repositories update with WHERE version = Version-1
// after a mutation bumped it.
type TenantAggregateRoot struct {
	BaseEntity
	TenantID  uuid.UUID
	Version   int
	CreatedBy *uuid.UUID

	pending []DomainEvent
}

// NewTenantAggregateRoot creates the root of a new aggregate owned by tenantID
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseEntity: NewBaseEntity(),
		TenantID:   tenantID,
		Version:    1,
	}
}

// IncrementVersion marks one more committed mutation
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
}

// SetCreatedBy records the acting user; the nil id is ignored
func (a *TenantAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	if userID != uuid.Nil {
		a.CreatedBy = &userID
	}
}

// BelongsTo reports whether tenantID owns the aggregate
func (a *TenantAggregateRoot) BelongsTo(tenantID uuid.UUID) bool {
	return a.TenantID == tenantID
}

// AddDomainEvent queues an event for the outbox
func (a *TenantAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events
func (a *TenantAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events once recorded
func (a *TenantAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
