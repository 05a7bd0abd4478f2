package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
)

// BaseModel carries the id and timestamps of every table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to a domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from a domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt.UTC()
	m.UpdatedAt = e.UpdatedAt.UTC()
}

// AggregateModel holds the columns shared by aggregate roots. Version
// backs optimistic locking on updates. Each table declares its own
// tenant_id so it can take part in composite indexes.
type AggregateModel struct {
	BaseModel
	Version   int        `gorm:"not null;default:1"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

// FromDomainTenantAggregateRoot populates the model from a domain aggregate
func (m *AggregateModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.Version = t.Version
	m.CreatedBy = t.CreatedBy
}

// PopulateTenantAggregateRoot fills a domain aggregate root from the model
func (m *AggregateModel) PopulateTenantAggregateRoot(t *shared.TenantAggregateRoot, tenantID uuid.UUID) {
	t.ID = m.ID
	t.CreatedAt = m.CreatedAt.UTC()
	t.UpdatedAt = m.UpdatedAt.UTC()
	t.Version = m.Version
	t.TenantID = tenantID
	t.CreatedBy = m.CreatedBy
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
