package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/cashier"
	"github.com/shopspring/decimal"
)

// ShiftClosingModel is an insert-only shift reconciliation. On PostgreSQL
// an exclusion constraint over tstzrange(range_start, range_end) backs the
// overlap rule; see migrations.
type ShiftClosingModel struct {
	BaseModel
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_shift_cashier_range,priority:1"`
	CashierID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_shift_cashier_range,priority:2"`
	RangeStart        time.Time       `gorm:"not null;index:idx_shift_cashier_range,priority:3"`
	RangeEnd          time.Time       `gorm:"not null"`
	SystemCashTotal   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	ActualCashTotal   decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	Difference        decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	Note              string          `gorm:"type:text"`
	AccountingEntryID *uuid.UUID      `gorm:"type:uuid"`
	ClosedBy          *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ShiftClosingModel) TableName() string {
	return "shift_closings"
}

// ToDomain converts the model to a domain ShiftClosing
func (m *ShiftClosingModel) ToDomain() *cashier.ShiftClosing {
	return &cashier.ShiftClosing{
		BaseEntity:        m.BaseModel.ToDomain(),
		TenantID:          m.TenantID,
		CashierID:         m.CashierID,
		RangeStart:        m.RangeStart.UTC(),
		RangeEnd:          m.RangeEnd.UTC(),
		SystemCashTotal:   m.SystemCashTotal,
		ActualCashTotal:   m.ActualCashTotal,
		Difference:        m.Difference,
		Note:              m.Note,
		AccountingEntryID: m.AccountingEntryID,
		ClosedBy:          m.ClosedBy,
	}
}

// ShiftClosingModelFromDomain creates a model from a domain ShiftClosing
func ShiftClosingModelFromDomain(s *cashier.ShiftClosing) *ShiftClosingModel {
	m := &ShiftClosingModel{
		TenantID:          s.TenantID,
		CashierID:         s.CashierID,
		RangeStart:        s.RangeStart.UTC(),
		RangeEnd:          s.RangeEnd.UTC(),
		SystemCashTotal:   s.SystemCashTotal,
		ActualCashTotal:   s.ActualCashTotal,
		Difference:        s.Difference,
		Note:              s.Note,
		AccountingEntryID: s.AccountingEntryID,
		ClosedBy:          s.ClosedBy,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// CashierShiftLockModel is the per-cashier row locked while a shift closes
type CashierShiftLockModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CashierID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CashierShiftLockModel) TableName() string {
	return "cashier_shift_locks"
}
