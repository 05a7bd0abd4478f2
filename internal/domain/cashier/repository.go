package cashier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
)

// ShiftFilter defines filtering options for shift queries
type ShiftFilter struct {
	shared.Filter
	CashierID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// ShiftClosingRepository defines persistence for shift closings. Rows are insert-only.
type ShiftClosingRepository interface {
	// LockCashier serialises closings of one cashier until the transaction ends
	LockCashier(ctx context.Context, tenantID, cashierID uuid.UUID) error
	// FindOverlapping returns closings of the cashier intersecting [start, end)
	FindOverlapping(ctx context.Context, tenantID, cashierID uuid.UUID, start, end time.Time) ([]*ShiftClosing, error)
	Create(ctx context.Context, closing *ShiftClosing) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ShiftClosing, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ShiftFilter) ([]*ShiftClosing, int64, error)
}
