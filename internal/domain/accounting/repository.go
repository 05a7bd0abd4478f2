package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
)

// AccountFilter defines filtering options for account queries
type AccountFilter struct {
	shared.Filter
	Type       *AccountType
	ActiveOnly bool
	Search     string
}

// AccountRepository defines the interface for chart of accounts persistence
type AccountRepository interface {
	// FindByID finds an account by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	// FindByCode finds an account by code within a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)
	// FindByIDs finds accounts by IDs within a tenant
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Account, error)
	// FindAll lists accounts matching the filter
	FindAll(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) ([]*Account, int64, error)
	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error
	// IsReferenced reports whether any posted line uses the account
	IsReferenced(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}

// SystemAccountMappingRepository defines persistence for system account mappings
type SystemAccountMappingRepository interface {
	// FindByKey returns the mapping of key, shared.ErrNotFound when unmapped
	FindByKey(ctx context.Context, tenantID uuid.UUID, key SystemAccountKey) (*SystemAccountMapping, error)
	// FindAll lists all mappings of a tenant
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*SystemAccountMapping, error)
	// Save creates or repoints a mapping
	Save(ctx context.Context, mapping *SystemAccountMapping) error
}

// FinancialYearRepository defines persistence for financial years
type FinancialYearRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FinancialYear, error)
	// FindByIDForUpdate loads the year holding a row lock until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*FinancialYear, error)
	// FindContainingForShare returns the year whose range contains date,
	// shared.ErrNotFound otherwise. The row stays share locked until the
	// transaction ends.
	FindContainingForShare(ctx context.Context, tenantID uuid.UUID, date time.Time) (*FinancialYear, error)
	// FindCurrent returns the tenant's current year
	FindCurrent(ctx context.Context, tenantID uuid.UUID) (*FinancialYear, error)
	// FindAll lists years ordered by start date
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*FinancialYear, error)
	Save(ctx context.Context, year *FinancialYear) error
}

// FinancialPeriodRepository defines persistence for financial periods
type FinancialPeriodRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FinancialPeriod, error)
	// FindByYear lists the periods of a year ordered by number
	FindByYear(ctx context.Context, tenantID, yearID uuid.UUID) ([]*FinancialPeriod, error)
	// SaveBatch creates or updates periods
	SaveBatch(ctx context.Context, periods []*FinancialPeriod) error
	Save(ctx context.Context, period *FinancialPeriod) error
}

// EntryFilter defines filtering options for entry queries
type EntryFilter struct {
	shared.Filter
	From              *time.Time
	To                *time.Time
	SourceModule      *SourceModule
	SourceID          string
	FinancialYearID   *uuid.UUID
	FinancialPeriodID *uuid.UUID
}

// LineFilter selects posted lines for aggregation
type LineFilter struct {
	AccountID       *uuid.UUID
	FinancialYearID *uuid.UUID
	// From is inclusive, To is exclusive
	From *time.Time
	To   *time.Time
}

// AccountingEntryRepository defines persistence for the ledger.
// Entries are insert-only.
type AccountingEntryRepository interface {
	// Create inserts the header and every line atomically
	Create(ctx context.Context, entry *AccountingEntry) error
	// FindByID loads an entry with its lines
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*AccountingEntry, error)
	// FindBySource finds the entry produced by a source record
	FindBySource(ctx context.Context, tenantID uuid.UUID, source SourceModule, sourceID string) (*AccountingEntry, error)
	// FindReversalOf finds the entry reversing id, if any
	FindReversalOf(ctx context.Context, tenantID, id uuid.UUID) (*AccountingEntry, error)
	// FindAll lists entry headers
	FindAll(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]*AccountingEntry, int64, error)
	// FindLines returns posted lines joined with their headers, ordered by entry date
	FindLines(ctx context.Context, tenantID uuid.UUID, filter LineFilter) ([]PostedLine, error)
	// CountBySource counts entries for a source record
	CountBySource(ctx context.Context, tenantID uuid.UUID, source SourceModule, sourceID string) (int64, error)
}
