package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
)

// SystemAccountKey names an accounting role resolved per tenant at posting time
type SystemAccountKey string

const (
	KeyCashMain                SystemAccountKey = "CASH_MAIN"
	KeyCashShortOver           SystemAccountKey = "CASH_SHORT_OVER"
	KeyBank                    SystemAccountKey = "BANK"
	KeyCardClearing            SystemAccountKey = "CARD_CLEARING"
	KeyPatientReceivable       SystemAccountKey = "PATIENT_RECEIVABLE"
	KeyServiceRevenue          SystemAccountKey = "SERVICE_REVENUE"
	KeySalesReturns            SystemAccountKey = "SALES_RETURNS"
	KeyRetainedEarnings        SystemAccountKey = "RETAINED_EARNINGS"
	KeyDepreciationExpense     SystemAccountKey = "DEPRECIATION_EXPENSE"
	KeyAccumulatedDepreciation SystemAccountKey = "ACCUMULATED_DEPRECIATION"
)

// AllSystemAccountKeys lists every supported key
func AllSystemAccountKeys() []SystemAccountKey {
	return []SystemAccountKey{
		KeyCashMain, KeyCashShortOver, KeyBank, KeyCardClearing,
		KeyPatientReceivable, KeyServiceRevenue, KeySalesReturns,
		KeyRetainedEarnings, KeyDepreciationExpense, KeyAccumulatedDepreciation,
	}
}

// IsValid checks if the key is known
func (k SystemAccountKey) IsValid() bool {
	for _, known := range AllSystemAccountKeys() {
		if k == known {
			return true
		}
	}
	return false
}

// String returns the string representation of SystemAccountKey
func (k SystemAccountKey) String() string {
	return string(k)
}

// SystemAccountMapping binds a key to an account for one tenant.
// There is at most one mapping per key per tenant.
type SystemAccountMapping struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Key       SystemAccountKey
	AccountID uuid.UUID
	UpdatedBy *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSystemAccountMapping creates a mapping
func NewSystemAccountMapping(tenantID uuid.UUID, key SystemAccountKey, account *Account) (*SystemAccountMapping, error) {
	if !key.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown system account key")
	}
	if err := checkMappable(tenantID, account); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &SystemAccountMapping{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Key:       key,
		AccountID: account.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Repoint moves the mapping to another account
func (m *SystemAccountMapping) Repoint(account *Account, by uuid.UUID) error {
	if err := checkMappable(m.TenantID, account); err != nil {
		return err
	}
	m.AccountID = account.ID
	if by != uuid.Nil {
		m.UpdatedBy = &by
	}
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func checkMappable(tenantID uuid.UUID, account *Account) error {
	if account == nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Account is required")
	}
	if !account.BelongsTo(tenantID) {
		return shared.ErrTenantMismatch
	}
	if !account.IsActive {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot map an inactive account")
	}
	return nil
}
