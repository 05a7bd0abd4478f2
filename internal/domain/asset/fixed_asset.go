package asset

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status represents the depreciation status of an asset
type Status string

const (
	StatusActive           Status = "ACTIVE"
	StatusFullyDepreciated Status = "FULLY_DEPRECIATED"
	StatusDisposed         Status = "DISPOSED"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusFullyDepreciated, StatusDisposed:
		return true
	}
	return false
}

// FixedAsset is a depreciable asset
type FixedAsset struct {
	shared.TenantAggregateRoot
	Code                    string
	Name                    string
	AcquisitionDate         time.Time
	Cost                    decimal.Decimal
	SalvageValue            decimal.Decimal
	UsefulLifeYears         int
	AccumulatedDepreciation decimal.Decimal
	Status                  Status
}

// NewFixedAsset registers an active asset
func NewFixedAsset(tenantID uuid.UUID, code, name string, acquired time.Time, cost, salvage decimal.Decimal, usefulLifeYears int) (*FixedAsset, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Asset code cannot be empty")
	}
	if !cost.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Asset cost must be positive")
	}
	if salvage.IsNegative() || salvage.GreaterThan(cost) {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Salvage value must be between zero and cost")
	}
	if usefulLifeYears <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Useful life must be at least one year")
	}
	if acquired.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Acquisition date is required")
	}
	return &FixedAsset{
		TenantAggregateRoot:     shared.NewTenantAggregateRoot(tenantID),
		Code:                    code,
		Name:                    strings.TrimSpace(name),
		AcquisitionDate:         acquired.UTC(),
		Cost:                    cost,
		SalvageValue:            salvage,
		UsefulLifeYears:         usefulLifeYears,
		AccumulatedDepreciation: decimal.Zero,
		Status:                  StatusActive,
	}, nil
}

// BookValue returns cost minus accumulated depreciation
func (a *FixedAsset) BookValue() decimal.Decimal {
	return a.Cost.Sub(a.AccumulatedDepreciation)
}

// DepreciableRemaining returns what may still be depreciated above salvage
func (a *FixedAsset) DepreciableRemaining() decimal.Decimal {
	return valueobject.NonNegative(a.BookValue().Sub(a.SalvageValue))
}

// MonthlyDepreciation returns the straight-line monthly charge
// (cost − salvage) / (usefulLifeYears × 12), capped at the remaining
// depreciable amount.
func (a *FixedAsset) MonthlyDepreciation() decimal.Decimal {
	months := decimal.NewFromInt(int64(a.UsefulLifeYears * 12))
	monthly := valueobject.Round(a.Cost.Sub(a.SalvageValue).Div(months))
	remaining := a.DepreciableRemaining()
	if monthly.GreaterThan(remaining) {
		return remaining
	}
	return monthly
}

// IsEligible reports whether the asset should be depreciated for a period ending at periodEnd
func (a *FixedAsset) IsEligible(periodEnd time.Time) bool {
	return a.Status == StatusActive && a.AcquisitionDate.Before(periodEnd) && a.DepreciableRemaining().IsPositive()
}

// ApplyDepreciation books amount against the asset
func (a *FixedAsset) ApplyDepreciation(amount decimal.Decimal) error {
	if a.Status != StatusActive {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Asset %s is %s", a.Code, a.Status))
	}
	if !amount.IsPositive() || amount.GreaterThan(a.DepreciableRemaining()) {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Depreciation must be positive and within book value")
	}
	a.AccumulatedDepreciation = a.AccumulatedDepreciation.Add(amount)
	if !a.DepreciableRemaining().IsPositive() {
		a.Status = StatusFullyDepreciated
	}
	a.Touch()
	a.IncrementVersion()
	return nil
}

// Dispose retires the asset
func (a *FixedAsset) Dispose() error {
	if a.Status == StatusDisposed {
		return shared.NewDomainError(shared.CodeInvalidState, "Asset is already disposed")
	}
	a.Status = StatusDisposed
	a.Touch()
	a.IncrementVersion()
	return nil
}

// DepreciationRecord marks an asset as processed for a financial period.
// (AssetID, FinancialYearID, FinancialPeriodID) is unique.
type DepreciationRecord struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	AssetID           uuid.UUID
	FinancialYearID   uuid.UUID
	FinancialPeriodID uuid.UUID
	Amount            decimal.Decimal
	AccountingEntryID uuid.UUID
	CreatedAt         time.Time
}

// SourceID is the correlation id of the depreciation entry
func SourceID(assetID, periodID uuid.UUID) string {
	return assetID.String() + ":" + periodID.String()
}
