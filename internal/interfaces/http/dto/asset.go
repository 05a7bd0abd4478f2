package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medierp/ledger/internal/domain/asset"
)

// RegisterAssetRequest registers a fixed asset for straight-line
// depreciation
type RegisterAssetRequest struct {
	Code            string `json:"code" binding:"required,max=32"`
	Name            string `json:"name" binding:"required,max=200"`
	AcquisitionDate string `json:"acquisition_date" binding:"required,datetime=2006-01-02"`
	Cost            string `json:"cost" binding:"required,money_pos"`
	SalvageValue    string `json:"salvage_value" binding:"omitempty,money_nonneg"`
	UsefulLifeYears int    `json:"useful_life_years" binding:"required,min=1,max=100"`
}

// RunDepreciationRequest runs depreciation for the period containing date
type RunDepreciationRequest struct {
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// FixedAssetResponse is the wire form of a fixed asset
type FixedAssetResponse struct {
	ID                      uuid.UUID       `json:"id"`
	Code                    string          `json:"code"`
	Name                    string          `json:"name"`
	AcquisitionDate         string          `json:"acquisition_date"`
	Cost                    decimal.Decimal `json:"cost"`
	SalvageValue            decimal.Decimal `json:"salvage_value"`
	UsefulLifeYears         int             `json:"useful_life_years"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	BookValue               decimal.Decimal `json:"book_value"`
	Status                  string          `json:"status"`
	Version                 int             `json:"version"`
}

// ToFixedAssetResponse converts a fixed asset
func ToFixedAssetResponse(a *asset.FixedAsset) FixedAssetResponse {
	return FixedAssetResponse{
		ID:                      a.ID,
		Code:                    a.Code,
		Name:                    a.Name,
		AcquisitionDate:         formatDate(a.AcquisitionDate),
		Cost:                    a.Cost,
		SalvageValue:            a.SalvageValue,
		UsefulLifeYears:         a.UsefulLifeYears,
		AccumulatedDepreciation: a.AccumulatedDepreciation,
		BookValue:               a.Cost.Sub(a.AccumulatedDepreciation),
		Status:                  string(a.Status),
		Version:                 a.Version,
	}
}

// DepreciationRecordResponse is the wire form of one posted charge
type DepreciationRecordResponse struct {
	ID                uuid.UUID       `json:"id"`
	FinancialYearID   uuid.UUID       `json:"financial_year_id"`
	FinancialPeriodID uuid.UUID       `json:"financial_period_id"`
	Amount            decimal.Decimal `json:"amount"`
	AccountingEntryID uuid.UUID       `json:"accounting_entry_id"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToDepreciationRecordResponse converts a depreciation record
func ToDepreciationRecordResponse(r *asset.DepreciationRecord) DepreciationRecordResponse {
	return DepreciationRecordResponse{
		ID:                r.ID,
		FinancialYearID:   r.FinancialYearID,
		FinancialPeriodID: r.FinancialPeriodID,
		Amount:            r.Amount,
		AccountingEntryID: r.AccountingEntryID,
		CreatedAt:         r.CreatedAt,
	}
}
