package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/asset"
	"github.com/shopspring/decimal"
)

// FixedAssetModel is the persistence model of a fixed asset
type FixedAssetModel struct {
	AggregateModel
	TenantID                uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_asset_tenant_code,priority:1"`
	Code                    string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_asset_tenant_code,priority:2"`
	Name                    string          `gorm:"type:varchar(200);not null"`
	AcquisitionDate         time.Time       `gorm:"not null"`
	Cost                    decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	SalvageValue            decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	UsefulLifeYears         int             `gorm:"not null"`
	AccumulatedDepreciation decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	Status                  asset.Status    `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (FixedAssetModel) TableName() string {
	return "fixed_assets"
}

// ToDomain converts the model to a domain FixedAsset
func (m *FixedAssetModel) ToDomain() *asset.FixedAsset {
	a := &asset.FixedAsset{
		Code:                    m.Code,
		Name:                    m.Name,
		AcquisitionDate:         m.AcquisitionDate.UTC(),
		Cost:                    m.Cost,
		SalvageValue:            m.SalvageValue,
		UsefulLifeYears:         m.UsefulLifeYears,
		AccumulatedDepreciation: m.AccumulatedDepreciation,
		Status:                  m.Status,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot, m.TenantID)
	return a
}

// FixedAssetModelFromDomain creates a model from a domain FixedAsset
func FixedAssetModelFromDomain(a *asset.FixedAsset) *FixedAssetModel {
	m := &FixedAssetModel{
		TenantID:                a.TenantID,
		Code:                    a.Code,
		Name:                    a.Name,
		AcquisitionDate:         a.AcquisitionDate.UTC(),
		Cost:                    a.Cost,
		SalvageValue:            a.SalvageValue,
		UsefulLifeYears:         a.UsefulLifeYears,
		AccumulatedDepreciation: a.AccumulatedDepreciation,
		Status:                  a.Status,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// DepreciationRecordModel marks an asset as depreciated for a period
type DepreciationRecordModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	AssetID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_depreciation_asset_period,priority:1"`
	FinancialYearID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_depreciation_asset_period,priority:2"`
	FinancialPeriodID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_depreciation_asset_period,priority:3"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	AccountingEntryID uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DepreciationRecordModel) TableName() string {
	return "depreciation_records"
}

// ToDomain converts the model to a domain DepreciationRecord
func (m *DepreciationRecordModel) ToDomain() *asset.DepreciationRecord {
	return &asset.DepreciationRecord{
		ID:                m.ID,
		TenantID:          m.TenantID,
		AssetID:           m.AssetID,
		FinancialYearID:   m.FinancialYearID,
		FinancialPeriodID: m.FinancialPeriodID,
		Amount:            m.Amount,
		AccountingEntryID: m.AccountingEntryID,
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

// DepreciationRecordModelFromDomain creates a model from a domain DepreciationRecord
func DepreciationRecordModelFromDomain(r *asset.DepreciationRecord) *DepreciationRecordModel {
	return &DepreciationRecordModel{
		ID:                r.ID,
		TenantID:          r.TenantID,
		AssetID:           r.AssetID,
		FinancialYearID:   r.FinancialYearID,
		FinancialPeriodID: r.FinancialPeriodID,
		Amount:            r.Amount,
		AccountingEntryID: r.AccountingEntryID,
		CreatedAt:         r.CreatedAt.UTC(),
	}
}
