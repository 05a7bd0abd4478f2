package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/asset"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFixedAssetRepository implements FixedAssetRepository using GORM
type GormFixedAssetRepository struct {
	db *gorm.DB
}

// NewGormFixedAssetRepository creates a new GormFixedAssetRepository
func NewGormFixedAssetRepository(db *gorm.DB) *GormFixedAssetRepository {
	return &GormFixedAssetRepository{db: db}
}

// FindByID finds an asset within a tenant
func (r *GormFixedAssetRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*asset.FixedAsset, error) {
	var model models.FixedAssetModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds an asset and locks its row
func (r *GormFixedAssetRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*asset.FixedAsset, error) {
	var model models.FixedAssetModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindActive lists the tenant's active assets by code
func (r *GormFixedAssetRepository) FindActive(ctx context.Context, tenantID uuid.UUID) ([]*asset.FixedAsset, error) {
	var rows []models.FixedAssetModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, asset.StatusActive).
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return assetsToDomain(rows), nil
}

// TenantsWithActiveAssets lists every tenant holding at least one active
// asset. It crosses tenants and is meant for the depreciation scheduler only.
func (r *GormFixedAssetRepository) TenantsWithActiveAssets(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.FixedAssetModel{}).
		Where("status = ?", asset.StatusActive).
		Distinct().
		Order("tenant_id").
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FindAll lists the tenant's assets
func (r *GormFixedAssetRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*asset.FixedAsset, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FixedAssetModel{}).Where("tenant_id = ?", tenantID)
	var rows []models.FixedAssetModel
	total, err := findPage(query, filter, AssetSortFields, "code", &rows)
	if err != nil {
		return nil, 0, err
	}
	return assetsToDomain(rows), total, nil
}

// Create inserts an asset
func (r *GormFixedAssetRepository) Create(ctx context.Context, fa *asset.FixedAsset) error {
	return translateError(r.db.WithContext(ctx).Create(models.FixedAssetModelFromDomain(fa)).Error)
}

// SaveWithLock updates depreciation state checking the version
func (r *GormFixedAssetRepository) SaveWithLock(ctx context.Context, fa *asset.FixedAsset) error {
	result := r.db.WithContext(ctx).
		Model(&models.FixedAssetModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", fa.ID, fa.TenantID, fa.Version-1).
		Updates(map[string]any{
			"accumulated_depreciation": fa.AccumulatedDepreciation,
			"status":                   fa.Status,
			"version":                  fa.Version,
			"updated_at":               fa.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("Asset %s was modified by another transaction", fa.Code))
	}
	return nil
}

func assetsToDomain(rows []models.FixedAssetModel) []*asset.FixedAsset {
	assets := make([]*asset.FixedAsset, len(rows))
	for i := range rows {
		assets[i] = rows[i].ToDomain()
	}
	return assets
}

// GormDepreciationRecordRepository implements DepreciationRecordRepository using GORM
type GormDepreciationRecordRepository struct {
	db *gorm.DB
}

// NewGormDepreciationRecordRepository creates a new GormDepreciationRecordRepository
func NewGormDepreciationRecordRepository(db *gorm.DB) *GormDepreciationRecordRepository {
	return &GormDepreciationRecordRepository{db: db}
}

// Exists reports whether the asset was already depreciated for the period
func (r *GormDepreciationRecordRepository) Exists(ctx context.Context, tenantID, assetID, yearID, periodID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DepreciationRecordModel{}).
		Where("tenant_id = ? AND asset_id = ? AND financial_year_id = ? AND financial_period_id = ?",
			tenantID, assetID, yearID, periodID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a record; a second record for the same period is a CONFLICT
func (r *GormDepreciationRecordRepository) Create(ctx context.Context, record *asset.DepreciationRecord) error {
	return translateError(r.db.WithContext(ctx).Create(models.DepreciationRecordModelFromDomain(record)).Error)
}

// FindByAsset lists the depreciation history of an asset
func (r *GormDepreciationRecordRepository) FindByAsset(ctx context.Context, tenantID, assetID uuid.UUID) ([]*asset.DepreciationRecord, error) {
	var rows []models.DepreciationRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND asset_id = ?", tenantID, assetID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]*asset.DepreciationRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

var (
	_ asset.FixedAssetRepository         = (*GormFixedAssetRepository)(nil)
	_ asset.DepreciationRecordRepository = (*GormDepreciationRecordRepository)(nil)
)
