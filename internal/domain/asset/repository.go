package asset

import (
	"context"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
)

// FixedAssetRepository defines persistence for fixed assets
type FixedAssetRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FixedAsset, error)
	// FindByIDForUpdate loads the asset holding a row lock
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*FixedAsset, error)
	FindActive(ctx context.Context, tenantID uuid.UUID) ([]*FixedAsset, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*FixedAsset, int64, error)
	Create(ctx context.Context, asset *FixedAsset) error
	SaveWithLock(ctx context.Context, asset *FixedAsset) error
}

// DepreciationRecordRepository defines persistence for depreciation records
type DepreciationRecordRepository interface {
	Exists(ctx context.Context, tenantID, assetID, yearID, periodID uuid.UUID) (bool, error)
	Create(ctx context.Context, record *DepreciationRecord) error
	FindByAsset(ctx context.Context, tenantID, assetID uuid.UUID) ([]*DepreciationRecord, error)
}
