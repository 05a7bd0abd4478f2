package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/cashier"
	"github.com/medierp/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormShiftClosingRepository implements ShiftClosingRepository using GORM
type GormShiftClosingRepository struct {
	db *gorm.DB
}

// NewGormShiftClosingRepository creates a new GormShiftClosingRepository
func NewGormShiftClosingRepository(db *gorm.DB) *GormShiftClosingRepository {
	return &GormShiftClosingRepository{db: db}
}

// LockCashier makes sure the cashier's lock row exists and holds it
// FOR UPDATE until the transaction ends
func (r *GormShiftClosingRepository) LockCashier(ctx context.Context, tenantID, cashierID uuid.UUID) error {
	row := models.CashierShiftLockModel{TenantID: tenantID, CashierID: cashierID, CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return translateError(err)
	}
	var locked models.CashierShiftLockModel
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND cashier_id = ?", tenantID, cashierID).
		First(&locked).Error)
}

// FindOverlapping returns the cashier's closings intersecting [start, end)
func (r *GormShiftClosingRepository) FindOverlapping(ctx context.Context, tenantID, cashierID uuid.UUID, start, end time.Time) ([]*cashier.ShiftClosing, error) {
	var rows []models.ShiftClosingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND cashier_id = ?", tenantID, cashierID).
		Where("range_start < ? AND range_end > ?", end.UTC(), start.UTC()).
		Order("range_start ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return shiftsToDomain(rows), nil
}

// Create inserts a closing
func (r *GormShiftClosingRepository) Create(ctx context.Context, closing *cashier.ShiftClosing) error {
	return translateError(r.db.WithContext(ctx).Create(models.ShiftClosingModelFromDomain(closing)).Error)
}

// FindByID finds a closing within a tenant
func (r *GormShiftClosingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*cashier.ShiftClosing, error) {
	var model models.ShiftClosingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists closings matching the filter. From and To bound range_start.
func (r *GormShiftClosingRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter cashier.ShiftFilter) ([]*cashier.ShiftClosing, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ShiftClosingModel{}).Where("tenant_id = ?", tenantID)
	if filter.CashierID != nil {
		query = query.Where("cashier_id = ?", *filter.CashierID)
	}
	if filter.From != nil {
		query = query.Where("range_start >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("range_start < ?", filter.To.UTC())
	}

	var rows []models.ShiftClosingModel
	total, err := findPage(query, filter.Filter, ShiftSortFields, "range_start", &rows)
	if err != nil {
		return nil, 0, err
	}
	return shiftsToDomain(rows), total, nil
}

func shiftsToDomain(rows []models.ShiftClosingModel) []*cashier.ShiftClosing {
	shifts := make([]*cashier.ShiftClosing, len(rows))
	for i := range rows {
		shifts[i] = rows[i].ToDomain()
	}
	return shifts
}

var _ cashier.ShiftClosingRepository = (*GormShiftClosingRepository)(nil)
