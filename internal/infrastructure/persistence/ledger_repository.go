package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by ID within a tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*accounting.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds an account by code within a tenant
func (r *GormAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*accounting.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, strings.TrimSpace(code)).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs finds accounts by IDs within a tenant. Unknown ids are omitted.
func (r *GormAccountRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*accounting.Account, error) {
	if len(ids) == 0 {
		return []*accounting.Account{}, nil
	}
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]*accounting.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts, nil
}

// FindAll lists accounts matching the filter
func (r *GormAccountRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter accounting.AccountFilter) ([]*accounting.Account, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AccountModel{}).Where("tenant_id = ?", tenantID)
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(code) LIKE ? OR LOWER(name) LIKE ?)", like, like)
	}

	if filter.OrderBy == "" {
		filter.OrderBy, filter.OrderDir = "code", "asc"
	}
	var rows []models.AccountModel
	total, err := findPage(query, filter.Filter, AccountSortFields, "code", &rows)
	if err != nil {
		return nil, 0, err
	}
	accounts := make([]*accounting.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts, total, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *accounting.Account) error {
	return translateError(r.db.WithContext(ctx).Save(models.AccountModelFromDomain(account)).Error)
}

// IsReferenced reports whether any posted line uses the account
func (r *GormAccountRepository) IsReferenced(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AccountingEntryLineModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GormSystemAccountMappingRepository implements SystemAccountMappingRepository using GORM
type GormSystemAccountMappingRepository struct {
	db *gorm.DB
}

// NewGormSystemAccountMappingRepository creates a new GormSystemAccountMappingRepository
func NewGormSystemAccountMappingRepository(db *gorm.DB) *GormSystemAccountMappingRepository {
	return &GormSystemAccountMappingRepository{db: db}
}

// FindByKey returns the mapping of key
func (r *GormSystemAccountMappingRepository) FindByKey(ctx context.Context, tenantID uuid.UUID, key accounting.SystemAccountKey) (*accounting.SystemAccountMapping, error) {
	var model models.SystemAccountMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND mapping_key = ?", tenantID, key).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists all mappings of a tenant
func (r *GormSystemAccountMappingRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*accounting.SystemAccountMapping, error) {
	var rows []models.SystemAccountMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("mapping_key ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	mappings := make([]*accounting.SystemAccountMapping, len(rows))
	for i := range rows {
		mappings[i] = rows[i].ToDomain()
	}
	return mappings, nil
}

// Save creates a mapping or repoints the existing one for (tenant, key)
func (r *GormSystemAccountMappingRepository) Save(ctx context.Context, mapping *accounting.SystemAccountMapping) error {
	model := models.SystemAccountMappingModelFromDomain(mapping)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "mapping_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id", "updated_by", "updated_at"}),
	}).Create(model).Error
	return translateError(err)
}

// GormFinancialYearRepository implements FinancialYearRepository using GORM
type GormFinancialYearRepository struct {
	db *gorm.DB
}

// NewGormFinancialYearRepository creates a new GormFinancialYearRepository
func NewGormFinancialYearRepository(db *gorm.DB) *GormFinancialYearRepository {
	return &GormFinancialYearRepository{db: db}
}

// FindByID finds a year within a tenant
func (r *GormFinancialYearRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*accounting.FinancialYear, error) {
	var model models.FinancialYearModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a year and locks its row until the transaction ends
func (r *GormFinancialYearRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*accounting.FinancialYear, error) {
	var model models.FinancialYearModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindContainingForShare returns the year whose [start, end) range holds
// date and holds a share lock on it, so period and year transitions wait
// for the posting to commit
func (r *GormFinancialYearRepository) FindContainingForShare(ctx context.Context, tenantID uuid.UUID, date time.Time) (*accounting.FinancialYear, error) {
	day := accounting.DateOnly(date)
	var model models.FinancialYearModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("tenant_id = ? AND start_date <= ? AND end_date > ?", tenantID, day, day).
		Order("start_date ASC").
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindCurrent returns the tenant's current year
func (r *GormFinancialYearRepository) FindCurrent(ctx context.Context, tenantID uuid.UUID) (*accounting.FinancialYear, error) {
	var model models.FinancialYearModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_current = ?", tenantID, true).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists years ordered by start date
func (r *GormFinancialYearRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*accounting.FinancialYear, error) {
	var rows []models.FinancialYearModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("start_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	years := make([]*accounting.FinancialYear, len(rows))
	for i := range rows {
		years[i] = rows[i].ToDomain()
	}
	return years, nil
}

// Save creates or updates a year
func (r *GormFinancialYearRepository) Save(ctx context.Context, year *accounting.FinancialYear) error {
	return translateError(r.db.WithContext(ctx).Save(models.FinancialYearModelFromDomain(year)).Error)
}

// GormFinancialPeriodRepository implements FinancialPeriodRepository using GORM
type GormFinancialPeriodRepository struct {
	db *gorm.DB
}

// NewGormFinancialPeriodRepository creates a new GormFinancialPeriodRepository
func NewGormFinancialPeriodRepository(db *gorm.DB) *GormFinancialPeriodRepository {
	return &GormFinancialPeriodRepository{db: db}
}

// FindByID finds a period within a tenant
func (r *GormFinancialPeriodRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*accounting.FinancialPeriod, error) {
	var model models.FinancialPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByYear lists the periods of a year ordered by number
func (r *GormFinancialPeriodRepository) FindByYear(ctx context.Context, tenantID, yearID uuid.UUID) ([]*accounting.FinancialPeriod, error) {
	var rows []models.FinancialPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND financial_year_id = ?", tenantID, yearID).
		Order("number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	periods := make([]*accounting.FinancialPeriod, len(rows))
	for i := range rows {
		periods[i] = rows[i].ToDomain()
	}
	return periods, nil
}

// SaveBatch creates or updates periods
func (r *GormFinancialPeriodRepository) SaveBatch(ctx context.Context, periods []*accounting.FinancialPeriod) error {
	if len(periods) == 0 {
		return nil
	}
	rows := make([]*models.FinancialPeriodModel, len(periods))
	for i, p := range periods {
		rows[i] = models.FinancialPeriodModelFromDomain(p)
	}
	return translateError(r.db.WithContext(ctx).Save(&rows).Error)
}

// Save creates or updates a period
func (r *GormFinancialPeriodRepository) Save(ctx context.Context, period *accounting.FinancialPeriod) error {
	return translateError(r.db.WithContext(ctx).Save(models.FinancialPeriodModelFromDomain(period)).Error)
}

// GormAccountingEntryRepository implements AccountingEntryRepository using GORM.
// It never issues UPDATE or DELETE against entries or lines.
type GormAccountingEntryRepository struct {
	db *gorm.DB
}

// NewGormAccountingEntryRepository creates a new GormAccountingEntryRepository
func NewGormAccountingEntryRepository(db *gorm.DB) *GormAccountingEntryRepository {
	return &GormAccountingEntryRepository{db: db}
}

// Create inserts the header and its lines in one statement batch
func (r *GormAccountingEntryRepository) Create(ctx context.Context, entry *accounting.AccountingEntry) error {
	return translateError(r.db.WithContext(ctx).Create(models.AccountingEntryModelFromDomain(entry)).Error)
}

// FindByID loads an entry with its lines
func (r *GormAccountingEntryRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*accounting.AccountingEntry, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindBySource finds the entry produced by a source record
func (r *GormAccountingEntryRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, source accounting.SourceModule, sourceID string) (*accounting.AccountingEntry, error) {
	return r.findOne(ctx, "tenant_id = ? AND source_module = ? AND source_id = ?", tenantID, source, sourceID)
}

// FindReversalOf finds the entry reversing id
func (r *GormAccountingEntryRepository) FindReversalOf(ctx context.Context, tenantID, id uuid.UUID) (*accounting.AccountingEntry, error) {
	return r.findOne(ctx, "tenant_id = ? AND reversal_of_id = ?", tenantID, id)
}

func (r *GormAccountingEntryRepository) findOne(ctx context.Context, where string, args ...any) (*accounting.AccountingEntry, error) {
	var model models.AccountingEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where(where, args...).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists entry headers without their lines
func (r *GormAccountingEntryRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter accounting.EntryFilter) ([]*accounting.AccountingEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AccountingEntryModel{}).Where("tenant_id = ?", tenantID)
	if filter.From != nil {
		query = query.Where("entry_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("entry_date < ?", filter.To.UTC())
	}
	if filter.SourceModule != nil {
		query = query.Where("source_module = ?", *filter.SourceModule)
	}
	if filter.SourceID != "" {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if filter.FinancialYearID != nil {
		query = query.Where("financial_year_id = ?", *filter.FinancialYearID)
	}
	if filter.FinancialPeriodID != nil {
		query = query.Where("financial_period_id = ?", *filter.FinancialPeriodID)
	}

	var rows []models.AccountingEntryModel
	total, err := findPage(query, filter.Filter, EntrySortFields, "entry_date", &rows)
	if err != nil {
		return nil, 0, err
	}
	entries := make([]*accounting.AccountingEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

// FindLines returns posted lines joined with their headers ordered by entry
// date, entry number and line number
func (r *GormAccountingEntryRepository) FindLines(ctx context.Context, tenantID uuid.UUID, filter accounting.LineFilter) ([]accounting.PostedLine, error) {
	query := r.db.WithContext(ctx).
		Table("accounting_entry_lines AS l").
		Select(`l.entry_id, e.entry_number, e.entry_date, e.description,
			e.source_module, e.source_id, l.account_id, l.debit, l.credit`).
		Joins("JOIN accounting_entries AS e ON e.id = l.entry_id").
		Where("e.tenant_id = ?", tenantID)
	if filter.AccountID != nil {
		query = query.Where("l.account_id = ?", *filter.AccountID)
	}
	if filter.FinancialYearID != nil {
		query = query.Where("e.financial_year_id = ?", *filter.FinancialYearID)
	}
	if filter.From != nil {
		query = query.Where("e.entry_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("e.entry_date < ?", filter.To.UTC())
	}

	var rows []models.PostedLineRow
	if err := query.
		Order("e.entry_date ASC").
		Order("e.entry_number ASC").
		Order("l.line_no ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]accounting.PostedLine, len(rows))
	for i := range rows {
		lines[i] = rows[i].ToDomain()
	}
	return lines, nil
}

// CountBySource counts entries for a source record
func (r *GormAccountingEntryRepository) CountBySource(ctx context.Context, tenantID uuid.UUID, source accounting.SourceModule, sourceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AccountingEntryModel{}).
		Where("tenant_id = ? AND source_module = ? AND source_id = ?", tenantID, source, sourceID).
		Count(&count).Error
	return count, err
}

var (
	_ accounting.AccountRepository              = (*GormAccountRepository)(nil)
	_ accounting.SystemAccountMappingRepository = (*GormSystemAccountMappingRepository)(nil)
	_ accounting.FinancialYearRepository        = (*GormFinancialYearRepository)(nil)
	_ accounting.FinancialPeriodRepository      = (*GormFinancialPeriodRepository)(nil)
	_ accounting.AccountingEntryRepository      = (*GormAccountingEntryRepository)(nil)
)
