package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model of a chart-of-accounts entry
type AccountModel struct {
	AggregateModel
	TenantID uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_account_tenant_code,priority:1"`
	Code     string                 `gorm:"type:varchar(32);not null;uniqueIndex:idx_account_tenant_code,priority:2"`
	Name     string                 `gorm:"type:varchar(200);not null"`
	Type     accounting.AccountType `gorm:"type:varchar(20);not null"`
	IsActive bool                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the model to a domain Account
func (m *AccountModel) ToDomain() *accounting.Account {
	a := &accounting.Account{
		Code:     m.Code,
		Name:     m.Name,
		Type:     m.Type,
		IsActive: m.IsActive,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot, m.TenantID)
	return a
}

// AccountModelFromDomain creates a model from a domain Account
func AccountModelFromDomain(a *accounting.Account) *AccountModel {
	m := &AccountModel{
		TenantID: a.TenantID,
		Code:     a.Code,
		Name:     a.Name,
		Type:     a.Type,
		IsActive: a.IsActive,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// SystemAccountMappingModel maps a system key to an account, one row per
// (tenant, key)
type SystemAccountMappingModel struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_tenant_key,priority:1"`
	Key       accounting.SystemAccountKey `gorm:"column:mapping_key;type:varchar(40);not null;uniqueIndex:idx_mapping_tenant_key,priority:2"`
	AccountID uuid.UUID                   `gorm:"type:uuid;not null;index"`
	UpdatedBy *uuid.UUID                  `gorm:"type:uuid"`
	CreatedAt time.Time                   `gorm:"not null"`
	UpdatedAt time.Time                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SystemAccountMappingModel) TableName() string {
	return "system_account_mappings"
}

// ToDomain converts the model to a domain mapping
func (m *SystemAccountMappingModel) ToDomain() *accounting.SystemAccountMapping {
	return &accounting.SystemAccountMapping{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Key:       m.Key,
		AccountID: m.AccountID,
		UpdatedBy: m.UpdatedBy,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// SystemAccountMappingModelFromDomain creates a model from a domain mapping
func SystemAccountMappingModelFromDomain(s *accounting.SystemAccountMapping) *SystemAccountMappingModel {
	return &SystemAccountMappingModel{
		ID:        s.ID,
		TenantID:  s.TenantID,
		Key:       s.Key,
		AccountID: s.AccountID,
		UpdatedBy: s.UpdatedBy,
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

// FinancialYearModel is the persistence model of a financial year
type FinancialYearModel struct {
	AggregateModel
	TenantID       uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex:idx_year_tenant_code,priority:1"`
	Code           string                         `gorm:"type:varchar(20);not null;uniqueIndex:idx_year_tenant_code,priority:2"`
	Name           string                         `gorm:"type:varchar(100);not null"`
	StartDate      time.Time                      `gorm:"not null;index"`
	EndDate        time.Time                      `gorm:"not null"`
	Status         accounting.FinancialYearStatus `gorm:"type:varchar(20);not null"`
	IsCurrent      bool                           `gorm:"not null;default:false"`
	ClosingEntryID *uuid.UUID                     `gorm:"type:uuid"`
	ClosedAt       *time.Time
	ClosedBy       *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (FinancialYearModel) TableName() string {
	return "financial_years"
}

// ToDomain converts the model to a domain FinancialYear
func (m *FinancialYearModel) ToDomain() *accounting.FinancialYear {
	y := &accounting.FinancialYear{
		Code:           m.Code,
		Name:           m.Name,
		StartDate:      m.StartDate.UTC(),
		EndDate:        m.EndDate.UTC(),
		Status:         m.Status,
		IsCurrent:      m.IsCurrent,
		ClosingEntryID: m.ClosingEntryID,
		ClosedAt:       m.ClosedAt,
		ClosedBy:       m.ClosedBy,
	}
	m.PopulateTenantAggregateRoot(&y.TenantAggregateRoot, m.TenantID)
	return y
}

// FinancialYearModelFromDomain creates a model from a domain FinancialYear
func FinancialYearModelFromDomain(y *accounting.FinancialYear) *FinancialYearModel {
	m := &FinancialYearModel{
		TenantID:       y.TenantID,
		Code:           y.Code,
		Name:           y.Name,
		StartDate:      y.StartDate.UTC(),
		EndDate:        y.EndDate.UTC(),
		Status:         y.Status,
		IsCurrent:      y.IsCurrent,
		ClosingEntryID: y.ClosingEntryID,
		ClosedAt:       utcPtr(y.ClosedAt),
		ClosedBy:       y.ClosedBy,
	}
	m.FromDomainTenantAggregateRoot(y.TenantAggregateRoot)
	return m
}

// FinancialPeriodModel is the persistence model of a financial period
type FinancialPeriodModel struct {
	BaseModel
	TenantID        uuid.UUID                        `gorm:"type:uuid;not null;index"`
	FinancialYearID uuid.UUID                        `gorm:"type:uuid;not null;uniqueIndex:idx_period_year_number,priority:1"`
	Number          int                              `gorm:"not null;uniqueIndex:idx_period_year_number,priority:2"`
	Name            string                           `gorm:"type:varchar(50);not null"`
	StartDate       time.Time                        `gorm:"not null"`
	EndDate         time.Time                        `gorm:"not null"`
	Status          accounting.FinancialPeriodStatus `gorm:"type:varchar(20);not null"`
	ClosedAt        *time.Time
	ClosedBy        *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (FinancialPeriodModel) TableName() string {
	return "financial_periods"
}

// ToDomain converts the model to a domain FinancialPeriod
func (m *FinancialPeriodModel) ToDomain() *accounting.FinancialPeriod {
	return &accounting.FinancialPeriod{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		FinancialYearID: m.FinancialYearID,
		Number:          m.Number,
		Name:            m.Name,
		StartDate:       m.StartDate.UTC(),
		EndDate:         m.EndDate.UTC(),
		Status:          m.Status,
		ClosedAt:        m.ClosedAt,
		ClosedBy:        m.ClosedBy,
	}
}

// FinancialPeriodModelFromDomain creates a model from a domain FinancialPeriod
func FinancialPeriodModelFromDomain(p *accounting.FinancialPeriod) *FinancialPeriodModel {
	m := &FinancialPeriodModel{
		TenantID:        p.TenantID,
		FinancialYearID: p.FinancialYearID,
		Number:          p.Number,
		Name:            p.Name,
		StartDate:       p.StartDate.UTC(),
		EndDate:         p.EndDate.UTC(),
		Status:          p.Status,
		ClosedAt:        utcPtr(p.ClosedAt),
		ClosedBy:        p.ClosedBy,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// AccountingEntryModel is the header row of a posted entry.
// (tenant_id, source_module, source_id) is unique.
type AccountingEntryModel struct {
	AggregateModel
	TenantID          uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_entry_source,priority:1"`
	EntryNumber       string                     `gorm:"type:varchar(40);not null;uniqueIndex"`
	EntryDate         time.Time                  `gorm:"not null;index"`
	Description       string                     `gorm:"type:text"`
	SourceModule      accounting.SourceModule    `gorm:"type:varchar(20);not null;uniqueIndex:idx_entry_source,priority:2"`
	SourceID          string                     `gorm:"type:varchar(100);not null;uniqueIndex:idx_entry_source,priority:3"`
	ReversalOfID      *uuid.UUID                 `gorm:"type:uuid;uniqueIndex"`
	FinancialYearID   uuid.UUID                  `gorm:"type:uuid;not null;index"`
	FinancialPeriodID uuid.UUID                  `gorm:"type:uuid;not null;index"`
	TotalDebit        decimal.Decimal            `gorm:"type:decimal(18,3);not null"`
	TotalCredit       decimal.Decimal            `gorm:"type:decimal(18,3);not null"`
	Lines             []AccountingEntryLineModel `gorm:"foreignKey:EntryID"`
}

// TableName returns the table name for GORM
func (AccountingEntryModel) TableName() string {
	return "accounting_entries"
}

// ToDomain converts the model and its loaded lines to a domain entry
func (m *AccountingEntryModel) ToDomain() *accounting.AccountingEntry {
	e := &accounting.AccountingEntry{
		EntryNumber:       m.EntryNumber,
		EntryDate:         m.EntryDate.UTC(),
		Description:       m.Description,
		SourceModule:      m.SourceModule,
		SourceID:          m.SourceID,
		ReversalOfID:      m.ReversalOfID,
		FinancialYearID:   m.FinancialYearID,
		FinancialPeriodID: m.FinancialPeriodID,
		TotalDebit:        m.TotalDebit,
		TotalCredit:       m.TotalCredit,
		Lines:             make([]accounting.AccountingEntryLine, 0, len(m.Lines)),
	}
	m.PopulateTenantAggregateRoot(&e.TenantAggregateRoot, m.TenantID)
	for _, l := range m.Lines {
		e.Lines = append(e.Lines, l.ToDomain())
	}
	return e
}

// AccountingEntryModelFromDomain creates a header model with its lines
func AccountingEntryModelFromDomain(e *accounting.AccountingEntry) *AccountingEntryModel {
	m := &AccountingEntryModel{
		TenantID:          e.TenantID,
		EntryNumber:       e.EntryNumber,
		EntryDate:         e.EntryDate.UTC(),
		Description:       e.Description,
		SourceModule:      e.SourceModule,
		SourceID:          e.SourceID,
		ReversalOfID:      e.ReversalOfID,
		FinancialYearID:   e.FinancialYearID,
		FinancialPeriodID: e.FinancialPeriodID,
		TotalDebit:        e.TotalDebit,
		TotalCredit:       e.TotalCredit,
		Lines:             make([]AccountingEntryLineModel, 0, len(e.Lines)),
	}
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	for _, l := range e.Lines {
		m.Lines = append(m.Lines, AccountingEntryLineModel{
			ID:          l.ID,
			TenantID:    e.TenantID,
			EntryID:     e.ID,
			LineNo:      l.LineNo,
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	return m
}

// AccountingEntryLineModel is one debit or credit line of an entry
type AccountingEntryLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	EntryID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Debit       decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	Credit      decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	Description string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AccountingEntryLineModel) TableName() string {
	return "accounting_entry_lines"
}

// ToDomain converts the model to a domain line
func (m AccountingEntryLineModel) ToDomain() accounting.AccountingEntryLine {
	return accounting.AccountingEntryLine{
		ID:          m.ID,
		EntryID:     m.EntryID,
		LineNo:      m.LineNo,
		AccountID:   m.AccountID,
		Debit:       m.Debit,
		Credit:      m.Credit,
		Description: m.Description,
	}
}

// PostedLineRow is the projection of a line joined with its header
type PostedLineRow struct {
	EntryID      uuid.UUID
	EntryNumber  string
	EntryDate    time.Time
	Description  string
	SourceModule accounting.SourceModule
	SourceID     string
	AccountID    uuid.UUID
	Debit        decimal.Decimal
	Credit       decimal.Decimal
}

// ToDomain converts the row to a domain PostedLine
func (r PostedLineRow) ToDomain() accounting.PostedLine {
	return accounting.PostedLine{
		EntryID:      r.EntryID,
		EntryNumber:  r.EntryNumber,
		EntryDate:    r.EntryDate.UTC(),
		Description:  r.Description,
		SourceModule: r.SourceModule,
		SourceID:     r.SourceID,
		AccountID:    r.AccountID,
		Debit:        r.Debit,
		Credit:       r.Credit,
	}
}
