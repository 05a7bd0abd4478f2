package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	appasset "github.com/medierp/ledger/internal/application/asset"
	appcashier "github.com/medierp/ledger/internal/application/cashier"
	appsettlement "github.com/medierp/ledger/internal/application/settlement"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/event"
	"github.com/medierp/ledger/internal/infrastructure/persistence"
	"github.com/medierp/ledger/internal/infrastructure/persistence/models"
)

// NewSQLiteDB opens a private in-memory sqlite database with every ledger
// table. A single connection keeps the schema visible to all statements.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "Failed to open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "Failed to migrate ledger models")
	return db
}

// Ledger wires every application service over one sqlite database
type Ledger struct {
	DB         *gorm.DB
	Scope      uow.TransactionScope
	Reads      uow.Repositories
	Serializer *event.EventSerializer
	Poster     *appaccounting.Poster

	Chart        *appaccounting.ChartService
	Calendar     *appaccounting.CalendarService
	Entries      *appaccounting.LedgerService
	Settlement   *appsettlement.SettlementService
	Shifts       *appcashier.ShiftService
	Depreciation *appasset.DepreciationService

	TenantID uuid.UUID
	UserID   uuid.UUID
	// Accounts holds the seeded account of every system key
	Accounts map[accounting.SystemAccountKey]*accounting.Account
	Year     *accounting.FinancialYear
}

// LedgerOption adjusts the services built by NewLedger
type LedgerOption func(*ledgerConfig)

type ledgerConfig struct {
	settlement appsettlement.Options
	locker     appasset.JobLocker
	logger     *zap.Logger
}

// WithSettlementOptions overrides the settlement options
func WithSettlementOptions(opts appsettlement.Options) LedgerOption {
	return func(c *ledgerConfig) { c.settlement = opts }
}

// WithJobLocker sets the depreciation job locker
func WithJobLocker(l appasset.JobLocker) LedgerOption {
	return func(c *ledgerConfig) { c.locker = l }
}

// WithLogger routes service logs to l
func WithLogger(l *zap.Logger) LedgerOption {
	return func(c *ledgerConfig) { c.logger = l }
}

// NewLedger builds the services over a fresh sqlite database without any
// seeded data
func NewLedger(t *testing.T, opts ...LedgerOption) *Ledger {
	t.Helper()
	return NewLedgerOn(t, NewSQLiteDB(t), opts...)
}

// NewLedgerOn builds the services over an already migrated database
func NewLedgerOn(t *testing.T, db *gorm.DB, opts ...LedgerOption) *Ledger {
	t.Helper()

	cfg := &ledgerConfig{settlement: appsettlement.DefaultOptions(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	serializer := event.NewLedgerEventSerializer()
	scope := persistence.NewGormTransactionScope(db, serializer)
	reads := persistence.NewGormRepositories(db, serializer)
	poster := appaccounting.NewPoster(cfg.logger)

	return &Ledger{
		DB:           db,
		Scope:        scope,
		Reads:        reads,
		Serializer:   serializer,
		Poster:       poster,
		Chart:        appaccounting.NewChartService(scope, reads, nil, cfg.logger),
		Calendar:     appaccounting.NewCalendarService(scope, reads, poster, cfg.logger),
		Entries:      appaccounting.NewLedgerService(scope, reads, poster, cfg.logger),
		Settlement:   appsettlement.NewSettlementService(scope, reads, poster, nil, cfg.settlement, cfg.logger),
		Shifts:       appcashier.NewShiftService(scope, reads, poster, cfg.logger),
		Depreciation: appasset.NewDepreciationService(scope, reads, poster, cfg.locker, time.Minute, cfg.logger),
		TenantID:     SeedTenantID,
		UserID:       SeedUserID,
		Accounts:     make(map[accounting.SystemAccountKey]*accounting.Account),
	}
}

// NewSeededLedger builds the services, seeds one account per system key
// and opens a financial year covering the current calendar year
func NewSeededLedger(t *testing.T, opts ...LedgerOption) *Ledger {
	t.Helper()
	l := NewLedger(t, opts...)
	l.Seed(t)
	return l
}

// Seed maps the standard chart and opens the current calendar year
func (l *Ledger) Seed(t *testing.T) {
	t.Helper()
	l.SeedChart(t)
	l.Year = l.OpenYear(t, time.Now().UTC().Year())
}

// WithTenant returns a copy of l acting for another tenant, with its own
// empty account map
func (l *Ledger) WithTenant(tenantID uuid.UUID) *Ledger {
	c := *l
	c.TenantID = tenantID
	c.Accounts = make(map[accounting.SystemAccountKey]*accounting.Account)
	c.Year = nil
	return &c
}

var seedChart = []struct {
	key  accounting.SystemAccountKey
	code string
	name string
	typ  accounting.AccountType
}{
	{accounting.KeyCashMain, "1101", "Main Cash", accounting.AccountTypeAsset},
	{accounting.KeyBank, "1102", "Bank", accounting.AccountTypeAsset},
	{accounting.KeyCardClearing, "1103", "Card Clearing", accounting.AccountTypeAsset},
	{accounting.KeyPatientReceivable, "1201", "Patient Receivable", accounting.AccountTypeAsset},
	{accounting.KeyAccumulatedDepreciation, "1590", "Accumulated Depreciation", accounting.AccountTypeAsset},
	{accounting.KeyRetainedEarnings, "3100", "Retained Earnings", accounting.AccountTypeEquity},
	{accounting.KeyServiceRevenue, "4100", "Service Revenue", accounting.AccountTypeRevenue},
	{accounting.KeySalesReturns, "4900", "Sales Returns", accounting.AccountTypeRevenue},
	{accounting.KeyCashShortOver, "6100", "Cash Short and Over", accounting.AccountTypeExpense},
	{accounting.KeyDepreciationExpense, "6200", "Depreciation Expense", accounting.AccountTypeExpense},
}

// SeedChart creates one account per system key and maps it
func (l *Ledger) SeedChart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, s := range seedChart {
		account, err := l.Chart.CreateAccount(ctx, appaccounting.CreateAccountInput{
			TenantID:  l.TenantID,
			Code:      s.code,
			Name:      s.name,
			Type:      s.typ,
			CreatedBy: l.UserID,
		})
		require.NoError(t, err, "create account %s", s.code)
		_, err = l.Chart.MapSystemAccount(ctx, l.TenantID, s.key, account.ID, l.UserID)
		require.NoError(t, err, "map %s", s.key)
		l.Accounts[s.key] = account
	}
}

// OpenYear creates and opens the calendar year, with monthly periods
func (l *Ledger) OpenYear(t *testing.T, year int) *accounting.FinancialYear {
	t.Helper()
	ctx := context.Background()
	fy, err := l.Calendar.CreateFinancialYear(ctx, appaccounting.CreateYearInput{
		TenantID:  l.TenantID,
		Code:      "FY" + time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006"),
		StartDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy: l.UserID,
	})
	require.NoError(t, err, "create financial year")
	fy, err = l.Calendar.OpenFinancialYear(ctx, l.TenantID, fy.ID)
	require.NoError(t, err, "open financial year")
	return fy
}

// AccountID returns the seeded account of key
func (l *Ledger) AccountID(key accounting.SystemAccountKey) uuid.UUID {
	return l.Accounts[key].ID
}

// InvoiceEncounter adds one SERVICE charge per amount to a fresh encounter
// and invoices it, issued, with the patient paying everything
func (l *Ledger) InvoiceEncounter(t *testing.T, patientID uuid.UUID, amounts ...string) *settlement.Invoice {
	t.Helper()
	ctx := context.Background()
	encounterID := uuid.New()
	for _, a := range amounts {
		_, err := l.Settlement.AddCharge(ctx, appsettlement.AddChargeInput{
			TenantID:    l.TenantID,
			EncounterID: encounterID,
			ServiceType: settlement.ServiceTypeService,
			Description: "Consultation",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString(a),
		})
		require.NoError(t, err, "add charge")
	}
	inv, err := l.Settlement.CreateInvoiceForEncounter(ctx, appsettlement.CreateInvoiceInput{
		TenantID:    l.TenantID,
		EncounterID: encounterID,
		PatientID:   patientID,
		Issue:       true,
		CreatedBy:   l.UserID,
	})
	require.NoError(t, err, "create invoice")
	return inv
}

// Pay records a payment against an invoice
func (l *Ledger) Pay(ctx context.Context, invoiceID uuid.UUID, amount string, method settlement.PaymentMethod, cashierID uuid.UUID) (*appsettlement.PaymentResult, error) {
	return l.Settlement.RecordPayment(ctx, appsettlement.RecordPaymentInput{
		TenantID:  l.TenantID,
		InvoiceID: invoiceID,
		Amount:    decimal.RequireFromString(amount),
		Method:    method,
		CashierID: cashierID,
	})
}

// AccountBalance returns the net debit minus credit posted to an account
func (l *Ledger) AccountBalance(t *testing.T, key accounting.SystemAccountKey) decimal.Decimal {
	t.Helper()
	id := l.AccountID(key)
	lines, err := l.Reads.Entries().FindLines(context.Background(), l.TenantID, accounting.LineFilter{AccountID: &id})
	require.NoError(t, err)
	balance := decimal.Zero
	for _, line := range lines {
		balance = balance.Add(line.Debit).Sub(line.Credit)
	}
	return balance
}

// RequireBalanced asserts that every posted entry of the tenant balances
// and that the ledger as a whole balances
func (l *Ledger) RequireBalanced(t *testing.T) {
	t.Helper()
	lines, err := l.Reads.Entries().FindLines(context.Background(), l.TenantID, accounting.LineFilter{})
	require.NoError(t, err)

	perEntry := make(map[uuid.UUID]decimal.Decimal)
	total := decimal.Zero
	for _, line := range lines {
		net := line.Debit.Sub(line.Credit)
		perEntry[line.EntryID] = perEntry[line.EntryID].Add(net)
		total = total.Add(net)
	}
	for id, net := range perEntry {
		require.True(t, net.IsZero(), "entry %s is unbalanced by %s", id, net)
	}
	require.True(t, total.IsZero(), "ledger is unbalanced by %s", total)
}

// RequireCode asserts err is a DomainError carrying code
func RequireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, shared.HasCode(err, code), "expected %s, got %v", code, err)
}
