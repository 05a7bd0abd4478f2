package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared/valueobject"
	"github.com/medierp/ledger/internal/infrastructure/persistence/models"
)

var ctx = context.Background()

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newSQLiteDB opens an in-memory database with the ledger schema
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// createInvoice stores a DRAFT invoice owed entirely by the patient
func createInvoice(t *testing.T, db *gorm.DB, tenantID uuid.UUID, total string) *settlement.Invoice {
	t.Helper()
	amount := dec(total)
	inv, err := settlement.NewInvoice(tenantID, uuid.New(), uuid.New(), valueobject.DefaultCurrency, settlement.LiabilitySplit{
		TotalAmount:    amount,
		DiscountAmount: decimal.Zero,
		PatientShare:   &amount,
		InsuranceShare: decimal.Zero,
	})
	require.NoError(t, err)
	require.NoError(t, NewGormInvoiceRepository(db).Create(ctx, inv))
	return inv
}
