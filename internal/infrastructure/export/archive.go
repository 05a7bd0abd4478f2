package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/shared"
)

// ObjectStore keeps archived workbooks
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// TrialBalancer computes a trial balance
type TrialBalancer interface {
	TrialBalance(ctx context.Context, q appaccounting.TrialBalanceQuery) (*accounting.TrialBalance, error)
}

// PeriodArchiver stores the trial balance of every period as it closes.
// It is subscribed to the event bus, so a failed upload is retried by the
// outbox relay.
type PeriodArchiver struct {
	ledger TrialBalancer
	store  ObjectStore
	logger *zap.Logger
}

// NewPeriodArchiver creates a PeriodArchiver
func NewPeriodArchiver(ledger TrialBalancer, store ObjectStore, logger *zap.Logger) *PeriodArchiver {
	return &PeriodArchiver{ledger: ledger, store: store, logger: logger}
}

// PeriodArchiveKey is the object key of a period's archived trial balance
func PeriodArchiveKey(tenantID, periodID uuid.UUID) string {
	return fmt.Sprintf("%s/trial-balance/%s.xlsx", tenantID, periodID)
}

// Name scopes the archiver's idempotency keys
func (a *PeriodArchiver) Name() string { return "period_archiver" }

// EventTypes implements shared.EventHandler
func (a *PeriodArchiver) EventTypes() []string {
	return []string{accounting.EventTypeFinancialPeriodClosed}
}

// Handle implements shared.EventHandler. Re-delivery overwrites the same
// key.
func (a *PeriodArchiver) Handle(ctx context.Context, event shared.DomainEvent) error {
	closed, ok := event.(*accounting.FinancialPeriodClosedEvent)
	if !ok {
		return fmt.Errorf("period archiver: unexpected event %T", event)
	}
	if closed.LastDay.IsZero() {
		a.logger.Warn("Closed period event carries no last day, not archiving",
			zap.String("period_id", closed.FinancialPeriodID.String()))
		return nil
	}

	tb, err := a.ledger.TrialBalance(ctx, appaccounting.TrialBalanceQuery{
		TenantID: closed.TenantID(),
		AsOf:     closed.LastDay,
	})
	if err != nil {
		return fmt.Errorf("trial balance for %s: %w", closed.Name, err)
	}

	var buf bytes.Buffer
	if err := WriteTrialBalance(&buf, "Trial Balance "+closed.Name, tb); err != nil {
		return fmt.Errorf("render trial balance: %w", err)
	}
	key := PeriodArchiveKey(closed.TenantID(), closed.FinancialPeriodID)
	if err := a.store.Put(ctx, key, buf.Bytes(), ContentTypeXLSX); err != nil {
		return err
	}

	a.logger.Info("Archived period trial balance",
		zap.String("tenant_id", closed.TenantID().String()),
		zap.String("period", closed.Name),
		zap.String("key", key),
	)
	return nil
}

// DownloadURL presigns the archived trial balance of periodID
func (a *PeriodArchiver) DownloadURL(ctx context.Context, tenantID, periodID uuid.UUID) (string, time.Time, error) {
	key := PeriodArchiveKey(tenantID, periodID)
	found, err := a.store.Exists(ctx, key)
	if err != nil {
		return "", time.Time{}, err
	}
	if !found {
		return "", time.Time{}, shared.NewDomainError(shared.CodeNotFound, "No archived report for this period")
	}
	return a.store.DownloadURL(ctx, key, 0)
}

var _ shared.EventHandler = (*PeriodArchiver)(nil)
