package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/event"
	"github.com/medierp/ledger/tests/testutil"
)

// Two relays draining the same outbox must not deliver an entry twice
func TestPostgres_ConcurrentRelaysDeliverEachEntryOnce(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()

	for range 3 {
		inv := l.InvoiceEncounter(t, uuid.New(), "30.00")
		_, err := l.Pay(ctx, inv.ID, "30.00", settlement.PaymentMethodCash, uuid.New())
		require.NoError(t, err)
	}

	recorder := testutil.NewRecordingHandler()
	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(recorder)

	repo := event.NewGormOutboxRepository(l.DB)
	cfg := event.DefaultOutboxProcessorConfig()
	cfg.BatchSize = 2

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := event.NewOutboxProcessor(repo, bus, l.Serializer, cfg, zap.NewNop())
			for {
				n, err := p.ProcessBatch(ctx)
				if err != nil || n == 0 {
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, recorder.Count(settlement.EventTypePaymentRecorded))
	assert.Equal(t, 3, recorder.Count(settlement.EventTypePatientShareSettled))
	assert.Positive(t, recorder.Count(accounting.EventTypeEntryPosted))

	seen := make(map[uuid.UUID]bool)
	for _, e := range recorder.Handled() {
		require.False(t, seen[e.EventID()], "event %s delivered twice", e.EventID())
		seen[e.EventID()] = true
	}

	counts, err := repo.CountByStatusForTenant(ctx, l.TenantID)
	require.NoError(t, err)
	assert.Zero(t, counts[shared.OutboxStatusPending])
	assert.Equal(t, int64(len(seen)), counts[shared.OutboxStatusSent])

	t.Run("running relay picks up new entries", func(t *testing.T) {
		cfg.PollInterval = 50 * time.Millisecond
		p := event.NewOutboxProcessor(repo, bus, l.Serializer, cfg, zap.NewNop())
		require.NoError(t, p.Start(ctx))
		t.Cleanup(func() { _ = p.Stop(context.Background()) })

		inv := l.InvoiceEncounter(t, uuid.New(), "10.00")
		_, err := l.Pay(ctx, inv.ID, "10.00", settlement.PaymentMethodCard, uuid.New())
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return recorder.Count(settlement.EventTypePaymentRecorded) == 4
		}, 10*time.Second, 50*time.Millisecond, "payment event was not relayed")
	})
}
