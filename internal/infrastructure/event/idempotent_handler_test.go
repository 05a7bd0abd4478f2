package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_SkipsRedelivery(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	inner := newTestHandler("settlement.patient_share_settled")
	h := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())

	event := newTestEvent("settlement.patient_share_settled", uuid.New())
	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, event))
	require.NoError(t, h.Handle(ctx, event))

	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, IdempotencyStats{EventsProcessed: 1, EventsDuplicate: 1}, h.Stats())
	assert.Equal(t, []string{"settlement.patient_share_settled"}, h.EventTypes())
}

func TestIdempotentHandler_FailureReleasesKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	inner := newTestHandler()
	inner.setError(errors.New("temporary"))
	h := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())

	event := newTestEvent("cashier.shift_closed", uuid.New())
	ctx := context.Background()
	require.Error(t, h.Handle(ctx, event))

	inner.setError(nil)
	require.NoError(t, h.Handle(ctx, event))
	assert.Len(t, inner.getHandled(), 2)
	assert.Equal(t, int64(1), h.Stats().EventsFailed)
}

func TestIdempotentHandler_StoreErrorStillHandles(t *testing.T) {
	store := new(MockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
	inner := newTestHandler()
	h := NewIdempotentHandler(inner, store, shared.DefaultIdempotencyConfig(), zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), newTestEvent("ledger.entry_posted", uuid.New())))
	assert.Len(t, inner.getHandled(), 1)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_DisabledBypassesStore(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newTestHandler()
	h := NewIdempotentHandler(inner, store, shared.IdempotencyConfig{}, zap.NewNop())

	event := newTestEvent("ledger.entry_posted", uuid.New())
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))
	assert.Len(t, inner.getHandled(), 2)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_KeyIsScopedByConsumerName(t *testing.T) {
	store := new(MockIdempotencyStore)
	event := newTestEvent("ledger.entry_posted", uuid.New())
	store.On("MarkProcessed", mock.Anything, "delivery-log:"+event.EventID().String(), mock.Anything).Return(true, nil)

	h := NewIdempotentHandler(NewDeliveryLogHandler(zap.NewNop()), store, shared.DefaultIdempotencyConfig(), zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), event))
	store.AssertExpectations(t)
}
