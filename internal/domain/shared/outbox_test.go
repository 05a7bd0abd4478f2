package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type testEvent struct {
	EventHeader
}

func newTestEntry() *OutboxEntry {
	ev := &testEvent{EventHeader: NewEventHeader("test.happened", "Test", uuid.New(), uuid.New())}
	return NewOutboxEntry(ev, []byte(`{}`))
}

func TestNewOutboxEntry(t *testing.T) {
	ev := &testEvent{EventHeader: NewEventHeader("test.happened", "Test", uuid.New(), uuid.New())}
	entry := NewOutboxEntry(ev, []byte(`{"a":1}`))

	assert.Equal(t, ev.EventID(), entry.EventID)
	assert.Equal(t, ev.TenantID(), entry.TenantID)
	assert.Equal(t, "test.happened", entry.EventType)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.True(t, entry.IsDue(time.Now()))
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("schedules retry with backoff", func(t *testing.T) {
		entry := newTestEntry()
		entry.MarkFailed("boom")

		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		assert.Equal(t, "boom", entry.LastError)
		if assert.NotNil(t, entry.NextRetryAt) {
			assert.False(t, entry.IsDue(time.Now()))
			assert.True(t, entry.IsDue(entry.NextRetryAt.Add(time.Millisecond)))
		}
	})

	t.Run("dead after max retries", func(t *testing.T) {
		entry := newTestEntry()
		for i := 0; i < DefaultMaxRetries; i++ {
			entry.MarkFailed("boom")
		}
		assert.Equal(t, OutboxStatusDead, entry.Status)
		assert.Nil(t, entry.NextRetryAt)
		assert.False(t, entry.IsDue(time.Now().Add(time.Hour)))
	})
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	entry := newTestEntry()
	entry.MarkSent()

	assert.Equal(t, OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)
	assert.False(t, entry.IsDue(time.Now()))
}

func TestOutboxEntry_Requeue(t *testing.T) {
	entry := newTestEntry()
	assert.True(t, HasCode(entry.Requeue(), CodeInvalidState))

	for i := 0; i < DefaultMaxRetries; i++ {
		entry.MarkFailed("boom")
	}
	assert.NoError(t, entry.Requeue())
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Zero(t, entry.RetryCount)
	assert.Equal(t, "boom", entry.LastError)
	assert.True(t, entry.IsDue(time.Now()))
}
