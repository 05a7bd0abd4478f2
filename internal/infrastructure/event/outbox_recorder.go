package event

import (
	"context"

	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/shared"
)

// OutboxRecorder serializes domain events into the outbox. Bound to the
// producing transaction's repository, the events commit with the change.
type OutboxRecorder struct {
	serializer *EventSerializer
	repo       shared.OutboxRepository
}

// NewOutboxRecorder creates a recorder writing through repo
func NewOutboxRecorder(serializer *EventSerializer, repo shared.OutboxRepository) *OutboxRecorder {
	return &OutboxRecorder{serializer: serializer, repo: repo}
}

// Record writes one outbox entry per event
func (r *OutboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := r.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}
	return r.repo.Save(ctx, entries...)
}

var _ uow.EventRecorder = (*OutboxRecorder)(nil)
