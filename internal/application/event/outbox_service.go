// Package event administers the transactional outbox: inspecting and
// requeueing entries whose delivery was abandoned.
package event

import (
	"context"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// DeadLetterStore is the part of the outbox storage the admin service needs
type DeadLetterStore interface {
	FindDead(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*shared.OutboxEntry, int64, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error)
	CountByStatusForTenant(ctx context.Context, tenantID uuid.UUID) (map[shared.OutboxStatus]int64, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
}

// OutboxStats is a tenant's outbox backlog per status
type OutboxStats struct {
	Pending int64 `json:"pending"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dead    int64 `json:"dead"`
	Total   int64 `json:"total"`
}

// retryBatch is the page size used when requeueing every dead entry
const retryBatch = 100

// OutboxService handles outbox event management operations
type OutboxService struct {
	store  DeadLetterStore
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(store DeadLetterStore, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{store: store, logger: logger}
}

// ListDeadEntries returns a page of the tenant's dead entries
func (s *OutboxService) ListDeadEntries(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*shared.OutboxEntry], error) {
	filter = filter.Normalize()
	entries, total, err := s.store.FindDead(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*shared.OutboxEntry]{}, err
	}
	return shared.NewPaginated(entries, total, filter.Page, filter.PageSize), nil
}

// GetEntry loads one outbox entry
func (s *OutboxService) GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error) {
	return s.store.FindByID(ctx, tenantID, id)
}

// RetryDeadEntry returns a dead entry to the pending queue
func (s *OutboxService) RetryDeadEntry(ctx context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.store.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := entry.Requeue(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Dead letter entry requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	return entry, nil
}

// RetryAllDeadEntries requeues every dead entry of the tenant and reports
// how many were requeued. Requeued entries leave the dead set, so the
// first page is read until it comes back empty.
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	filter := shared.Filter{Page: 1, PageSize: retryBatch}

	for {
		entries, _, err := s.store.FindDead(ctx, tenantID, filter)
		if err != nil {
			return count, err
		}
		if len(entries) == 0 {
			break
		}

		requeued := 0
		for _, entry := range entries {
			if err := entry.Requeue(); err != nil {
				continue
			}
			if err := s.store.Update(ctx, entry); err != nil {
				s.logger.Error("Failed to requeue outbox entry", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			requeued++
		}
		count += int64(requeued)
		if requeued == 0 || len(entries) < retryBatch {
			break
		}
	}

	s.logger.Info("Dead letter entries requeued",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("count", count),
	)
	return count, nil
}

// GetStats returns the tenant's outbox backlog
func (s *OutboxService) GetStats(ctx context.Context, tenantID uuid.UUID) (*OutboxStats, error) {
	counts, err := s.store.CountByStatusForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := &OutboxStats{
		Pending: counts[shared.OutboxStatusPending],
		Sent:    counts[shared.OutboxStatusSent],
		Failed:  counts[shared.OutboxStatusFailed],
		Dead:    counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
