package event

import (
	"context"
	"sync"
	"time"

	"github.com/medierp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// txOutbox is implemented by repositories able to claim a batch inside a
// transaction so that concurrent relays skip each other's rows
type txOutbox interface {
	InTx(ctx context.Context, fn func(repo shared.OutboxRepository) error) error
}

type outboxCleaner interface {
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxProcessor relays outbox entries to the event bus at least once.
// Failed deliveries are retried with exponential backoff until the entry
// is dead.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger
	now        func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultOutboxProcessorConfig().BatchSize
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the relay loop and, when enabled, the cleanup loop
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx, p.config.PollInterval, func(ctx context.Context) { _, _ = p.ProcessBatch(ctx) })

	if _, ok := p.repo.(outboxCleaner); ok && p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.loop(ctx, p.config.CleanupInterval, p.cleanup)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop cancels the loops and waits for them, bounded by ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// ProcessBatch delivers one batch of due entries and returns how many
// were delivered
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	var delivered int
	run := func(repo shared.OutboxRepository) error {
		entries, err := repo.FindDue(ctx, p.now(), p.config.BatchSize)
		if err != nil {
			p.logger.Error("failed to find due outbox entries", zap.Error(err))
			return err
		}
		for _, entry := range entries {
			if p.deliver(ctx, entry) {
				delivered++
			}
			if err := repo.Update(ctx, entry); err != nil {
				p.logger.Error("failed to update outbox entry",
					zap.String("event_id", entry.EventID.String()),
					zap.Error(err),
				)
				return err
			}
		}
		return nil
	}

	if tx, ok := p.repo.(txOutbox); ok {
		return delivered, tx.InTx(ctx, run)
	}
	return delivered, run(p.repo)
}

// deliver publishes one entry and records the outcome on it
func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) bool {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, event)
	}
	if err == nil {
		entry.MarkSent()
		p.logger.Debug("outbox entry delivered",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
		)
		return true
	}

	entry.MarkFailed(err.Error())
	fields := []zap.Field{
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_type", entry.AggregateType),
		zap.String("aggregate_id", entry.AggregateID.String()),
		zap.Int("retry_count", entry.RetryCount),
		zap.Error(err),
	}
	if entry.Status == shared.OutboxStatusDead {
		p.logger.Warn("outbox entry is dead", fields...)
	} else {
		p.logger.Error("outbox delivery failed", append(fields, zap.Timep("next_retry_at", entry.NextRetryAt))...)
	}
	return false
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cleaner, ok := p.repo.(outboxCleaner)
	if !ok {
		return
	}
	cutoff := p.now().Add(-p.config.CleanupRetention)
	deleted, err := cleaner.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to clean up outbox entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("cleaned up outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
