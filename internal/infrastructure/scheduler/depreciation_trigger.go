// Package scheduler runs the ledger's time-driven jobs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appasset "github.com/medierp/ledger/internal/application/asset"
	"github.com/medierp/ledger/internal/domain/shared"
)

// TenantProvider lists the tenants a scheduled run covers
type TenantProvider interface {
	TenantsWithActiveAssets(ctx context.Context) ([]uuid.UUID, error)
}

// DepreciationRunner posts one tenant's depreciation for the period
// containing date
type DepreciationRunner interface {
	RunDepreciation(ctx context.Context, tenantID uuid.UUID, date time.Time) (*appasset.RunResult, error)
}

// Config holds the daily trigger time
type Config struct {
	Hour   int
	Minute int

	// CheckInterval is how often the loop looks at the clock
	CheckInterval time.Duration
}

// DefaultConfig returns a trigger firing at 01:00
func DefaultConfig() Config {
	return Config{
		Hour:          1,
		Minute:        0,
		CheckInterval: time.Minute,
	}
}

// DepreciationTrigger runs depreciation for every tenant once a day
type DepreciationTrigger struct {
	config  Config
	tenants TenantProvider
	runner  DepreciationRunner
	logger  *zap.Logger
	now     func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewDepreciationTrigger creates a trigger
func NewDepreciationTrigger(config Config, tenants TenantProvider, runner DepreciationRunner, logger *zap.Logger) *DepreciationTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepreciationTrigger{
		config:  config,
		tenants: tenants,
		runner:  runner,
		logger:  logger,
		now:     time.Now,
	}
}

// Start starts the trigger loop
func (d *DepreciationTrigger) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = true
	ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	d.wg.Add(1)
	go d.runLoop(ctx)

	d.logger.Info("Depreciation trigger started",
		zap.Int("hour", d.config.Hour),
		zap.Int("minute", d.config.Minute),
		zap.Duration("check_interval", d.config.CheckInterval),
	)
	return nil
}

// Stop stops the loop, waiting for an in-flight run until ctx expires
func (d *DepreciationTrigger) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Depreciation trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DepreciationTrigger) runLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger fires at most once per calendar day. A tick that lands
// past the configured minute on a day that has not run yet still fires, so
// a slow tick or a late start does not skip the day.
func (d *DepreciationTrigger) checkAndTrigger(ctx context.Context) bool {
	now := d.now()
	today := now.Format(time.DateOnly)

	d.mu.Lock()
	if d.lastRunDate == today {
		d.mu.Unlock()
		return false
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), d.config.Hour, d.config.Minute, 0, 0, now.Location())
	if now.Before(due) {
		d.mu.Unlock()
		return false
	}
	d.lastRunDate = today
	d.mu.Unlock()

	d.RunAll(ctx, now)
	return true
}

// RunAll runs depreciation for every tenant with active assets. One
// tenant's failure does not stop the others.
func (d *DepreciationTrigger) RunAll(ctx context.Context, date time.Time) {
	tenantIDs, err := d.tenants.TenantsWithActiveAssets(ctx)
	if err != nil {
		d.logger.Error("Failed to list tenants for depreciation", zap.Error(err))
		return
	}

	d.logger.Info("Running scheduled depreciation",
		zap.Int("tenant_count", len(tenantIDs)),
		zap.String("date", date.Format(time.DateOnly)),
	)

	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			return
		}
		result, err := d.runner.RunDepreciation(ctx, tenantID, date)
		switch {
		case shared.HasCode(err, shared.CodeConflict):
			// another instance holds the run lock
			d.logger.Info("Depreciation already running elsewhere",
				zap.String("tenant_id", tenantID.String()))
		case err != nil:
			d.logger.Error("Scheduled depreciation failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		default:
			d.logger.Info("Scheduled depreciation finished",
				zap.String("tenant_id", tenantID.String()),
				zap.String("period", result.Period),
				zap.Int("posted", result.Posted),
				zap.Int("skipped", result.Skipped),
				zap.Int("failed", result.Failed),
			)
		}
	}
}
