// Package asset registers fixed assets and runs monthly depreciation.
package asset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/asset"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrLockHeld is returned by a JobLocker when another holder owns the key
var ErrLockHeld = errors.New("job lock is held by another process")

// JobLocker guards a job across processes
type JobLocker interface {
	// Obtain takes key for ttl and returns the function releasing it
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// RegisterAssetInput holds the data of a new fixed asset
type RegisterAssetInput struct {
	TenantID        uuid.UUID
	Code            string
	Name            string
	AcquisitionDate time.Time
	Cost            decimal.Decimal
	SalvageValue    decimal.Decimal
	UsefulLifeYears int
	CreatedBy       uuid.UUID
}

// AssetFailure describes an asset the run could not depreciate
type AssetFailure struct {
	AssetID uuid.UUID `json:"asset_id"`
	Code    string    `json:"code"`
	Error   string    `json:"error"`
}

// RunResult reports a depreciation run
type RunResult struct {
	FinancialYearID   uuid.UUID       `json:"financial_year_id"`
	FinancialPeriodID uuid.UUID       `json:"financial_period_id"`
	Period            string          `json:"period"`
	Posted            int             `json:"posted"`
	Skipped           int             `json:"skipped"`
	Failed            int             `json:"failed"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Failures          []AssetFailure  `json:"failures,omitempty"`
}

// DepreciationService manages fixed assets and depreciation runs
type DepreciationService struct {
	scope   uow.TransactionScope
	reads   uow.Repositories
	poster  *appaccounting.Poster
	locker  JobLocker
	lockTTL time.Duration
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewDepreciationService creates a DepreciationService. A nil locker runs
// without a distributed lock.
func NewDepreciationService(
	scope uow.TransactionScope,
	reads uow.Repositories,
	poster *appaccounting.Poster,
	locker JobLocker,
	lockTTL time.Duration,
	logger *zap.Logger,
) *DepreciationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &DepreciationService{
		scope:   scope,
		reads:   reads,
		poster:  poster,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

// SetMetrics sets the business metrics collector
func (s *DepreciationService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// RegisterAsset adds an active fixed asset
func (s *DepreciationService) RegisterAsset(ctx context.Context, in RegisterAssetInput) (*asset.FixedAsset, error) {
	fa, err := asset.NewFixedAsset(in.TenantID, in.Code, in.Name, in.AcquisitionDate, in.Cost, in.SalvageValue, in.UsefulLifeYears)
	if err != nil {
		return nil, err
	}
	fa.SetCreatedBy(in.CreatedBy)
	if err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		return repos.Assets().Create(ctx, fa)
	}); err != nil {
		return nil, err
	}
	s.logger.Info("Fixed asset registered", zap.String("code", fa.Code), zap.String("cost", fa.Cost.String()))
	return fa, nil
}

// DisposeAsset retires an asset from depreciation
func (s *DepreciationService) DisposeAsset(ctx context.Context, tenantID, assetID uuid.UUID) (*asset.FixedAsset, error) {
	var fa *asset.FixedAsset
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		fa, err = repos.Assets().FindByIDForUpdate(ctx, tenantID, assetID)
		if err != nil {
			return err
		}
		if err := fa.Dispose(); err != nil {
			return err
		}
		return repos.Assets().SaveWithLock(ctx, fa)
	})
	if err != nil {
		return nil, err
	}
	return fa, nil
}

// GetAsset returns an asset
func (s *DepreciationService) GetAsset(ctx context.Context, tenantID, assetID uuid.UUID) (*asset.FixedAsset, error) {
	return s.reads.Assets().FindByID(ctx, tenantID, assetID)
}

// ListAssets lists the tenant's assets
func (s *DepreciationService) ListAssets(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*asset.FixedAsset], error) {
	filter = filter.Normalize()
	assets, total, err := s.reads.Assets().FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*asset.FixedAsset]{}, err
	}
	return shared.NewPaginated(assets, total, filter.Page, filter.PageSize), nil
}

// ListDepreciationRecords lists the depreciation history of an asset
func (s *DepreciationService) ListDepreciationRecords(ctx context.Context, tenantID, assetID uuid.UUID) ([]*asset.DepreciationRecord, error) {
	if _, err := s.reads.Assets().FindByID(ctx, tenantID, assetID); err != nil {
		return nil, err
	}
	return s.reads.DepreciationRecords().FindByAsset(ctx, tenantID, assetID)
}

// RunDepreciation depreciates every eligible asset for the period
// containing date. Each asset is posted in its own transaction; a failing
// asset is reported and the run continues. An asset already depreciated
// for the period is skipped.
func (s *DepreciationService) RunDepreciation(ctx context.Context, tenantID uuid.UUID, date time.Time) (*RunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "depreciation", "run",
		telemetry.SpanAttrTenantID, tenantID.String(),
	)
	defer span.End()

	if s.locker != nil {
		release, err := s.locker.Obtain(ctx, "depreciation:"+tenantID.String(), s.lockTTL)
		if err != nil {
			if errors.Is(err, ErrLockHeld) {
				err = shared.NewDomainError(shared.CodeConflict, "A depreciation run is already in progress")
			}
			telemetry.RecordError(span, err)
			return nil, err
		}
		defer func() {
			// the lock expires with its TTL if release fails
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Release depreciation lock failed", zap.Error(err))
			}
		}()
	}

	year, period, err := appaccounting.ResolvePostingPeriod(ctx, s.reads, tenantID, date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !period.IsOpen() {
		err := shared.NewDomainError(shared.CodePeriodClosed, fmt.Sprintf("Financial period %s is closed", period.Name))
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrYearID, year.ID.String(),
		telemetry.SpanAttrPeriodID, period.ID.String(),
	)

	assets, err := s.reads.Assets().FindActive(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &RunResult{
		FinancialYearID:   year.ID,
		FinancialPeriodID: period.ID,
		Period:            period.Name,
		TotalAmount:       decimal.Zero,
	}
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationRunDepreciation, "asset"), func(c context.Context) {
		for _, a := range assets {
			if c.Err() != nil {
				result.Failed++
				result.Failures = append(result.Failures, AssetFailure{AssetID: a.ID, Code: a.Code, Error: c.Err().Error()})
				continue
			}
			amount, posted, err := s.depreciateAsset(c, tenantID, a.ID, date, year, period)
			switch {
			case err != nil:
				result.Failed++
				result.Failures = append(result.Failures, AssetFailure{AssetID: a.ID, Code: a.Code, Error: err.Error()})
				s.logger.Warn("Asset depreciation failed", zap.String("asset", a.Code), zap.Error(err))
			case posted:
				result.Posted++
				result.TotalAmount = result.TotalAmount.Add(amount)
			default:
				result.Skipped++
			}
		}
	})

	if s.metrics != nil {
		s.metrics.RecordDepreciation(ctx, tenantID, result.Posted, result.Skipped, result.Failed)
	}
	s.logger.Info("Depreciation run finished",
		zap.String("period", period.Name),
		zap.Int("posted", result.Posted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.String("total", result.TotalAmount.String()),
	)
	return result, nil
}

// depreciateAsset posts one month of depreciation for an asset. It reports
// posted=false when the asset needs nothing for the period.
func (s *DepreciationService) depreciateAsset(
	ctx context.Context,
	tenantID, assetID uuid.UUID,
	date time.Time,
	year *accounting.FinancialYear,
	period *accounting.FinancialPeriod,
) (decimal.Decimal, bool, error) {
	var amount decimal.Decimal
	posted := false
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		fa, err := repos.Assets().FindByIDForUpdate(ctx, tenantID, assetID)
		if err != nil {
			return err
		}
		if !fa.IsEligible(period.EndDate) {
			return nil
		}
		done, err := repos.DepreciationRecords().Exists(ctx, tenantID, fa.ID, year.ID, period.ID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		amount = fa.MonthlyDepreciation()
		if !amount.IsPositive() {
			return nil
		}

		accounts, err := s.poster.ResolveAccounts(ctx, repos, tenantID,
			accounting.KeyDepreciationExpense, accounting.KeyAccumulatedDepreciation)
		if err != nil {
			return err
		}
		memo := fmt.Sprintf("Depreciation %s %s", fa.Code, period.Name)
		entry, err := s.poster.Post(ctx, repos, appaccounting.PostingRequest{
			TenantID:     tenantID,
			EntryDate:    date,
			Description:  memo,
			SourceModule: accounting.SourceDepreciation,
			SourceID:     asset.SourceID(fa.ID, period.ID),
			Lines: []accounting.LineInput{
				accounting.Debit(accounts[accounting.KeyDepreciationExpense], amount, memo),
				accounting.Credit(accounts[accounting.KeyAccumulatedDepreciation], amount, memo),
			},
		})
		if err != nil {
			return err
		}
		if err := fa.ApplyDepreciation(amount); err != nil {
			return err
		}
		if err := repos.Assets().SaveWithLock(ctx, fa); err != nil {
			return err
		}
		if err := repos.DepreciationRecords().Create(ctx, &asset.DepreciationRecord{
			ID:                uuid.New(),
			TenantID:          tenantID,
			AssetID:           fa.ID,
			FinancialYearID:   year.ID,
			FinancialPeriodID: period.ID,
			Amount:            amount,
			AccountingEntryID: entry.ID,
			CreatedAt:         time.Now().UTC(),
		}); err != nil {
			return err
		}
		posted = true
		return nil
	})
	if err != nil {
		// another run got there first
		if shared.HasCode(err, shared.CodeDuplicatePosting) || shared.HasCode(err, shared.CodeConflict) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return amount, posted, nil
}
