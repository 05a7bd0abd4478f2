// Package cashier reconciles cashier shifts against recorded cash payments.
package cashier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/cashier"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CloseShiftInput is a cashier's counted cash for a window
type CloseShiftInput struct {
	TenantID   uuid.UUID
	CashierID  uuid.UUID
	RangeStart time.Time
	// RangeEnd not after RangeStart means the shift crossed midnight
	RangeEnd   time.Time
	ActualCash decimal.Decimal
	Note       string
	ClosedBy   uuid.UUID
}

// ShiftPreview is the system cash of a window that has not been closed
type ShiftPreview struct {
	CashierID       uuid.UUID       `json:"cashier_id"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	SystemCashTotal decimal.Decimal `json:"system_cash_total"`
	// Overlaps lists closings already covering part of the window
	Overlaps []uuid.UUID `json:"overlaps,omitempty"`
}

// ShiftService closes and reports cashier shifts
type ShiftService struct {
	scope   uow.TransactionScope
	reads   uow.Repositories
	poster  *appaccounting.Poster
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewShiftService creates a ShiftService
func NewShiftService(scope uow.TransactionScope, reads uow.Repositories, poster *appaccounting.Poster, logger *zap.Logger) *ShiftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShiftService{scope: scope, reads: reads, poster: poster, logger: logger}
}

// SetMetrics sets the business metrics collector
func (s *ShiftService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// CloseCashierShift reconciles counted cash against the cash payments the
// cashier recorded in the window. The cashier's lock row is held for the
// whole transaction so two closings of one cashier are serialised and the
// overlap check sees every committed closing.
func (s *ShiftService) CloseCashierShift(ctx context.Context, in CloseShiftInput) (*cashier.ShiftClosing, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashier", "close_shift",
		telemetry.SpanAttrTenantID, in.TenantID.String(),
		telemetry.SpanAttrCashierID, in.CashierID.String(),
	)
	defer span.End()

	if in.ActualCash.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Counted cash cannot be negative")
	}
	window, err := cashier.NewShiftWindow(in.RangeStart, in.RangeEnd)
	if err != nil {
		return nil, err
	}

	var closing *cashier.ShiftClosing
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationCloseShift, "cashier"), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos uow.Repositories) error {
			var err error
			closing, err = s.closeShift(c, repos, in, window)
			return err
		})
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		s.logger.Warn("Shift closing rejected",
			zap.String("cashier_id", in.CashierID.String()),
			zap.Time("range_start", window.Start),
			zap.Time("range_end", window.End),
			zap.Error(operationErr),
		)
		return nil, operationErr
	}

	if s.metrics != nil {
		s.metrics.RecordShiftClosed(ctx, in.TenantID, closing.Difference)
	}
	s.logger.Info("Shift closed",
		zap.String("shift_id", closing.ID.String()),
		zap.String("cashier_id", closing.CashierID.String()),
		zap.String("system_cash", closing.SystemCashTotal.String()),
		zap.String("actual_cash", closing.ActualCashTotal.String()),
		zap.String("difference", closing.Difference.String()),
	)
	return closing, nil
}

func (s *ShiftService) closeShift(ctx context.Context, repos uow.Repositories, in CloseShiftInput, window cashier.ShiftWindow) (*cashier.ShiftClosing, error) {
	if err := repos.Shifts().LockCashier(ctx, in.TenantID, in.CashierID); err != nil {
		return nil, fmt.Errorf("lock cashier: %w", err)
	}
	existing, err := repos.Shifts().FindOverlapping(ctx, in.TenantID, in.CashierID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	if other := cashier.FindOverlap(existing, window); other != nil {
		return nil, shared.NewDomainError(shared.CodeOverlappingShift,
			fmt.Sprintf("Shift overlaps closing %s (%s - %s)", other.ID,
				other.RangeStart.Format(time.RFC3339), other.RangeEnd.Format(time.RFC3339))).
			WithDetail("shift_id", other.ID.String())
	}

	system, err := repos.Payments().SumCash(ctx, in.TenantID, in.CashierID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	closing, err := cashier.NewShiftClosing(in.TenantID, in.CashierID, window, system, in.ActualCash, in.Note)
	if err != nil {
		return nil, err
	}
	if in.ClosedBy != uuid.Nil {
		by := in.ClosedBy
		closing.ClosedBy = &by
	}

	if closing.HasVariance() {
		entry, err := s.postVariance(ctx, repos, closing)
		if err != nil {
			return nil, err
		}
		if err := closing.LinkEntry(entry.ID); err != nil {
			return nil, err
		}
	}
	if err := repos.Shifts().Create(ctx, closing); err != nil {
		return nil, err
	}
	if err := repos.Events().Record(ctx, cashier.NewShiftClosedEvent(closing)); err != nil {
		return nil, fmt.Errorf("record shift event: %w", err)
	}
	return closing, nil
}

// postVariance books a surplus into the short/over account or a shortage
// out of it
func (s *ShiftService) postVariance(ctx context.Context, repos uow.Repositories, closing *cashier.ShiftClosing) (*accounting.AccountingEntry, error) {
	accounts, err := s.poster.ResolveAccounts(ctx, repos, closing.TenantID, accounting.KeyCashMain, accounting.KeyCashShortOver)
	if err != nil {
		return nil, err
	}
	cash, shortOver := accounts[accounting.KeyCashMain], accounts[accounting.KeyCashShortOver]
	amount := closing.Difference.Abs()
	memo := closing.VarianceDescription()

	lines := []accounting.LineInput{
		accounting.Debit(shortOver, amount, memo),
		accounting.Credit(cash, amount, memo),
	}
	if closing.IsSurplus() {
		lines = []accounting.LineInput{
			accounting.Debit(cash, amount, memo),
			accounting.Credit(shortOver, amount, memo),
		}
	}
	createdBy := closing.CashierID
	if closing.ClosedBy != nil {
		createdBy = *closing.ClosedBy
	}
	// RangeEnd is exclusive; the variance belongs to the last instant of the shift
	return s.poster.Post(ctx, repos, appaccounting.PostingRequest{
		TenantID:     closing.TenantID,
		EntryDate:    closing.RangeEnd.Add(-time.Nanosecond),
		Description:  memo,
		SourceModule: accounting.SourceCashierShift,
		SourceID:     closing.SourceID(),
		Lines:        lines,
		CreatedBy:    createdBy,
	})
}

// PreviewShift returns the system cash total of a window without closing it
func (s *ShiftService) PreviewShift(ctx context.Context, tenantID, cashierID uuid.UUID, start, end time.Time) (*ShiftPreview, error) {
	window, err := cashier.NewShiftWindow(start, end)
	if err != nil {
		return nil, err
	}
	system, err := s.reads.Payments().SumCash(ctx, tenantID, cashierID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	existing, err := s.reads.Shifts().FindOverlapping(ctx, tenantID, cashierID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	preview := &ShiftPreview{
		CashierID:       cashierID,
		RangeStart:      window.Start,
		RangeEnd:        window.End,
		SystemCashTotal: system,
	}
	for _, e := range existing {
		if e.Window().Overlaps(window) {
			preview.Overlaps = append(preview.Overlaps, e.ID)
		}
	}
	return preview, nil
}

// GetShift returns a closing
func (s *ShiftService) GetShift(ctx context.Context, tenantID, shiftID uuid.UUID) (*cashier.ShiftClosing, error) {
	return s.reads.Shifts().FindByID(ctx, tenantID, shiftID)
}

// ListShifts lists closings matching filter
func (s *ShiftService) ListShifts(ctx context.Context, tenantID uuid.UUID, filter cashier.ShiftFilter) (shared.Paginated[*cashier.ShiftClosing], error) {
	filter.Filter = filter.Filter.Normalize()
	shifts, total, err := s.reads.Shifts().FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*cashier.ShiftClosing]{}, err
	}
	return shared.NewPaginated(shifts, total, filter.Page, filter.PageSize), nil
}
