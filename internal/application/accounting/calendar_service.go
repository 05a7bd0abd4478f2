package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ResolvePostingPeriod finds the open year and open period covering date.
// Every failure carries NO_OPEN_PERIOD. The year row is share locked, and
// period or year closes lock it for update, so a posting never commits
// into a period closed after it was resolved.
func ResolvePostingPeriod(ctx context.Context, repos uow.Repositories, tenantID uuid.UUID, date time.Time) (*accounting.FinancialYear, *accounting.FinancialPeriod, error) {
	year, err := repos.Years().FindContainingForShare(ctx, tenantID, date)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_, err = accounting.ResolvePeriod(nil, nil, date)
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("find financial year: %w", err)
	}
	periods, err := repos.Periods().FindByYear(ctx, tenantID, year.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("find financial periods: %w", err)
	}
	period, err := accounting.ResolvePeriod(year, periods, date)
	if err != nil {
		return nil, nil, err
	}
	return year, period, nil
}

// CreateYearInput holds the data of a new financial year
type CreateYearInput struct {
	TenantID  uuid.UUID
	Code      string
	Name      string
	StartDate time.Time
	EndDate   time.Time
	CreatedBy uuid.UUID
}

// CloseYearInput holds the parameters of a year close
type CloseYearInput struct {
	TenantID uuid.UUID
	YearID   uuid.UUID
	// ClosingDate defaults to the last day of the year
	ClosingDate     time.Time
	ForceCloseFinal bool
	ClosedBy        uuid.UUID
}

// CloseYearResult reports the closed year and its closing entry, if any
type CloseYearResult struct {
	Year         *accounting.FinancialYear
	ClosingEntry *accounting.AccountingEntry
}

// CalendarService manages financial years and periods
type CalendarService struct {
	scope  uow.TransactionScope
	reads  uow.Repositories
	poster *Poster
	logger *zap.Logger
}

// NewCalendarService creates a CalendarService
func NewCalendarService(scope uow.TransactionScope, reads uow.Repositories, poster *Poster, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{scope: scope, reads: reads, poster: poster, logger: logger}
}

// ResolvePostingPeriod returns the open year and period covering date
func (s *CalendarService) ResolvePostingPeriod(ctx context.Context, tenantID uuid.UUID, date time.Time) (*accounting.FinancialYear, *accounting.FinancialPeriod, error) {
	return ResolvePostingPeriod(ctx, s.reads, tenantID, date)
}

// CreateFinancialYear creates a DRAFT year that does not overlap any other
// year of the tenant.
func (s *CalendarService) CreateFinancialYear(ctx context.Context, in CreateYearInput) (*accounting.FinancialYear, error) {
	year, err := accounting.NewFinancialYear(in.TenantID, in.Code, in.Name, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	year.SetCreatedBy(in.CreatedBy)

	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		existing, err := repos.Years().FindAll(ctx, in.TenantID)
		if err != nil {
			return fmt.Errorf("list financial years: %w", err)
		}
		for _, y := range existing {
			if y.Overlaps(year) {
				return shared.NewDomainError(shared.CodeConflict,
					fmt.Sprintf("Financial year overlaps %s", y.Code))
			}
			if strings.EqualFold(y.Code, year.Code) {
				return shared.NewDomainError(shared.CodeConflict,
					fmt.Sprintf("Financial year code %s already exists", y.Code))
			}
		}
		if err := repos.Years().Save(ctx, year); err != nil {
			return err
		}
		return uow.RecordAggregateEvents(ctx, repos, year)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Financial year created",
		zap.String("tenant_id", in.TenantID.String()),
		zap.String("code", year.Code),
	)
	return year, nil
}

// GeneratePeriods creates the monthly periods of a year that has none
func (s *CalendarService) GeneratePeriods(ctx context.Context, tenantID, yearID uuid.UUID) ([]*accounting.FinancialPeriod, error) {
	var periods []*accounting.FinancialPeriod
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		year, err := repos.Years().FindByIDForUpdate(ctx, tenantID, yearID)
		if err != nil {
			return err
		}
		if year.Status != accounting.FinancialYearStatusDraft && year.Status != accounting.FinancialYearStatusOpen {
			return shared.NewDomainError(shared.CodeInvalidState, "Periods can only be generated for draft or open years")
		}
		existing, err := repos.Periods().FindByYear(ctx, tenantID, yearID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return shared.NewDomainError(shared.CodeConflict, "Financial year already has periods")
		}
		periods = year.GenerateMonthlyPeriods()
		return repos.Periods().SaveBatch(ctx, periods)
	})
	if err != nil {
		return nil, err
	}
	return periods, nil
}

// OpenFinancialYear moves a DRAFT year to OPEN, generating its periods
// when it has none.
func (s *CalendarService) OpenFinancialYear(ctx context.Context, tenantID, yearID uuid.UUID) (*accounting.FinancialYear, error) {
	var year *accounting.FinancialYear
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		year, err = repos.Years().FindByIDForUpdate(ctx, tenantID, yearID)
		if err != nil {
			return err
		}
		if err := year.Open(); err != nil {
			return err
		}
		existing, err := repos.Periods().FindByYear(ctx, tenantID, yearID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			if err := repos.Periods().SaveBatch(ctx, year.GenerateMonthlyPeriods()); err != nil {
				return err
			}
		}
		if err := repos.Years().Save(ctx, year); err != nil {
			return err
		}
		return uow.RecordAggregateEvents(ctx, repos, year)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Financial year opened", zap.String("code", year.Code))
	return year, nil
}

// SetCurrentYear swaps the tenant's current year in one transaction
func (s *CalendarService) SetCurrentYear(ctx context.Context, tenantID, yearID uuid.UUID) (*accounting.FinancialYear, error) {
	var year *accounting.FinancialYear
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		year, err = repos.Years().FindByIDForUpdate(ctx, tenantID, yearID)
		if err != nil {
			return err
		}
		if year.IsCurrent {
			return nil
		}
		current, err := repos.Years().FindCurrent(ctx, tenantID)
		switch {
		case err == nil:
			current, err = repos.Years().FindByIDForUpdate(ctx, tenantID, current.ID)
			if err != nil {
				return err
			}
			current.ClearCurrent()
			// The previous flag is cleared first so the partial unique index holds.
			if err := repos.Years().Save(ctx, current); err != nil {
				return err
			}
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}
		if err := year.MarkCurrent(); err != nil {
			return err
		}
		return repos.Years().Save(ctx, year)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Current financial year set", zap.String("code", year.Code))
	return year, nil
}

// ClosePeriod closes an open period
func (s *CalendarService) ClosePeriod(ctx context.Context, tenantID, periodID, by uuid.UUID) (*accounting.FinancialPeriod, error) {
	var period *accounting.FinancialPeriod
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		period, err = s.lockPeriod(ctx, repos, tenantID, periodID)
		if err != nil {
			return err
		}
		if err := period.Close(by); err != nil {
			return err
		}
		if err := repos.Periods().Save(ctx, period); err != nil {
			return err
		}
		return repos.Events().Record(ctx, accounting.NewFinancialPeriodClosedEvent(period))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Financial period closed", zap.String("period", period.Name))
	return period, nil
}

// ReopenPeriod reopens a closed period of an open year
func (s *CalendarService) ReopenPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*accounting.FinancialPeriod, error) {
	var period *accounting.FinancialPeriod
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		period, err = repos.Periods().FindByID(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		year, err := repos.Years().FindByIDForUpdate(ctx, tenantID, period.FinancialYearID)
		if err != nil {
			return err
		}
		if err := period.Reopen(year); err != nil {
			return err
		}
		return repos.Periods().Save(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Warn("Financial period reopened", zap.String("period", period.Name))
	return period, nil
}

// CloseFinancialYear closes every period (the final one only when forced),
// posts the YEAR_CLOSE entry moving revenue and expense balances into
// retained earnings, and marks the year CLOSED. A year without income
// statement activity closes without an entry.
func (s *CalendarService) CloseFinancialYear(ctx context.Context, in CloseYearInput) (*CloseYearResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "calendar", "close_year",
		telemetry.SpanAttrTenantID, in.TenantID.String(),
		telemetry.SpanAttrYearID, in.YearID.String(),
	)
	defer span.End()

	result := &CloseYearResult{}
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationCloseYear, "calendar"), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos uow.Repositories) error {
			year, err := repos.Years().FindByIDForUpdate(c, in.TenantID, in.YearID)
			if err != nil {
				return err
			}
			if year.Status != accounting.FinancialYearStatusOpen {
				return shared.NewDomainError(shared.CodeInvalidState, "Only open financial years can be closed")
			}

			final, err := s.closeRemainingPeriods(c, repos, year, in)
			if err != nil {
				return err
			}

			entry, err := s.postClosingEntry(c, repos, year, final, in)
			if err != nil {
				return err
			}
			var entryID *uuid.UUID
			if entry != nil {
				entryID = &entry.ID
			}
			if err := year.Close(entryID, in.ClosedBy); err != nil {
				return err
			}
			if err := repos.Years().Save(c, year); err != nil {
				return err
			}
			result.Year = year
			result.ClosingEntry = entry
			return uow.RecordAggregateEvents(c, repos, year)
		})
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}

	fields := []zap.Field{zap.String("code", result.Year.Code)}
	if result.ClosingEntry != nil {
		fields = append(fields, zap.String("closing_entry", result.ClosingEntry.EntryNumber))
	}
	s.logger.Info("Financial year closed", fields...)
	return result, nil
}

func (s *CalendarService) closeRemainingPeriods(ctx context.Context, repos uow.Repositories, year *accounting.FinancialYear, in CloseYearInput) (*accounting.FinancialPeriod, error) {
	periods, err := repos.Periods().FindByYear(ctx, in.TenantID, year.ID)
	if err != nil {
		return nil, err
	}
	final := accounting.FinalPeriod(periods)
	if final == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Financial year has no periods")
	}
	for _, p := range periods {
		if !p.IsOpen() {
			continue
		}
		if p.ID != final.ID || !in.ForceCloseFinal {
			return nil, shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("Financial period %s is still open", p.Name)).WithDetail("period_id", p.ID.String())
		}
		if err := p.Close(in.ClosedBy); err != nil {
			return nil, err
		}
		if err := repos.Periods().Save(ctx, p); err != nil {
			return nil, err
		}
		if err := repos.Events().Record(ctx, accounting.NewFinancialPeriodClosedEvent(p)); err != nil {
			return nil, err
		}
	}
	return final, nil
}

func (s *CalendarService) postClosingEntry(
	ctx context.Context,
	repos uow.Repositories,
	year *accounting.FinancialYear,
	final *accounting.FinancialPeriod,
	in CloseYearInput,
) (*accounting.AccountingEntry, error) {
	lines, err := repos.Entries().FindLines(ctx, in.TenantID, accounting.LineFilter{FinancialYearID: &year.ID})
	if err != nil {
		return nil, fmt.Errorf("load year lines: %w", err)
	}
	accounts, err := repos.Accounts().FindByIDs(ctx, in.TenantID, postedAccountIDs(lines))
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	tb := accounting.BuildTrialBalance(year.LastDay(), accounts, lines)
	if accounting.ClosingLines(tb, uuid.Nil) == nil {
		return nil, nil
	}

	retained, err := s.poster.ResolveAccount(ctx, repos, in.TenantID, accounting.KeyRetainedEarnings)
	if err != nil {
		return nil, err
	}
	closingDate := in.ClosingDate
	if closingDate.IsZero() {
		closingDate = year.LastDay()
	}
	return s.poster.PostClosing(ctx, repos, year, final, PostingRequest{
		TenantID:    in.TenantID,
		EntryDate:   closingDate,
		Description: fmt.Sprintf("Year close %s", year.Code),
		SourceID:    year.ID.String(),
		Lines:       accounting.ClosingLines(tb, retained),
		CreatedBy:   in.ClosedBy,
	})
}

// ArchiveFinancialYear moves a CLOSED year to ARCHIVED
func (s *CalendarService) ArchiveFinancialYear(ctx context.Context, tenantID, yearID uuid.UUID) (*accounting.FinancialYear, error) {
	var year *accounting.FinancialYear
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		year, err = repos.Years().FindByIDForUpdate(ctx, tenantID, yearID)
		if err != nil {
			return err
		}
		if err := year.Archive(); err != nil {
			return err
		}
		return repos.Years().Save(ctx, year)
	})
	if err != nil {
		return nil, err
	}
	return year, nil
}

// GetYear returns a financial year
func (s *CalendarService) GetYear(ctx context.Context, tenantID, yearID uuid.UUID) (*accounting.FinancialYear, error) {
	return s.reads.Years().FindByID(ctx, tenantID, yearID)
}

// ListYears lists the tenant's years ordered by start date
func (s *CalendarService) ListYears(ctx context.Context, tenantID uuid.UUID) ([]*accounting.FinancialYear, error) {
	return s.reads.Years().FindAll(ctx, tenantID)
}

// GetCurrentYear returns the tenant's current year
func (s *CalendarService) GetCurrentYear(ctx context.Context, tenantID uuid.UUID) (*accounting.FinancialYear, error) {
	return s.reads.Years().FindCurrent(ctx, tenantID)
}

// ListPeriods lists the periods of a year
func (s *CalendarService) ListPeriods(ctx context.Context, tenantID, yearID uuid.UUID) ([]*accounting.FinancialPeriod, error) {
	if _, err := s.reads.Years().FindByID(ctx, tenantID, yearID); err != nil {
		return nil, err
	}
	return s.reads.Periods().FindByYear(ctx, tenantID, yearID)
}

func (s *CalendarService) lockPeriod(ctx context.Context, repos uow.Repositories, tenantID, periodID uuid.UUID) (*accounting.FinancialPeriod, error) {
	period, err := repos.Periods().FindByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	// Period transitions serialise on the owning year row.
	if _, err := repos.Years().FindByIDForUpdate(ctx, tenantID, period.FinancialYearID); err != nil {
		return nil, err
	}
	return repos.Periods().FindByID(ctx, tenantID, periodID)
}

func postedAccountIDs(lines []accounting.PostedLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0)
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}
