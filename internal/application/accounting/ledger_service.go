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

// PostEntryInput is a caller supplied entry
type PostEntryInput struct {
	TenantID     uuid.UUID
	EntryDate    time.Time
	Description  string
	SourceModule accounting.SourceModule
	// SourceID defaults to a fresh id for MANUAL entries
	SourceID  string
	Lines     []accounting.LineInput
	CreatedBy uuid.UUID
}

// ReverseEntryInput identifies the entry to reverse
type ReverseEntryInput struct {
	TenantID uuid.UUID
	EntryID  uuid.UUID
	// Date defaults to today
	Date   time.Time
	Reason string
	// SourceID defaults to "<original source id>:REV"
	SourceID  string
	CreatedBy uuid.UUID
}

// TrialBalanceQuery selects the lines of a trial balance: a whole year
// when YearID is set, otherwise everything dated on or before AsOf.
type TrialBalanceQuery struct {
	TenantID uuid.UUID
	YearID   *uuid.UUID
	AsOf     time.Time
}

// LedgerService posts, reverses and reports accounting entries
type LedgerService struct {
	scope  uow.TransactionScope
	reads  uow.Repositories
	poster *Poster
	logger *zap.Logger
}

// NewLedgerService creates a LedgerService
func NewLedgerService(scope uow.TransactionScope, reads uow.Repositories, poster *Poster, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{scope: scope, reads: reads, poster: poster, logger: logger}
}

// PostEntry posts a balanced entry in its own transaction
func (s *LedgerService) PostEntry(ctx context.Context, in PostEntryInput) (*accounting.AccountingEntry, error) {
	if in.SourceModule == "" {
		in.SourceModule = accounting.SourceManual
	}
	if in.SourceModule == accounting.SourceYearClose {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Year close entries are posted by closing the financial year")
	}
	if strings.TrimSpace(in.SourceID) == "" && in.SourceModule == accounting.SourceManual {
		in.SourceID = uuid.NewString()
	}

	var entry *accounting.AccountingEntry
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationPostEntry, "ledger"), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos uow.Repositories) error {
			var err error
			entry, err = s.poster.Post(c, repos, PostingRequest{
				TenantID:     in.TenantID,
				EntryDate:    in.EntryDate,
				Description:  in.Description,
				SourceModule: in.SourceModule,
				SourceID:     in.SourceID,
				Lines:        in.Lines,
				CreatedBy:    in.CreatedBy,
			})
			return err
		})
	})
	if operationErr != nil {
		return nil, operationErr
	}
	s.logger.Info("Accounting entry posted",
		zap.String("entry_number", entry.EntryNumber),
		zap.String("source_module", entry.SourceModule.String()),
	)
	return entry, nil
}

// ReverseEntry posts the mirror image of an entry. An entry can be
// reversed once; posted entries are never edited.
func (s *LedgerService) ReverseEntry(ctx context.Context, in ReverseEntryInput) (*accounting.AccountingEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "reverse_entry",
		telemetry.SpanAttrEntryID, in.EntryID.String(),
	)
	defer span.End()

	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	var reversal *accounting.AccountingEntry
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		original, err := repos.Entries().FindByID(ctx, in.TenantID, in.EntryID)
		if err != nil {
			return err
		}
		existing, err := repos.Entries().FindReversalOf(ctx, in.TenantID, original.ID)
		switch {
		case err == nil:
			return shared.NewDomainError(shared.CodeDuplicatePosting,
				fmt.Sprintf("Entry %s is already reversed by %s", original.EntryNumber, existing.EntryNumber))
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}

		sourceID := strings.TrimSpace(in.SourceID)
		if sourceID == "" {
			sourceID = original.ReversalSourceID()
		}
		description := fmt.Sprintf("Reversal of %s", original.EntryNumber)
		if reason := strings.TrimSpace(in.Reason); reason != "" {
			description += ": " + reason
		}
		reversal, err = s.poster.Post(ctx, repos, PostingRequest{
			TenantID:     in.TenantID,
			EntryDate:    date,
			Description:  description,
			SourceModule: original.SourceModule,
			SourceID:     sourceID,
			Lines:        original.ReversalLines(),
			CreatedBy:    in.CreatedBy,
			ReversalOf:   original,
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("Accounting entry reversed",
		zap.String("original_id", in.EntryID.String()),
		zap.String("reversal_number", reversal.EntryNumber),
	)
	return reversal, nil
}

// GetEntry returns an entry with its lines
func (s *LedgerService) GetEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*accounting.AccountingEntry, error) {
	return s.reads.Entries().FindByID(ctx, tenantID, entryID)
}

// ListEntries lists entry headers
func (s *LedgerService) ListEntries(ctx context.Context, tenantID uuid.UUID, filter accounting.EntryFilter) (shared.Paginated[*accounting.AccountingEntry], error) {
	filter.Filter = filter.Filter.Normalize()
	entries, total, err := s.reads.Entries().FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*accounting.AccountingEntry]{}, err
	}
	return shared.NewPaginated(entries, total, filter.Page, filter.PageSize), nil
}

// TrialBalance aggregates persisted lines per account
func (s *LedgerService) TrialBalance(ctx context.Context, q TrialBalanceQuery) (*accounting.TrialBalance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "trial_balance",
		telemetry.SpanAttrTenantID, q.TenantID.String(),
	)
	defer span.End()

	filter := accounting.LineFilter{}
	asOf := accounting.DateOnly(q.AsOf)
	if q.YearID != nil {
		year, err := s.reads.Years().FindByID(ctx, q.TenantID, *q.YearID)
		if err != nil {
			return nil, err
		}
		filter.FinancialYearID = &year.ID
		asOf = year.LastDay()
	} else {
		if q.AsOf.IsZero() {
			asOf = accounting.DateOnly(time.Now())
		}
		to := asOf.AddDate(0, 0, 1)
		filter.To = &to
	}

	var tb *accounting.TrialBalance
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationTrialBalance, "ledger"), func(c context.Context) {
		lines, err := s.reads.Entries().FindLines(c, q.TenantID, filter)
		if err != nil {
			operationErr = err
			return
		}
		accounts, err := s.reads.Accounts().FindByIDs(c, q.TenantID, postedAccountIDs(lines))
		if err != nil {
			operationErr = err
			return
		}
		tb = accounting.BuildTrialBalance(asOf, accounts, lines)
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}
	if !tb.IsBalanced() {
		s.logger.Error("Trial balance does not balance",
			zap.String("tenant_id", q.TenantID.String()),
			zap.String("debit", tb.TotalDebit.String()),
			zap.String("credit", tb.TotalCredit.String()),
		)
	}
	return tb, nil
}

// AccountLedger returns the activity of an account between from and to,
// both inclusive, with the opening balance and running balances.
func (s *LedgerService) AccountLedger(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) (*accounting.AccountLedger, error) {
	from, to = accounting.DateOnly(from), accounting.DateOnly(to)
	if to.Before(from) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Ledger end date is before its start date")
	}
	account, err := s.reads.Accounts().FindByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}

	before, err := s.reads.Entries().FindLines(ctx, tenantID, accounting.LineFilter{AccountID: &account.ID, To: &from})
	if err != nil {
		return nil, err
	}
	end := to.AddDate(0, 0, 1)
	within, err := s.reads.Entries().FindLines(ctx, tenantID, accounting.LineFilter{AccountID: &account.ID, From: &from, To: &end})
	if err != nil {
		return nil, err
	}
	return accounting.BuildAccountLedger(account, from, to, accounting.NormalBalance(account, before), within), nil
}
