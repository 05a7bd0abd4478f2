package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PostingRequest is a balanced entry to be written by a producer
type PostingRequest struct {
	TenantID     uuid.UUID
	EntryDate    time.Time
	Description  string
	SourceModule accounting.SourceModule
	SourceID     string
	Lines        []accounting.LineInput
	CreatedBy    uuid.UUID
	// ReversalOf links the new entry to the entry it reverses
	ReversalOf *accounting.AccountingEntry
}

// Poster writes accounting entries inside the caller's transaction.
// Every producer (payments, credit notes, shift variances, depreciation,
// year close, manual entries) goes through it so that the period gate,
// the balance check and the duplicate-source check are applied uniformly.
type Poster struct {
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewPoster creates a Poster
func NewPoster(logger *zap.Logger) *Poster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poster{logger: logger}
}

// SetMetrics sets the business metrics collector
func (p *Poster) SetMetrics(m *telemetry.LedgerMetrics) {
	p.metrics = m
}

// Post resolves the posting period of req.EntryDate, validates the lines
// and accounts, and inserts the entry with its lines. On any failure
// nothing is written; the caller's transaction must be rolled back.
func (p *Poster) Post(ctx context.Context, repos uow.Repositories, req PostingRequest) (*accounting.AccountingEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "post",
		telemetry.SpanAttrSourceModule, req.SourceModule.String(),
		telemetry.SpanAttrSourceID, req.SourceID,
	)
	defer span.End()

	year, period, err := ResolvePostingPeriod(ctx, repos, req.TenantID, req.EntryDate)
	if err != nil {
		err = asPeriodClosed(err)
		p.rejected(ctx, req, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	entry, err := p.write(ctx, repos, req, year, period)
	if err != nil {
		p.rejected(ctx, req, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, entry.ID.String(),
		telemetry.SpanAttrEntryNumber, entry.EntryNumber,
	)
	return entry, nil
}

// PostClosing writes the year-close entry. It is attributed to the final
// period of year even when that period is already closed; the year itself
// must still be open.
func (p *Poster) PostClosing(
	ctx context.Context,
	repos uow.Repositories,
	year *accounting.FinancialYear,
	final *accounting.FinancialPeriod,
	req PostingRequest,
) (*accounting.AccountingEntry, error) {
	if year.Status != accounting.FinancialYearStatusOpen {
		return nil, shared.NewDomainError(shared.CodePeriodClosed, "Financial year is not open")
	}
	if final == nil || final.FinancialYearID != year.ID {
		return nil, shared.NewDomainError(shared.CodePeriodClosed, "Financial year has no periods")
	}
	if !final.Contains(req.EntryDate) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Closing date must fall within %s", final.Name))
	}
	req.SourceModule = accounting.SourceYearClose
	return p.write(ctx, repos, req, year, final)
}

func (p *Poster) write(
	ctx context.Context,
	repos uow.Repositories,
	req PostingRequest,
	year *accounting.FinancialYear,
	period *accounting.FinancialPeriod,
) (*accounting.AccountingEntry, error) {
	entry, err := accounting.NewAccountingEntry(
		req.TenantID, req.EntryDate, req.Description,
		req.SourceModule, req.SourceID, year, period, req.Lines,
	)
	if err != nil {
		return nil, err
	}
	if err := p.checkAccounts(ctx, repos, req.TenantID, req.Lines); err != nil {
		return nil, err
	}
	if err := checkNoEntryForSource(ctx, repos, req.TenantID, entry.SourceModule, entry.SourceID); err != nil {
		return nil, err
	}

	if req.ReversalOf != nil {
		entry.MarkReversalOf(req.ReversalOf)
	}
	entry.SetCreatedBy(req.CreatedBy)
	if err := repos.Entries().Create(ctx, entry); err != nil {
		if shared.HasCode(err, shared.CodeConflict) {
			return nil, duplicatePosting(entry.SourceModule, entry.SourceID)
		}
		return nil, fmt.Errorf("insert accounting entry: %w", err)
	}
	if err := uow.RecordAggregateEvents(ctx, repos, entry); err != nil {
		return nil, fmt.Errorf("record entry events: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordEntryPosted(ctx, req.TenantID, entry.SourceModule.String())
	}
	p.logger.Debug("Accounting entry posted",
		zap.String("entry_number", entry.EntryNumber),
		zap.String("source_module", entry.SourceModule.String()),
		zap.String("source_id", entry.SourceID),
		zap.String("total", entry.TotalDebit.String()),
	)
	return entry, nil
}

// ResolveAccount returns the account mapped to key. Mappings are always
// read through the transaction's repositories.
func (p *Poster) ResolveAccount(ctx context.Context, repos uow.Repositories, tenantID uuid.UUID, key accounting.SystemAccountKey) (uuid.UUID, error) {
	m, err := repos.Mappings().FindByKey(ctx, tenantID, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, shared.NewDomainError(shared.CodeAccountMappingMissing,
				fmt.Sprintf("System account %s is not mapped", key)).WithDetail("key", key.String())
		}
		return uuid.Nil, fmt.Errorf("resolve system account %s: %w", key, err)
	}
	return m.AccountID, nil
}

// ResolveAccounts resolves several keys at once
func (p *Poster) ResolveAccounts(ctx context.Context, repos uow.Repositories, tenantID uuid.UUID, keys ...accounting.SystemAccountKey) (map[accounting.SystemAccountKey]uuid.UUID, error) {
	out := make(map[accounting.SystemAccountKey]uuid.UUID, len(keys))
	for _, k := range keys {
		id, err := p.ResolveAccount(ctx, repos, tenantID, k)
		if err != nil {
			return nil, err
		}
		out[k] = id
	}
	return out, nil
}

func (p *Poster) checkAccounts(ctx context.Context, repos uow.Repositories, tenantID uuid.UUID, lines []accounting.LineInput) error {
	ids := accounting.AccountIDs(lines)
	accounts, err := repos.Accounts().FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	byID := make(map[uuid.UUID]*accounting.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for _, id := range ids {
		a, ok := byID[id]
		if !ok || !a.BelongsTo(tenantID) {
			return shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("Account %s not found", id)).WithDetail("account_id", id.String())
		}
		if !a.CanPost() {
			return shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("Account %s is inactive", a.Code)).WithDetail("account_id", id.String())
		}
	}
	return nil
}

func (p *Poster) rejected(ctx context.Context, req PostingRequest, err error) {
	code := "ERROR"
	var de *shared.DomainError
	if errors.As(err, &de) {
		code = de.Code
	}
	if p.metrics != nil {
		p.metrics.RecordPostingRejected(ctx, req.TenantID, req.SourceModule.String(), code)
	}
	p.logger.Warn("Posting rejected",
		zap.String("source_module", req.SourceModule.String()),
		zap.String("source_id", req.SourceID),
		zap.String("code", code),
		zap.Error(err),
	)
}

func checkNoEntryForSource(ctx context.Context, repos uow.Repositories, tenantID uuid.UUID, source accounting.SourceModule, sourceID string) error {
	_, err := repos.Entries().FindBySource(ctx, tenantID, source, sourceID)
	switch {
	case err == nil:
		return duplicatePosting(source, sourceID)
	case errors.Is(err, shared.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check source %s/%s: %w", source, sourceID, err)
	}
}

func duplicatePosting(source accounting.SourceModule, sourceID string) error {
	return shared.NewDomainError(shared.CodeDuplicatePosting,
		fmt.Sprintf("An entry already exists for %s %s", source, sourceID))
}

// asPeriodClosed turns a calendar resolution failure into the error
// posting callers observe.
func asPeriodClosed(err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Code == shared.CodeNoOpenPeriod {
		return &shared.DomainError{Code: shared.CodePeriodClosed, Message: de.Message, Details: de.Details}
	}
	return err
}
