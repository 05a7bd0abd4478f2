package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/interfaces/http/dto"
)

// AccountingHandler serves the chart of accounts, the financial calendar
// and the journal
type AccountingHandler struct {
	BaseHandler
	chart    *appaccounting.ChartService
	calendar *appaccounting.CalendarService
	ledger   *appaccounting.LedgerService
}

// NewAccountingHandler creates an AccountingHandler
func NewAccountingHandler(chart *appaccounting.ChartService, calendar *appaccounting.CalendarService, ledger *appaccounting.LedgerService) *AccountingHandler {
	return &AccountingHandler{chart: chart, calendar: calendar, ledger: ledger}
}

// RegisterRoutes mounts the accounting routes on rg
func (h *AccountingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts")
	accounts.POST("", h.CreateAccount)
	accounts.GET("", h.ListAccounts)
	accounts.GET("/chart", h.Chart)
	accounts.GET("/:id", h.GetAccount)
	accounts.PATCH("/:id", h.UpdateAccount)
	accounts.PUT("/:id/active", h.SetAccountActive)

	mappings := rg.Group("/system-accounts")
	mappings.GET("", h.ListMappings)
	mappings.PUT("/:key", h.MapSystemAccount)

	years := rg.Group("/financial-years")
	years.POST("", h.CreateYear)
	years.GET("", h.ListYears)
	years.GET("/current", h.GetCurrentYear)
	years.GET("/:id", h.GetYear)
	years.GET("/:id/periods", h.ListPeriods)
	years.POST("/:id/periods", h.GeneratePeriods)
	years.POST("/:id/open", h.OpenYear)
	years.POST("/:id/current", h.SetCurrentYear)
	years.POST("/:id/close", h.CloseYear)
	years.POST("/:id/archive", h.ArchiveYear)

	periods := rg.Group("/financial-periods")
	periods.POST("/:id/close", h.ClosePeriod)
	periods.POST("/:id/reopen", h.ReopenPeriod)

	entries := rg.Group("/entries")
	entries.POST("", h.PostEntry)
	entries.GET("", h.ListEntries)
	entries.GET("/:id", h.GetEntry)
	entries.POST("/:id/reverse", h.ReverseEntry)
}

// CreateAccount handles POST /accounts
func (h *AccountingHandler) CreateAccount(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.CreateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	account, err := h.chart.CreateAccount(c.Request.Context(), appaccounting.CreateAccountInput{
		TenantID:  tenantID,
		Code:      req.Code,
		Name:      req.Name,
		Type:      accounting.AccountType(req.Type),
		CreatedBy: userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToAccountResponse(account))
}

// ListAccounts handles GET /accounts
func (h *AccountingHandler) ListAccounts(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ListAccountsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	filter := accounting.AccountFilter{
		Filter:     req.ListRequest.Filter(),
		ActiveOnly: req.ActiveOnly,
		Search:     req.Search,
	}
	if req.Type != "" {
		t := accounting.AccountType(req.Type)
		filter.Type = &t
	}
	page, err := h.chart.ListAccounts(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, dto.ToAccountResponse))
}

// Chart handles GET /accounts/chart, the full chart ordered by code
func (h *AccountingHandler) Chart(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	accounts, err := h.chart.Chart(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, convertAll(accounts, dto.ToAccountResponse))
}

// GetAccount handles GET /accounts/:id
func (h *AccountingHandler) GetAccount(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	account, err := h.chart.GetAccount(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToAccountResponse(account))
}

// UpdateAccount handles PATCH /accounts/:id
func (h *AccountingHandler) UpdateAccount(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	in := appaccounting.UpdateAccountInput{TenantID: tenantID, AccountID: id, Name: req.Name, Code: req.Code}
	if req.Type != nil {
		t := accounting.AccountType(*req.Type)
		in.Type = &t
	}
	account, err := h.chart.UpdateAccount(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToAccountResponse(account))
}

// SetAccountActive handles PUT /accounts/:id/active
func (h *AccountingHandler) SetAccountActive(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SetAccountActiveRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.chart.SetAccountActive(c.Request.Context(), tenantID, id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToAccountResponse(account))
}

// ListMappings handles GET /system-accounts
func (h *AccountingHandler) ListMappings(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	mappings, err := h.chart.ListMappings(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, convertAll(mappings, dto.ToMappingResponse))
}

// MapSystemAccount handles PUT /system-accounts/:key
func (h *AccountingHandler) MapSystemAccount(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	key := accounting.SystemAccountKey(c.Param("key"))
	if !key.IsValid() {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "key", Message: "Unknown system account key"}})
		return
	}
	var req dto.MapSystemAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	mapping, err := h.chart.MapSystemAccount(c.Request.Context(), tenantID, key, uuid.MustParse(req.AccountID), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToMappingResponse(mapping))
}

// CreateYear handles POST /financial-years
func (h *AccountingHandler) CreateYear(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.CreateYearRequest
	if !h.bindJSON(c, &req) {
		return
	}
	year, err := h.calendar.CreateFinancialYear(c.Request.Context(), appaccounting.CreateYearInput{
		TenantID:  tenantID,
		Code:      req.Code,
		Name:      req.Name,
		StartDate: mustDate(req.StartDate),
		EndDate:   mustDate(req.EndDate),
		CreatedBy: userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToYearResponse(year))
}

// ListYears handles GET /financial-years
func (h *AccountingHandler) ListYears(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	years, err := h.calendar.ListYears(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, convertAll(years, dto.ToYearResponse))
}

// GetCurrentYear handles GET /financial-years/current
func (h *AccountingHandler) GetCurrentYear(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	year, err := h.calendar.GetCurrentYear(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToYearResponse(year))
}

// GetYear handles GET /financial-years/:id
func (h *AccountingHandler) GetYear(c *gin.Context) {
	h.yearAction(c, h.calendar.GetYear)
}

// OpenYear handles POST /financial-years/:id/open
func (h *AccountingHandler) OpenYear(c *gin.Context) {
	h.yearAction(c, h.calendar.OpenFinancialYear)
}

// SetCurrentYear handles POST /financial-years/:id/current
func (h *AccountingHandler) SetCurrentYear(c *gin.Context) {
	h.yearAction(c, h.calendar.SetCurrentYear)
}

// ArchiveYear handles POST /financial-years/:id/archive
func (h *AccountingHandler) ArchiveYear(c *gin.Context) {
	h.yearAction(c, h.calendar.ArchiveFinancialYear)
}

type yearFunc func(ctx context.Context, tenantID, yearID uuid.UUID) (*accounting.FinancialYear, error)

func (h *AccountingHandler) yearAction(c *gin.Context, fn yearFunc) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	year, err := fn(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToYearResponse(year))
}

// ListPeriods handles GET /financial-years/:id/periods
func (h *AccountingHandler) ListPeriods(c *gin.Context) {
	h.periodsAction(c, h.calendar.ListPeriods, false)
}

// GeneratePeriods handles POST /financial-years/:id/periods
func (h *AccountingHandler) GeneratePeriods(c *gin.Context) {
	h.periodsAction(c, h.calendar.GeneratePeriods, true)
}

func (h *AccountingHandler) periodsAction(c *gin.Context, fn func(context.Context, uuid.UUID, uuid.UUID) ([]*accounting.FinancialPeriod, error), created bool) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	periods, err := fn(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if created {
		h.Created(c, convertAll(periods, dto.ToPeriodResponse))
		return
	}
	h.Success(c, convertAll(periods, dto.ToPeriodResponse))
}

// CloseYear handles POST /financial-years/:id/close
func (h *AccountingHandler) CloseYear(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseYearRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	result, err := h.calendar.CloseFinancialYear(c.Request.Context(), appaccounting.CloseYearInput{
		TenantID:        tenantID,
		YearID:          id,
		ClosingDate:     mustDate(req.ClosingDate),
		ForceCloseFinal: req.ForceCloseFinal,
		ClosedBy:        userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := dto.CloseYearResponse{Year: dto.ToYearResponse(result.Year)}
	if result.ClosingEntry != nil {
		entry := dto.ToEntryResponse(result.ClosingEntry)
		resp.ClosingEntry = &entry
	}
	h.Success(c, resp)
}

// ClosePeriod handles POST /financial-periods/:id/close
func (h *AccountingHandler) ClosePeriod(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	period, err := h.calendar.ClosePeriod(c.Request.Context(), tenantID, id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPeriodResponse(period))
}

// ReopenPeriod handles POST /financial-periods/:id/reopen
func (h *AccountingHandler) ReopenPeriod(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	period, err := h.calendar.ReopenPeriod(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPeriodResponse(period))
}

// PostEntry handles POST /entries. Only MANUAL entries are posted over
// HTTP, every other source module posts through its own operation.
func (h *AccountingHandler) PostEntry(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.PostEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lines := make([]accounting.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, l.ToLineInput())
	}
	entry, err := h.ledger.PostEntry(c.Request.Context(), appaccounting.PostEntryInput{
		TenantID:     tenantID,
		EntryDate:    mustDate(req.EntryDate),
		Description:  req.Description,
		SourceModule: accounting.SourceManual,
		SourceID:     req.SourceID,
		Lines:        lines,
		CreatedBy:    userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToEntryResponse(entry))
}

// ListEntries handles GET /entries
func (h *AccountingHandler) ListEntries(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ListEntriesRequest
	if !h.bindQuery(c, &req) {
		return
	}

	from, to := dayRange(req.From, req.To)
	filter := accounting.EntryFilter{
		Filter:            req.ListRequest.Filter(),
		From:              from,
		To:                to,
		SourceID:          req.SourceID,
		FinancialYearID:   parseOptionalUUID(req.FinancialYearID),
		FinancialPeriodID: parseOptionalUUID(req.FinancialPeriodID),
	}
	if req.SourceModule != "" {
		m := accounting.SourceModule(req.SourceModule)
		filter.SourceModule = &m
	}
	page, err := h.ledger.ListEntries(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, dto.ToEntryResponse))
}

// GetEntry handles GET /entries/:id
func (h *AccountingHandler) GetEntry(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.ledger.GetEntry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToEntryResponse(entry))
}

// ReverseEntry handles POST /entries/:id/reverse
func (h *AccountingHandler) ReverseEntry(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ReverseEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.ledger.ReverseEntry(c.Request.Context(), appaccounting.ReverseEntryInput{
		TenantID:  tenantID,
		EntryID:   id,
		Date:      mustDate(req.Date),
		Reason:    req.Reason,
		SourceID:  req.SourceID,
		CreatedBy: userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToEntryResponse(entry))
}
