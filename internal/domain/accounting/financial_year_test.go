package accounting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newOpenYear(t *testing.T) (*FinancialYear, []*FinancialPeriod) {
	t.Helper()
	y, err := NewFinancialYear(uuid.New(), "FY2026", "Fiscal 2026", date(2026, 1, 1), date(2027, 1, 1))
	require.NoError(t, err)
	require.NoError(t, y.Open())
	return y, y.GenerateMonthlyPeriods()
}

func TestNewFinancialYear(t *testing.T) {
	t.Run("creates draft year", func(t *testing.T) {
		y, err := NewFinancialYear(uuid.New(), "FY2026", "", date(2026, 1, 1), date(2027, 1, 1))
		require.NoError(t, err)
		assert.Equal(t, FinancialYearStatusDraft, y.Status)
		assert.Equal(t, "FY2026", y.Name)
		assert.False(t, y.IsCurrent)
		assert.Len(t, y.GetDomainEvents(), 1)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		_, err := NewFinancialYear(uuid.New(), "FY", "", date(2026, 1, 1), date(2026, 1, 1))
		assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := NewFinancialYear(uuid.New(), " ", "", date(2026, 1, 1), date(2027, 1, 1))
		assert.Error(t, err)
	})
}

func TestFinancialYear_Lifecycle(t *testing.T) {
	y, err := NewFinancialYear(uuid.New(), "FY2026", "", date(2026, 1, 1), date(2027, 1, 1))
	require.NoError(t, err)

	assert.Error(t, y.MarkCurrent(), "draft year cannot be current")
	assert.Error(t, y.Close(nil, uuid.Nil), "draft year cannot be closed")

	require.NoError(t, y.Open())
	assert.Error(t, y.Open())
	require.NoError(t, y.MarkCurrent())
	assert.True(t, y.IsCurrent)

	entryID := uuid.New()
	require.NoError(t, y.Close(&entryID, uuid.New()))
	assert.Equal(t, FinancialYearStatusClosed, y.Status)
	assert.False(t, y.IsCurrent)
	assert.Equal(t, &entryID, y.ClosingEntryID)
	assert.NotNil(t, y.ClosedAt)

	require.NoError(t, y.Archive())
	assert.Equal(t, FinancialYearStatusArchived, y.Status)
	assert.Error(t, y.Archive())
}

func TestFinancialYear_GenerateMonthlyPeriods(t *testing.T) {
	t.Run("calendar year gives twelve periods", func(t *testing.T) {
		y, periods := newOpenYear(t)
		require.Len(t, periods, 12)
		assert.Equal(t, date(2026, 1, 1), periods[0].StartDate)
		assert.Equal(t, date(2026, 2, 1), periods[0].EndDate)
		assert.Equal(t, date(2026, 12, 1), periods[11].StartDate)
		assert.Equal(t, y.EndDate, periods[11].EndDate)
		assert.Equal(t, "FY2026-P01", periods[0].Name)
		for i := 1; i < len(periods); i++ {
			assert.Equal(t, periods[i-1].EndDate, periods[i].StartDate, "periods must be contiguous")
		}
	})

	t.Run("mid-month boundaries are truncated", func(t *testing.T) {
		y, err := NewFinancialYear(uuid.New(), "FY", "", date(2026, 7, 15), date(2027, 7, 15))
		require.NoError(t, err)
		periods := y.GenerateMonthlyPeriods()
		require.Len(t, periods, 13)
		assert.Equal(t, date(2026, 7, 15), periods[0].StartDate)
		assert.Equal(t, date(2026, 8, 1), periods[0].EndDate)
		assert.Equal(t, date(2027, 7, 1), periods[12].StartDate)
		assert.Equal(t, date(2027, 7, 15), periods[12].EndDate)
	})
}

func TestResolvePeriod(t *testing.T) {
	y, periods := newOpenYear(t)

	t.Run("finds covering open period", func(t *testing.T) {
		p, err := ResolvePeriod(y, periods, time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, 3, p.Number)
	})

	t.Run("closed period rejects", func(t *testing.T) {
		require.NoError(t, periods[1].Close(uuid.Nil))
		_, err := ResolvePeriod(y, periods, date(2026, 2, 10))
		assert.True(t, shared.HasCode(err, shared.CodeNoOpenPeriod))
		assert.Contains(t, err.Error(), "closed")
	})

	t.Run("date outside year rejects", func(t *testing.T) {
		_, err := ResolvePeriod(y, periods, date(2027, 1, 1))
		assert.True(t, shared.HasCode(err, shared.CodeNoOpenPeriod))
	})

	t.Run("closed year rejects even with open period", func(t *testing.T) {
		closed, ps := newOpenYear(t)
		require.NoError(t, closed.Close(nil, uuid.Nil))
		_, err := ResolvePeriod(closed, ps, date(2026, 5, 5))
		assert.True(t, shared.HasCode(err, shared.CodeNoOpenPeriod))
	})
}

func TestFinancialPeriod_CloseReopen(t *testing.T) {
	y, periods := newOpenYear(t)
	p := periods[0]

	require.NoError(t, p.Close(uuid.New()))
	assert.False(t, p.IsOpen())
	assert.NotNil(t, p.ClosedBy)
	assert.Error(t, p.Close(uuid.Nil), "closing twice is rejected")

	require.NoError(t, p.Reopen(y))
	assert.True(t, p.IsOpen())
	assert.Nil(t, p.ClosedAt)

	require.NoError(t, p.Close(uuid.Nil))
	require.NoError(t, y.Close(nil, uuid.Nil))
	assert.Error(t, p.Reopen(y), "periods of a closed year stay closed")
}

func TestFinalPeriod(t *testing.T) {
	_, periods := newOpenYear(t)
	reversed := make([]*FinancialPeriod, len(periods))
	for i := range periods {
		reversed[len(periods)-1-i] = periods[i]
	}
	assert.Equal(t, 12, FinalPeriod(reversed).Number)
	assert.Nil(t, FinalPeriod(nil))
}
