package asset

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestAsset(t *testing.T, cost, salvage string, years int) *FixedAsset {
	t.Helper()
	a, err := NewFixedAsset(uuid.New(), "MRI-01", "MRI scanner", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), d(cost), d(salvage), years)
	require.NoError(t, err)
	return a
}

func TestFixedAsset_MonthlyDepreciation(t *testing.T) {
	a := newTestAsset(t, "12000", "0", 1)
	assert.True(t, a.MonthlyDepreciation().Equal(d("1000")))

	b := newTestAsset(t, "10000", "1000", 5)
	assert.True(t, b.MonthlyDepreciation().Equal(d("150")))

	c := newTestAsset(t, "1000", "0", 3)
	assert.True(t, c.MonthlyDepreciation().Equal(d("27.778")))
}

func TestFixedAsset_DepreciationIsCappedAtBookValue(t *testing.T) {
	a := newTestAsset(t, "1200", "200", 1)
	a.AccumulatedDepreciation = d("950")

	assert.True(t, a.MonthlyDepreciation().Equal(d("50")))
	require.NoError(t, a.ApplyDepreciation(a.MonthlyDepreciation()))
	assert.Equal(t, StatusFullyDepreciated, a.Status)
	assert.True(t, a.BookValue().Equal(d("200")))
	assert.False(t, a.IsEligible(time.Now()))
	assert.Error(t, a.ApplyDepreciation(d("1")))
}

func TestFixedAsset_IsEligible(t *testing.T) {
	a := newTestAsset(t, "1200", "0", 1)
	assert.False(t, a.IsEligible(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), "acquired after the period")
	assert.True(t, a.IsEligible(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, a.Dispose())
	assert.False(t, a.IsEligible(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Error(t, a.Dispose())
}

func TestNewFixedAsset_Validation(t *testing.T) {
	acquired := time.Now()
	_, err := NewFixedAsset(uuid.New(), "", "x", acquired, d("1"), d("0"), 1)
	assert.Error(t, err)
	_, err = NewFixedAsset(uuid.New(), "A", "x", acquired, d("0"), d("0"), 1)
	assert.Error(t, err)
	_, err = NewFixedAsset(uuid.New(), "A", "x", acquired, d("10"), d("11"), 1)
	assert.Error(t, err)
	_, err = NewFixedAsset(uuid.New(), "A", "x", acquired, d("10"), d("1"), 0)
	assert.Error(t, err)
}
