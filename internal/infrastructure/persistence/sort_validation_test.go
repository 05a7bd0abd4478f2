package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medierp/ledger/internal/domain/shared"
)

func TestValidateSortOrder(t *testing.T) {
	for input, want := range map[string]string{
		"asc":   "ASC",
		" Asc ": "ASC",
		"DESC":  "DESC",
		"":      "DESC",
		"1;--":  "DESC",
	} {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField(t *testing.T) {
	assert.Equal(t, "code", ValidateSortField(" code ", AssetSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("", AssetSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("cost; DROP TABLE fixed_assets", AssetSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("tenant_id", AssetSortFields, "created_at"))
}

func TestSortFieldsWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"CommonSortFields":  CommonSortFields,
		"AccountSortFields": AccountSortFields,
		"EntrySortFields":   EntrySortFields,
		"InvoiceSortFields": InvoiceSortFields,
		"PaymentSortFields": PaymentSortFields,
		"ShiftSortFields":   ShiftSortFields,
		"AssetSortFields":   AssetSortFields,
	}
	for name, whitelist := range whitelists {
		assert.True(t, whitelist["created_at"], "%s sorts by created_at", name)
		assert.False(t, whitelist["tenant_id"], "%s never sorts by tenant", name)
	}
}

func TestFindPage(t *testing.T) {
	repo := NewGormFixedAssetRepository(newSQLiteDB(t))
	tenantID := uuid.New()
	for _, code := range []string{"FA-003", "FA-001", "FA-005", "FA-002", "FA-004"} {
		createAsset(t, repo, tenantID, code)
	}
	createAsset(t, repo, uuid.New(), "FA-000")

	codes := func(filter shared.Filter) ([]string, int64) {
		t.Helper()
		assets, total, err := repo.FindAll(ctx, tenantID, filter)
		require.NoError(t, err)
		out := make([]string, len(assets))
		for i, a := range assets {
			out[i] = a.Code
		}
		return out, total
	}

	got, total := codes(shared.Filter{Page: 1, PageSize: 2, OrderBy: "code", OrderDir: "ASC"})
	assert.Equal(t, int64(5), total)
	assert.Equal(t, []string{"FA-001", "FA-002"}, got)

	got, _ = codes(shared.Filter{Page: 3, PageSize: 2, OrderBy: "code", OrderDir: "asc"})
	assert.Equal(t, []string{"FA-005"}, got)

	got, _ = codes(shared.Filter{Page: 1, PageSize: 2, OrderBy: "code", OrderDir: "desc"})
	assert.Equal(t, []string{"FA-005", "FA-004"}, got)

	got, total = codes(shared.Filter{Page: 4, PageSize: 2, OrderBy: "code"})
	assert.Equal(t, int64(5), total)
	assert.Empty(t, got)
}
