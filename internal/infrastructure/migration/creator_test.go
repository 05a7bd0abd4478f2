package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medierp/ledger/internal/infrastructure/persistence/models"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"create invoices", "create_invoices"},
		{"Add-Claim-Status", "add_claim_status"},
		{"ADD__SHIFT__LOCKS", "add_shift_locks"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, slugify(tt.input))
		})
	}
}

func TestCreate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	now := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

	f, err := Create(dir, "Add claim status", "Tracks insurer claims", now)
	require.NoError(t, err)
	assert.Equal(t, uint(20260504030201), f.Version)
	assert.Equal(t, "add_claim_status", f.Name)
	assert.Equal(t, filepath.Join(dir, "20260504030201_add_claim_status.up.sql"), f.UpPath)

	up, err := os.ReadFile(f.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Description: Tracks insurer claims")
	_, err = os.Stat(f.DownPath)
	require.NoError(t, err)

	t.Run("same version twice is refused", func(t *testing.T) {
		_, err := Create(dir, "add claim status", "", now)
		assert.Error(t, err)
	})

	t.Run("unusable name", func(t *testing.T) {
		_, err := Create(dir, "!!!", "", now)
		assert.Error(t, err)
	})
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"20260102000000_second.up.sql",
		"20260102000000_second.down.sql",
		"20260101000000_first.up.sql",
		"20260103000000_orphan.down.sql",
		"README.md",
		"notes.up.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "20260104000000_dir.up.sql"), 0o755))

	files, err := List(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "first", files[0].Name)
	assert.False(t, files[0].HasDown())
	assert.Equal(t, "second", files[1].Name)
	assert.True(t, files[1].HasDown())

	t.Run("missing directory", func(t *testing.T) {
		files, err := List(filepath.Join(dir, "nope"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestStatusOf(t *testing.T) {
	files := []File{{Version: 1}, {Version: 2}, {Version: 3}}

	lines := statusOf(files, 2)
	assert.True(t, lines[0].Applied)
	assert.True(t, lines[1].Applied)
	assert.False(t, lines[2].Applied)

	for _, l := range statusOf(files, 0) {
		assert.False(t, l.Applied)
	}
}

// The shipped scripts must create every table the GORM models map to and
// be reversible.
func TestShippedMigrationsCoverModels(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "migrations")
	files, err := List(dir)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var schema strings.Builder
	for _, f := range files {
		assert.True(t, f.HasDown(), "%s has no down script", f.Name)
		body, err := os.ReadFile(f.UpPath)
		require.NoError(t, err)
		schema.Write(body)
	}

	for _, m := range models.All() {
		named, ok := m.(interface{ TableName() string })
		require.True(t, ok, "%T has no table name", m)
		assert.Contains(t, schema.String(), "CREATE TABLE "+named.TableName()+" (")
	}
	assert.Contains(t, schema.String(), "EXCLUDE USING gist")
}
