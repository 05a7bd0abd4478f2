package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/medierp/ledger/internal/domain/shared"
)

func TestTranslateError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"record not found", gorm.ErrRecordNotFound, shared.CodeNotFound},
		{"wrapped not found", fmt.Errorf("find: %w", gorm.ErrRecordNotFound), shared.CodeNotFound},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, shared.CodeConflict},
		{"postgres unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "idx_account_tenant_code"}, shared.CodeConflict},
		{"postgres exclusion violation", &pgconn.PgError{Code: "23P01", ConstraintName: "shift_closings_no_overlap"}, shared.CodeOverlappingShift},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, shared.CodeConcurrencyConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, shared.CodeConcurrencyConflict},
		{"sqlite unique", errors.New("UNIQUE constraint failed: accounts.tenant_id, accounts.code"), shared.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			assert.True(t, shared.HasCode(got, tt.code), "got %v", got)
		})
	}

	t.Run("constraint name is kept", func(t *testing.T) {
		var de *shared.DomainError
		got := translateError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_invoice_number"})
		assert.True(t, errors.As(got, &de))
		assert.Equal(t, "idx_invoice_number", de.Details["constraint"])
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		assert.Nil(t, translateError(nil))
		assert.Same(t, plain, translateError(plain))
		pgErr := &pgconn.PgError{Code: "22003"}
		assert.Same(t, pgErr, translateError(pgErr))
	})
}
