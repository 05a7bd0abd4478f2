package persistence

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/medierp/ledger/internal/domain/shared"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes classified by translateError
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
	pgSerialization      = "40001"
	pgDeadlockDetected   = "40P01"
)

// translateError maps driver errors onto domain errors. Errors it does not
// recognise are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflict(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return conflict(err).WithDetail("constraint", pgErr.ConstraintName)
		case pgExclusionViolation:
			return shared.NewDomainError(shared.CodeOverlappingShift, shared.ErrOverlappingShift.Message).
				WithDetail("constraint", pgErr.ConstraintName)
		case pgSerialization, pgDeadlockDetected:
			return shared.NewDomainError(shared.CodeConcurrencyConflict, shared.ErrConcurrencyConflict.Message)
		}
		return err
	}

	// sqlite reports constraint failures only through the message
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return conflict(err)
	}
	return err
}

func conflict(err error) *shared.DomainError {
	return shared.NewDomainError(shared.CodeConflict, shared.ErrConflict.Message).
		WithDetail("cause", err.Error())
}
