package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := fmt.Errorf("record payment: %w", NewDomainError(CodeOverpayment, "amount 150 exceeds 100"))

	assert.True(t, errors.Is(err, ErrOverpayment))
	assert.False(t, errors.Is(err, ErrInvalidAmount))
	assert.True(t, HasCode(err, CodeOverpayment))
	assert.False(t, HasCode(errors.New("plain"), CodeOverpayment))
}

func TestDomainError_WithDetail(t *testing.T) {
	base := NewDomainError(CodeOverlappingShift, "overlap")
	withDetail := base.WithDetail("existing_shift_id", "abc")

	assert.Nil(t, base.Details)
	assert.Equal(t, "abc", withDetail.Details["existing_shift_id"])
	assert.Equal(t, base.Code, withDetail.Code)
}
