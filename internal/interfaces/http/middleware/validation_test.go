package middleware

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moneyRequest struct {
	Amount   string `json:"amount" binding:"required,money_pos"`
	Discount string `json:"discount" binding:"omitempty,money_nonneg"`
	Rate     string `json:"rate" binding:"omitempty,decimal"`
	Method   string `json:"method" binding:"required,oneof=CASH CARD"`
}

func TestSetupValidator_MoneyTags(t *testing.T) {
	require.NoError(t, SetupValidator())
	require.NoError(t, SetupValidator())

	tests := []struct {
		name   string
		req    moneyRequest
		fields []string
	}{
		{"valid", moneyRequest{Amount: "10.50", Discount: "0", Rate: "-1.5", Method: "CASH"}, nil},
		{"zero amount", moneyRequest{Amount: "0", Method: "CASH"}, []string{"amount"}},
		{"negative discount", moneyRequest{Amount: "1", Discount: "-0.01", Method: "CARD"}, []string{"discount"}},
		{"not a number", moneyRequest{Amount: "ten", Rate: "x", Method: "CASH"}, []string{"amount", "rate"}},
		{"bad method", moneyRequest{Amount: "1", Method: "CHEQUE"}, []string{"method"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.req)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			details := ValidationDetails(err)
			var fields []string
			for _, d := range details {
				fields = append(fields, d.Field)
				assert.NotEmpty(t, d.Message)
			}
			assert.ElementsMatch(t, tt.fields, fields)
		})
	}
}

func TestValidationDetails_NotValidationError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}
