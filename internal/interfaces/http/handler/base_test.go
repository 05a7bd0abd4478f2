package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/interfaces/http/dto"
	"github.com/medierp/ledger/internal/interfaces/http/middleware"
	"github.com/medierp/ledger/tests/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, w
}

func TestBaseHandler_Identity(t *testing.T) {
	h := &BaseHandler{}

	t.Run("missing tenant", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")
		_, _, ok := h.identity(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, testutil.DecodeEnvelope(t, w).Error.Code)
	})

	t.Run("missing user", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")
		c.Set(middleware.TenantIDKey, uuid.New())
		_, _, ok := h.identity(c)
		assert.False(t, ok)
		assert.Equal(t, "User not found in token", testutil.DecodeEnvelope(t, w).Error.Message)
	})

	t.Run("both present", func(t *testing.T) {
		tenantID, userID := uuid.New(), uuid.New()
		tc := testutil.NewTestContext(t).Authenticate(tenantID, userID)
		gotTenant, gotUser, ok := h.identity(tc.Context)
		require.True(t, ok)
		assert.Equal(t, tenantID, gotTenant)
		assert.Equal(t, userID, gotUser)
	})
}

func TestBaseHandler_PathUUID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/accounts/nope", "")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	_, ok := h.pathUUID(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := testutil.DecodeEnvelope(t, w)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	require.Len(t, env.Error.Fields, 1)
	assert.Equal(t, "id", env.Error.Fields[0].Field)
}

func TestBaseHandler_BindJSON(t *testing.T) {
	require.NoError(t, middleware.SetupValidator())
	h := &BaseHandler{}

	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{name: "empty body", body: "", wantCode: dto.ErrCodeBadRequest, wantMsg: "Request body is required"},
		{name: "malformed json", body: "{", wantCode: dto.ErrCodeBadRequest},
		{name: "validation failure", body: `{"code":"1101","name":"Cash","type":"LIABILITIES"}`, wantCode: dto.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodPost, "/accounts", tt.body)
			var req dto.CreateAccountRequest
			assert.False(t, h.bindJSON(c, &req))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := testutil.DecodeEnvelope(t, w)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, env.Error.Message)
			}
			assert.Equal(t, tt.wantCode, c.GetString(middleware.ErrorCodeKey))
		})
	}
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.NewDomainError(shared.CodeNotFound, "missing"), http.StatusNotFound, shared.CodeNotFound},
		{"tenant mismatch hides the record", shared.NewDomainError(shared.CodeTenantMismatch, "other tenant"), http.StatusNotFound, shared.CodeTenantMismatch},
		{"overpayment", shared.NewDomainError(shared.CodeOverpayment, "too much"), http.StatusUnprocessableEntity, shared.CodeOverpayment},
		{"overlap", shared.NewDomainError(shared.CodeOverlappingShift, "overlap"), http.StatusConflict, shared.CodeOverlappingShift},
		{"wrapped domain error", errors.Join(errors.New("ctx"), shared.NewDomainError(shared.CodePeriodClosed, "closed")), http.StatusUnprocessableEntity, shared.CodePeriodClosed},
		{"plain error", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t).SetRequestID("req-1")
			h.HandleError(tc.Context, tt.err)
			w := tc.Recorder

			assert.Equal(t, tt.wantStatus, w.Code)
			env := testutil.DecodeEnvelope(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, "req-1", env.Error.RequestID)
		})
	}
}

func TestBaseHandler_HandleErrorDetails(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/", "")
	h.HandleError(c, shared.NewDomainError(shared.CodeOverpayment, "too much").WithDetail("remaining", "10.00"))

	env := testutil.DecodeEnvelope(t, w)
	assert.Equal(t, "10.00", env.Error.Details["remaining"])
}

func TestDayRange(t *testing.T) {
	from, to := dayRange("2026-03-01", "2026-03-31")
	require.NotNil(t, from)
	require.NotNil(t, to)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *to)

	from, to = dayRange("", "")
	assert.Nil(t, from)
	assert.Nil(t, to)
}

func TestParseOptionalUUID(t *testing.T) {
	assert.Nil(t, parseOptionalUUID(""))
	assert.Nil(t, parseOptionalUUID("garbage"))
	id := uuid.New()
	assert.Equal(t, id, *parseOptionalUUID(id.String()))
}
