// Package testutil builds the ledger services over test databases and
// carries the helpers shared by package and integration tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	applogger "github.com/medierp/ledger/internal/infrastructure/logger"
	"github.com/medierp/ledger/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestContext wraps a Gin test context with its recorder
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
}

// NewTestContext creates a Gin context for a GET / request
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return &TestContext{Context: c, Recorder: w}
}

// Authenticate sets the identity the JWT middleware would have set
func (tc *TestContext) Authenticate(tenantID, userID uuid.UUID) *TestContext {
	tc.Context.Set(middleware.TenantIDKey, tenantID)
	tc.Context.Set(middleware.UserIDKey, userID)
	return tc
}

// SetRequestID sets the request id the request id middleware would have set
func (tc *TestContext) SetRequestID(id string) *TestContext {
	tc.Context.Set(applogger.GinRequestIDKey, id)
	return tc
}

// NewTestUUID derives a reproducible UUID from seed, so fixtures read the
// same across runs
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("ledger-test/"+seed))
}

// The seeded ledger acts as this hospital and clerk
var (
	SeedTenantID = NewTestUUID("hospital")
	SeedUserID   = NewTestUUID("clerk")
)
