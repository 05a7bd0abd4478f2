package accounting

import (
	"strings"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
)

// AccountType classifies an account in the chart of accounts
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// IsDebitNormal reports whether balances of this type grow on the debit side
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// IsIncomeStatement reports whether the account is closed into retained earnings at year end
func (t AccountType) IsIncomeStatement() bool {
	return t == AccountTypeRevenue || t == AccountTypeExpense
}

// Account is an entry of the chart of accounts
type Account struct {
	shared.TenantAggregateRoot
	Code     string
	Name     string
	Type     AccountType
	IsActive bool
}

// NewAccount creates an active account
func NewAccount(tenantID uuid.UUID, code, name string, accountType AccountType) (*Account, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account code cannot be empty")
	}
	if len(code) > 32 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account code cannot exceed 32 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid account type")
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                accountType,
		IsActive:            true,
	}, nil
}

// Rename changes the display name. Allowed on referenced accounts.
func (a *Account) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Account name cannot be empty")
	}
	a.Name = name
	a.Touch()
	a.IncrementVersion()
	return nil
}

// Reclassify changes code and type. referenced must report whether any
// posted line uses the account; referenced accounts are immutable.
func (a *Account) Reclassify(code string, accountType AccountType, referenced bool) error {
	if referenced {
		return shared.NewDomainError(shared.CodeImmutableRecord, "Account is referenced by posted entries and cannot be reclassified")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Account code cannot be empty")
	}
	if !accountType.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid account type")
	}
	a.Code = code
	a.Type = accountType
	a.Touch()
	a.IncrementVersion()
	return nil
}

// Deactivate stops the account from receiving new postings
func (a *Account) Deactivate() {
	a.IsActive = false
	a.Touch()
	a.IncrementVersion()
}

// Activate allows postings again
func (a *Account) Activate() {
	a.IsActive = true
	a.Touch()
	a.IncrementVersion()
}

// CanPost reports whether lines may reference the account
func (a *Account) CanPost() bool {
	return a.IsActive
}
