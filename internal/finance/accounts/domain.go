package accounts

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// AccountStatus enumerates account lifecycle values. Accounts are soft
// deactivated, never deleted, once they carry postings.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

// Account models a chart of accounts node scoped to one organization.
type Account struct {
	ID             int64           `json:"id"`
	OrgID          int64           `json:"organization_id"`
	Code           string          `json:"account_code"`
	Name           string          `json:"account_name"`
	Type           AccountType     `json:"account_type"`
	SubType        string          `json:"sub_type,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Status         AccountStatus   `json:"status"`
	IsCashAccount  bool            `json:"is_cash_account"`
	IsBankAccount  bool            `json:"is_bank_account"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NormalDebit reports whether the account increases on the debit side.
func (a Account) NormalDebit() bool {
	return a.Type == AccountTypeAsset || a.Type == AccountTypeExpense
}

var (
	// ErrNotFound indicates a missing account. Cross-organization lookups
	// resolve here as well so existence is never leaked across tenants.
	ErrNotFound = errors.New("accounts: account not found")
	// ErrDuplicateCode indicates the code already exists in the organization.
	ErrDuplicateCode = errors.New("accounts: account code already exists")
	// ErrInvalidType indicates an unrecognised account type.
	ErrInvalidType = errors.New("accounts: invalid account type")
	// ErrInvalidPrecision indicates an amount with more than two fractional digits.
	ErrInvalidPrecision = errors.New("accounts: opening balance exceeds currency precision")
)

// CreateInput groups the fields required to create an account.
type CreateInput struct {
	OrgID          int64
	Code           string
	Name           string
	Type           AccountType
	SubType        string
	OpeningBalance decimal.Decimal
	IsCashAccount  bool
	IsBankAccount  bool
	Description    string
}

// Validate ensures the input meets minimum criteria.
func (in CreateInput) Validate() error {
	if in.OrgID == 0 {
		return errors.New("accounts: organization required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("accounts: account code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("accounts: account name required")
	}
	switch in.Type {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
	default:
		return ErrInvalidType
	}
	if in.OpeningBalance.Exponent() < -2 {
		return ErrInvalidPrecision
	}
	return nil
}

// ListFilter narrows account listings. Zero values mean no filtering.
type ListFilter struct {
	Type    AccountType
	Status  AccountStatus
	Page    int
	PerPage int
}
