package accounts

import "github.com/shopspring/decimal"

type createAccountRequest struct {
	OrgID          int64           `json:"organization_id" validate:"required,gt=0"`
	Code           string          `json:"account_code" validate:"required,max=50"`
	Name           string          `json:"account_name" validate:"required,max=255"`
	Type           string          `json:"account_type" validate:"required,oneof=asset liability equity revenue expense"`
	SubType        string          `json:"sub_type,omitempty" validate:"omitempty,max=100"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	IsCashAccount  bool            `json:"is_cash_account,omitempty"`
	IsBankAccount  bool            `json:"is_bank_account,omitempty"`
	Description    string          `json:"description,omitempty"`
}

type accountResponse struct {
	Account Account `json:"data"`
}

type listAccountsResponse struct {
	Accounts []Account `json:"data"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
	Total    int       `json:"total"`
}

type balanceResponse struct {
	AccountID      int64           `json:"account_id"`
	Code           string          `json:"account_code"`
	Name           string          `json:"account_name"`
	Type           AccountType     `json:"account_type"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}
