package reports

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInternalConsistency signals that a generated report disagrees with the
// ledger's core invariant. It always indicates corrupted posting data.
var ErrInternalConsistency = errors.New("reports: trial balance debit and credit totals diverge")

// AccountBalance models a general ledger account with aggregated balances
// for one reporting window.
type AccountBalance struct {
	Code        string
	Name        string
	Type        string
	Opening     decimal.Decimal
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	normalDebit bool
}

// NewAccountBalance builds a row and fixes its normal balance side from the
// account type. Asset and expense accounts grow on the debit side, the rest
// grow on the credit side.
func NewAccountBalance(code, name, accountType string, opening, debit, credit decimal.Decimal) AccountBalance {
	t := strings.ToLower(accountType)
	return AccountBalance{
		Code:        code,
		Name:        name,
		Type:        t,
		Opening:     opening,
		Debit:       debit,
		Credit:      credit,
		normalDebit: t == "asset" || t == "expense",
	}
}

// Closing computes the closing balance on the account's normal side.
func (a AccountBalance) Closing() decimal.Decimal {
	if a.normalDebit {
		return a.Opening.Add(a.Debit).Sub(a.Credit)
	}
	return a.Opening.Add(a.Credit).Sub(a.Debit)
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	Code    string          `json:"account_code"`
	Name    string          `json:"account_name"`
	Opening decimal.Decimal `json:"opening_balance"`
	Debit   decimal.Decimal `json:"total_debit"`
	Credit  decimal.Decimal `json:"total_credit"`
	Closing decimal.Decimal `json:"closing_balance"`
}

// TrialBalanceGroup aggregates accounts for presentation.
type TrialBalanceGroup struct {
	Key      string                `json:"group"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Opening  decimal.Decimal       `json:"opening_balance"`
	Debit    decimal.Decimal       `json:"total_debit"`
	Credit   decimal.Decimal       `json:"total_credit"`
	Closing  decimal.Decimal       `json:"closing_balance"`
}

// TrialBalance is the structured trial balance response. TotalDebit and
// TotalCredit sum posted activity and must be equal whenever posting worked.
type TrialBalance struct {
	Groups       []TrialBalanceGroup `json:"groups"`
	TotalOpening decimal.Decimal     `json:"total_opening"`
	TotalDebit   decimal.Decimal     `json:"total_debit"`
	TotalCredit  decimal.Decimal     `json:"total_credit"`
	TotalClosing decimal.Decimal     `json:"total_closing"`
}

// Balanced reports whether posted debit and credit activity agree.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string          `json:"account_code"`
	Name    string          `json:"account_name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and total for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
}

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string          `json:"account_code"`
	Name   string          `json:"account_name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Revenue   ProfitAndLossSection `json:"revenue"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetIncome decimal.Decimal      `json:"net_income"`
}

// TypeTotal is one row of the balance summary, grouped by account type.
type TypeTotal struct {
	Type     string          `json:"account_type"`
	Accounts int             `json:"accounts"`
	Balance  decimal.Decimal `json:"total_balance"`
}

// BalanceSummary aggregates current balances per account type.
type BalanceSummary struct {
	Types []TypeTotal `json:"types"`
}
