package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads aggregated balances straight from the ledger tables.
// Cancelled vouchers never appear here because cancellation removes their
// ledger rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a report repository over the shared pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountBalances returns one row per account with its balance carried into
// the window start plus the debit and credit activity inside the window.
// A nil from includes everything before to; a nil to runs to the present.
func (r *Repository) AccountBalances(ctx context.Context, orgID int64, from, to *time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `
SELECT a.account_code, a.account_name, a.account_type, a.opening_balance,
       COALESCE(SUM(l.debit_amount)  FILTER (WHERE $2::date IS NOT NULL AND l.entry_date <  $2), 0) AS pre_debit,
       COALESCE(SUM(l.credit_amount) FILTER (WHERE $2::date IS NOT NULL AND l.entry_date <  $2), 0) AS pre_credit,
       COALESCE(SUM(l.debit_amount)  FILTER (WHERE ($2::date IS NULL OR l.entry_date >= $2) AND ($3::date IS NULL OR l.entry_date <= $3)), 0) AS period_debit,
       COALESCE(SUM(l.credit_amount) FILTER (WHERE ($2::date IS NULL OR l.entry_date >= $2) AND ($3::date IS NULL OR l.entry_date <= $3)), 0) AS period_credit
FROM chart_of_accounts a
LEFT JOIN ledgers l ON l.organization_id = a.organization_id AND l.account_id = a.id
WHERE a.organization_id = $1
GROUP BY a.id, a.account_code, a.account_name, a.account_type, a.opening_balance
ORDER BY a.account_code ASC`, orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make([]AccountBalance, 0)
	for rows.Next() {
		var (
			code, name, accountType      string
			opening, preDebit, preCredit decimal.Decimal
			periodDebit, periodCredit    decimal.Decimal
		)
		if err := rows.Scan(&code, &name, &accountType, &opening, &preDebit, &preCredit, &periodDebit, &periodCredit); err != nil {
			return nil, err
		}
		row := NewAccountBalance(code, name, accountType, opening, periodDebit, periodCredit)
		if row.normalDebit {
			row.Opening = opening.Add(preDebit).Sub(preCredit)
		} else {
			row.Opening = opening.Add(preCredit).Sub(preDebit)
		}
		balances = append(balances, row)
	}
	return balances, rows.Err()
}

// TypeTotals sums current balances per account type for the balance summary.
func (r *Repository) TypeTotals(ctx context.Context, orgID int64) ([]TypeTotal, error) {
	rows, err := r.pool.Query(ctx, `
SELECT account_type, COUNT(*), COALESCE(SUM(current_balance), 0)
FROM chart_of_accounts
WHERE organization_id = $1
GROUP BY account_type
ORDER BY account_type ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]TypeTotal, 0)
	for rows.Next() {
		var t TypeTotal
		if err := rows.Scan(&t.Type, &t.Accounts, &t.Balance); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
