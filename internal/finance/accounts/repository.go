package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, organization_id, account_code, account_name, account_type, sub_type, opening_balance, current_balance, status, is_cash_account, is_bank_account, description, created_at, updated_at`

// Repository persists chart of accounts rows in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new account and returns the persisted row.
func (r *Repository) Insert(ctx context.Context, in CreateInput) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO chart_of_accounts
(organization_id, account_code, account_name, account_type, sub_type, opening_balance, current_balance, status, is_cash_account, is_bank_account, description)
VALUES ($1,$2,$3,$4,$5,$6,$6,'active',$7,$8,$9)
RETURNING `+accountColumns, in.OrgID, in.Code, in.Name, in.Type, in.SubType, in.OpeningBalance, in.IsCashAccount, in.IsBankAccount, in.Description)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return account, nil
}

// Get loads one account scoped to the organization.
func (r *Repository) Get(ctx context.Context, orgID, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM chart_of_accounts WHERE organization_id=$1 AND id=$2`, orgID, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return account, nil
}

// List returns accounts for the organization ordered by account code.
func (r *Repository) List(ctx context.Context, orgID int64, filter ListFilter) ([]Account, int, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM chart_of_accounts
WHERE organization_id=$1
  AND ($2='' OR account_type=$2)
  AND ($3='' OR status=$3)
ORDER BY account_code
LIMIT $4 OFFSET $5`, orgID, string(filter.Type), string(filter.Status), perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chart_of_accounts
WHERE organization_id=$1 AND ($2='' OR account_type=$2) AND ($3='' OR status=$3)`,
		orgID, string(filter.Type), string(filter.Status)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// SetStatus flips the account between active and inactive.
func (r *Repository) SetStatus(ctx context.Context, orgID, id int64, status AccountStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE chart_of_accounts SET status=$3, updated_at=NOW() WHERE organization_id=$1 AND id=$2`, orgID, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.OpeningBalance, &a.CurrentBalance, &a.Status, &a.IsCashAccount, &a.IsBankAccount, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
