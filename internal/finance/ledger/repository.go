package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/strata-erp/strata-erp/internal/finance/accounts"
)

// Repository persists vouchers, entries, and ledger lines.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service.
type TxRepository interface {
	LockAccounts(ctx context.Context, orgID int64, ids []int64) ([]accounts.Account, error)
	VoucherNumberExists(ctx context.Context, orgID int64, number string) (bool, error)
	InsertVoucher(ctx context.Context, in PostingInput, totalDebit, totalCredit decimal.Decimal) (Voucher, error)
	InsertEntries(ctx context.Context, voucherID int64, entries []EntryInput) ([]Entry, error)
	InsertLedgerLine(ctx context.Context, line LedgerLine) error
	DeleteLedgerLines(ctx context.Context, orgID int64, entryIDs []int64) error
	UpdateAccountBalance(ctx context.Context, orgID, accountID int64, balance decimal.Decimal) error
	GetVoucherWithEntries(ctx context.Context, orgID, voucherID int64) (Voucher, []Entry, error)
	UpdateVoucherStatus(ctx context.Context, voucherID int64, status VoucherStatus) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// LockAccounts loads the referenced accounts with row-level write locks.
// ids must be sorted ascending by the caller so concurrent postings acquire
// locks in the same order.
func (r *txRepository) LockAccounts(ctx context.Context, orgID int64, ids []int64) ([]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, organization_id, account_code, account_name, account_type, sub_type, opening_balance, current_balance, status, is_cash_account, is_bank_account, description, created_at, updated_at
FROM chart_of_accounts WHERE organization_id=$1 AND id = ANY($2) ORDER BY id FOR UPDATE`, orgID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []accounts.Account
	for rows.Next() {
		var a accounts.Account
		if err := rows.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.OpeningBalance, &a.CurrentBalance, &a.Status, &a.IsCashAccount, &a.IsBankAccount, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *txRepository) VoucherNumberExists(ctx context.Context, orgID int64, number string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM journal_vouchers WHERE organization_id=$1 AND voucher_number=$2)`, orgID, number).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertVoucher(ctx context.Context, in PostingInput, totalDebit, totalCredit decimal.Decimal) (Voucher, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_vouchers (organization_id, voucher_number, voucher_date, description, total_debit, total_credit, status)
VALUES ($1,$2,$3,$4,$5,$6,'posted') RETURNING id, created_at, updated_at`, in.OrgID, in.Number, in.Date, in.Description, totalDebit, totalCredit)
	voucher := Voucher{
		OrgID:       in.OrgID,
		Number:      in.Number,
		Date:        in.Date,
		Description: in.Description,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Status:      VoucherStatusPosted,
	}
	if err := row.Scan(&voucher.ID, &voucher.CreatedAt, &voucher.UpdatedAt); err != nil {
		return Voucher{}, err
	}
	return voucher, nil
}

func (r *txRepository) InsertEntries(ctx context.Context, voucherID int64, entries []EntryInput) ([]Entry, error) {
	out := make([]Entry, 0, len(entries))
	for _, in := range entries {
		row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (journal_voucher_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`, voucherID, in.AccountID, in.Debit, in.Credit, in.Description)
		entry := Entry{
			VoucherID:   voucherID,
			AccountID:   in.AccountID,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: in.Description,
		}
		if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *txRepository) InsertLedgerLine(ctx context.Context, line LedgerLine) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ledgers (organization_id, account_id, entry_date, journal_entry_id, reference, debit_amount, credit_amount, balance, narration)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, line.OrgID, line.AccountID, line.EntryDate, line.EntryID, line.Reference, line.Debit, line.Credit, line.Balance, line.Narration)
	return err
}

func (r *txRepository) DeleteLedgerLines(ctx context.Context, orgID int64, entryIDs []int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM ledgers WHERE organization_id=$1 AND journal_entry_id = ANY($2)`, orgID, entryIDs)
	return err
}

func (r *txRepository) UpdateAccountBalance(ctx context.Context, orgID, accountID int64, balance decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE chart_of_accounts SET current_balance=$3, updated_at=NOW() WHERE organization_id=$1 AND id=$2`, orgID, accountID, balance)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) GetVoucherWithEntries(ctx context.Context, orgID, voucherID int64) (Voucher, []Entry, error) {
	var voucher Voucher
	err := r.tx.QueryRow(ctx, `SELECT id, organization_id, voucher_number, voucher_date, description, total_debit, total_credit, status, created_at, updated_at
FROM journal_vouchers WHERE organization_id=$1 AND id=$2 FOR UPDATE`, orgID, voucherID).
		Scan(&voucher.ID, &voucher.OrgID, &voucher.Number, &voucher.Date, &voucher.Description, &voucher.TotalDebit, &voucher.TotalCredit, &voucher.Status, &voucher.CreatedAt, &voucher.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, nil, ErrVoucherNotFound
		}
		return Voucher{}, nil, err
	}
	entries, err := scanEntries(r.tx.Query(ctx, `SELECT id, journal_voucher_id, account_id, debit, credit, description, created_at
FROM journal_entries WHERE journal_voucher_id=$1 ORDER BY id ASC`, voucherID))
	if err != nil {
		return Voucher{}, nil, err
	}
	return voucher, entries, nil
}

func (r *txRepository) UpdateVoucherStatus(ctx context.Context, voucherID int64, status VoucherStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_vouchers SET status=$2, updated_at=NOW() WHERE id=$1`, voucherID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

// ListVouchers returns vouchers for the organization, newest first.
func (r *Repository) ListVouchers(ctx context.Context, orgID int64, status VoucherStatus, page, perPage int) ([]Voucher, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, voucher_number, voucher_date, description, total_debit, total_credit, status, created_at, updated_at
FROM journal_vouchers
WHERE organization_id=$1 AND ($2='' OR status=$2)
ORDER BY voucher_date DESC, id DESC
LIMIT $3 OFFSET $4`, orgID, string(status), perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var vouchers []Voucher
	for rows.Next() {
		var v Voucher
		if err := rows.Scan(&v.ID, &v.OrgID, &v.Number, &v.Date, &v.Description, &v.TotalDebit, &v.TotalCredit, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, err
		}
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journal_vouchers WHERE organization_id=$1 AND ($2='' OR status=$2)`, orgID, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	return vouchers, total, nil
}

// GetVoucher loads one voucher with its entries, scoped to the organization.
func (r *Repository) GetVoucher(ctx context.Context, orgID, voucherID int64) (Voucher, error) {
	var voucher Voucher
	err := r.pool.QueryRow(ctx, `SELECT id, organization_id, voucher_number, voucher_date, description, total_debit, total_credit, status, created_at, updated_at
FROM journal_vouchers WHERE organization_id=$1 AND id=$2`, orgID, voucherID).
		Scan(&voucher.ID, &voucher.OrgID, &voucher.Number, &voucher.Date, &voucher.Description, &voucher.TotalDebit, &voucher.TotalCredit, &voucher.Status, &voucher.CreatedAt, &voucher.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	entries, err := scanEntries(r.pool.Query(ctx, `SELECT id, journal_voucher_id, account_id, debit, credit, description, created_at
FROM journal_entries WHERE journal_voucher_id=$1 ORDER BY id ASC`, voucherID))
	if err != nil {
		return Voucher{}, err
	}
	voucher.Entries = entries
	return voucher, nil
}

// LedgerLines returns posting lines for an account in date order.
func (r *Repository) LedgerLines(ctx context.Context, orgID, accountID int64, from, to *time.Time) ([]LedgerLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, account_id, entry_date, journal_entry_id, reference, debit_amount, credit_amount, balance, narration, created_at
FROM ledgers
WHERE organization_id=$1 AND account_id=$2
  AND ($3::date IS NULL OR entry_date >= $3)
  AND ($4::date IS NULL OR entry_date <= $4)
ORDER BY entry_date ASC, id ASC`, orgID, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []LedgerLine
	for rows.Next() {
		var line LedgerLine
		if err := rows.Scan(&line.ID, &line.OrgID, &line.AccountID, &line.EntryDate, &line.EntryID, &line.Reference, &line.Debit, &line.Credit, &line.Balance, &line.Narration, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListLines returns ledger lines across accounts, newest entry date first.
func (r *Repository) ListLines(ctx context.Context, orgID int64, filter LineFilter) ([]LedgerLine, int, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, account_id, entry_date, journal_entry_id, reference, debit_amount, credit_amount, balance, narration, created_at
FROM ledgers
WHERE organization_id=$1
  AND ($2=0 OR account_id=$2)
  AND ($3::date IS NULL OR entry_date >= $3)
  AND ($4::date IS NULL OR entry_date <= $4)
ORDER BY entry_date DESC, id DESC
LIMIT $5 OFFSET $6`, orgID, filter.AccountID, filter.From, filter.To, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var lines []LedgerLine
	for rows.Next() {
		var line LedgerLine
		if err := rows.Scan(&line.ID, &line.OrgID, &line.AccountID, &line.EntryDate, &line.EntryID, &line.Reference, &line.Debit, &line.Credit, &line.Balance, &line.Narration, &line.CreatedAt); err != nil {
			return nil, 0, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledgers
WHERE organization_id=$1
  AND ($2=0 OR account_id=$2)
  AND ($3::date IS NULL OR entry_date >= $3)
  AND ($4::date IS NULL OR entry_date <= $4)`, orgID, filter.AccountID, filter.From, filter.To).Scan(&total); err != nil {
		return nil, 0, err
	}
	return lines, total, nil
}

func scanEntries(rows pgx.Rows, err error) ([]Entry, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.VoucherID, &e.AccountID, &e.Debit, &e.Credit, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
