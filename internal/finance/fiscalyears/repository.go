package fiscalyears

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const yearColumns = `id, organization_id, name, start_date, end_date, status, is_locked, created_at, updated_at`

// Repository persists fiscal years in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new fiscal year.
func (r *Repository) Insert(ctx context.Context, in CreateInput) (FiscalYear, error) {
	status := in.Status
	if status == "" {
		status = StatusUpcoming
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO fiscal_years (organization_id, name, start_date, end_date, status, is_locked)
VALUES ($1,$2,$3,$4,$5,FALSE) RETURNING `+yearColumns, in.OrgID, in.Name, in.StartDate, in.EndDate, status)
	return scanYear(row)
}

// List returns fiscal years for the organization, newest first.
func (r *Repository) List(ctx context.Context, orgID int64) ([]FiscalYear, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+yearColumns+` FROM fiscal_years WHERE organization_id=$1 ORDER BY start_date DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []FiscalYear
	for rows.Next() {
		year, err := scanYear(rows)
		if err != nil {
			return nil, err
		}
		years = append(years, year)
	}
	return years, rows.Err()
}

// FindByDate returns the fiscal year covering the date for the organization.
func (r *Repository) FindByDate(ctx context.Context, orgID int64, date time.Time) (FiscalYear, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+yearColumns+` FROM fiscal_years
WHERE organization_id=$1 AND $2 BETWEEN start_date AND end_date
ORDER BY start_date LIMIT 1`, orgID, date)
	year, err := scanYear(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, ErrNotFound
		}
		return FiscalYear{}, err
	}
	return year, nil
}

// SetLocked toggles the posting lock on a fiscal year.
func (r *Repository) SetLocked(ctx context.Context, orgID, id int64, locked bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE fiscal_years SET is_locked=$3, updated_at=NOW() WHERE organization_id=$1 AND id=$2`, orgID, id, locked)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RollStatuses transitions year statuses relative to the reference date:
// upcoming years whose window has started become current, current years whose
// window has ended become closed. Used by the nightly worker.
func (r *Repository) RollStatuses(ctx context.Context, now time.Time) (int64, error) {
	var updated int64
	cmd, err := r.pool.Exec(ctx, `UPDATE fiscal_years SET status='current', updated_at=NOW()
WHERE status='upcoming' AND start_date <= $1 AND end_date >= $1`, now)
	if err != nil {
		return 0, err
	}
	updated += cmd.RowsAffected()
	cmd, err = r.pool.Exec(ctx, `UPDATE fiscal_years SET status='closed', updated_at=NOW()
WHERE status='current' AND end_date < $1`, now)
	if err != nil {
		return updated, err
	}
	updated += cmd.RowsAffected()
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanYear(row rowScanner) (FiscalYear, error) {
	var fy FiscalYear
	err := row.Scan(&fy.ID, &fy.OrgID, &fy.Name, &fy.StartDate, &fy.EndDate, &fy.Status, &fy.IsLocked, &fy.CreatedAt, &fy.UpdatedAt)
	return fy, err
}
