package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/strata-erp/strata-erp/internal/finance/reports"
	jobmetrics "github.com/strata-erp/strata-erp/internal/jobs"
)

// IntegrityVerifier recomputes an organization's trial balance and reports
// whether posted debits equal posted credits.
type IntegrityVerifier interface {
	VerifyIntegrity(ctx context.Context, orgID int64) error
}

// LedgerIntegrityJob sweeps organizations and recomputes their trial
// balances. A detected imbalance never self-heals, so the job reports it
// loudly and keeps scanning the remaining organizations.
type LedgerIntegrityJob struct {
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Verifier IntegrityVerifier
	clock    func() time.Time
}

// NewLedgerIntegrityJob initialises the integrity scan handler.
func NewLedgerIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics, verifier IntegrityVerifier) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Pool:     pool,
		Logger:   logger,
		Metrics:  metrics,
		Verifier: verifier,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity scan.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Verifier == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskLedgerIntegrityScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	orgIDs := payload.OrgIDs
	if len(orgIDs) == 0 {
		var err error
		orgIDs, err = j.organizationIDs(ctx)
		if err != nil {
			resultErr = err
			return resultErr
		}
	}

	start := j.clock()
	var unbalanced []int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	results := make(chan int64, len(orgIDs))
	for _, orgID := range orgIDs {
		orgID := orgID
		g.Go(func() error {
			err := j.Verifier.VerifyIntegrity(gctx, orgID)
			if errors.Is(err, reports.ErrInternalConsistency) {
				j.Metrics.AddImbalance(orgID)
				results <- orgID
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		return resultErr
	}
	close(results)
	for orgID := range results {
		unbalanced = append(unbalanced, orgID)
	}

	if j.Logger != nil {
		j.Logger.Info("ledger integrity scan finished",
			slog.Int("organizations", len(orgIDs)),
			slog.Int("unbalanced", len(unbalanced)),
			slog.Duration("elapsed", j.clock().Sub(start)))
	}
	if len(unbalanced) > 0 {
		resultErr = fmt.Errorf("integrity scan: %d organizations out of balance: %v", len(unbalanced), unbalanced)
		return resultErr
	}
	return nil
}

func (j *LedgerIntegrityJob) organizationIDs(ctx context.Context) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("integrity scan: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT organization_id FROM chart_of_accounts ORDER BY organization_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
