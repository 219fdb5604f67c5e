package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/strata-erp/strata-erp/internal/jobs"
)

// StatusRoller advances fiscal year statuses based on the current date.
type StatusRoller interface {
	RollStatuses(ctx context.Context, now time.Time) (int64, error)
}

// FiscalYearRollJob moves fiscal years from upcoming to current and from
// current to closed once their date windows pass.
type FiscalYearRollJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Roller  StatusRoller
	clock   func() time.Time
}

// NewFiscalYearRollJob initialises the roll handler.
func NewFiscalYearRollJob(logger *slog.Logger, metrics *jobmetrics.Metrics, roller StatusRoller) *FiscalYearRollJob {
	return &FiscalYearRollJob{
		Logger:  logger,
		Metrics: metrics,
		Roller:  roller,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the fiscal year roll.
func (j *FiscalYearRollJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Roller == nil {
		return errors.New("fiscal year roll: handler not configured")
	}
	tracker := j.Metrics.Track(TaskFiscalYearRoll)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	updated, err := j.Roller.RollStatuses(ctx, j.clock())
	if err != nil {
		resultErr = err
		return resultErr
	}
	if j.Logger != nil {
		j.Logger.Info("fiscal year statuses rolled", slog.Int64("updated", updated))
	}
	return nil
}
