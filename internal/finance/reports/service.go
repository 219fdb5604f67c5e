package reports

import (
	"context"
	"log/slog"
	"time"
)

// DataPort abstracts balance aggregation for testing.
type DataPort interface {
	AccountBalances(ctx context.Context, orgID int64, from, to *time.Time) ([]AccountBalance, error)
	TypeTotals(ctx context.Context, orgID int64) ([]TypeTotal, error)
}

// MetricsPort counts integrity failures surfaced by report generation.
type MetricsPort interface {
	IntegrityFailure()
}

// Service produces financial statements from posted ledger data. Reports are
// read-only projections; the posting engine remains the only writer.
type Service struct {
	logger  *slog.Logger
	data    DataPort
	cache   *Cache
	metrics MetricsPort
}

// NewService builds the reporting service. cache and metrics may be nil.
func NewService(logger *slog.Logger, data DataPort, cache *Cache, metrics MetricsPort) *Service {
	return &Service{logger: logger, data: data, cache: cache, metrics: metrics}
}

// TrialBalance builds the grouped trial balance for the window. A debit and
// credit total mismatch means ledger corruption and is reported as
// ErrInternalConsistency rather than returned as data.
func (s *Service) TrialBalance(ctx context.Context, orgID int64, from, to *time.Time) (TrialBalance, error) {
	var tb TrialBalance
	key, err := s.cache.BuildKey(ctx, keyTrialBalance(orgID, dateToken(from), dateToken(to)))
	if err != nil {
		return TrialBalance{}, err
	}
	err = s.cache.FetchJSON(ctx, key, &tb, func(ctx context.Context) (interface{}, error) {
		balances, err := s.data.AccountBalances(ctx, orgID, from, to)
		if err != nil {
			return nil, err
		}
		built := BuildTrialBalance(balances)
		if !built.Balanced() {
			s.reportImbalance(orgID, built)
			return nil, ErrInternalConsistency
		}
		return built, nil
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return tb, nil
}

// BalanceSheet builds the statement of financial position as of a date.
func (s *Service) BalanceSheet(ctx context.Context, orgID int64, asOf *time.Time) (BalanceSheet, error) {
	var bs BalanceSheet
	key, err := s.cache.BuildKey(ctx, keyBalanceSheet(orgID, dateToken(asOf)))
	if err != nil {
		return BalanceSheet{}, err
	}
	err = s.cache.FetchJSON(ctx, key, &bs, func(ctx context.Context) (interface{}, error) {
		balances, err := s.data.AccountBalances(ctx, orgID, nil, asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(balances), nil
	})
	if err != nil {
		return BalanceSheet{}, err
	}
	return bs, nil
}

// ProfitAndLoss builds the income statement for the period.
func (s *Service) ProfitAndLoss(ctx context.Context, orgID int64, from, to *time.Time) (ProfitAndLoss, error) {
	var pl ProfitAndLoss
	key, err := s.cache.BuildKey(ctx, keyProfitLoss(orgID, dateToken(from), dateToken(to)))
	if err != nil {
		return ProfitAndLoss{}, err
	}
	err = s.cache.FetchJSON(ctx, key, &pl, func(ctx context.Context) (interface{}, error) {
		balances, err := s.data.AccountBalances(ctx, orgID, from, to)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(balances), nil
	})
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return pl, nil
}

// BalanceSummary aggregates current balances per account type.
func (s *Service) BalanceSummary(ctx context.Context, orgID int64) (BalanceSummary, error) {
	var summary BalanceSummary
	key, err := s.cache.BuildKey(ctx, keyBalanceSummary(orgID))
	if err != nil {
		return BalanceSummary{}, err
	}
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		totals, err := s.data.TypeTotals(ctx, orgID)
		if err != nil {
			return nil, err
		}
		return BalanceSummary{Types: totals}, nil
	})
	if err != nil {
		return BalanceSummary{}, err
	}
	return summary, nil
}

// VerifyIntegrity recomputes the lifetime trial balance for the organization
// without the cache and checks that posted debits equal posted credits. The
// nightly scan job drives it.
func (s *Service) VerifyIntegrity(ctx context.Context, orgID int64) error {
	balances, err := s.data.AccountBalances(ctx, orgID, nil, nil)
	if err != nil {
		return err
	}
	tb := BuildTrialBalance(balances)
	if !tb.Balanced() {
		s.reportImbalance(orgID, tb)
		return ErrInternalConsistency
	}
	return nil
}

func (s *Service) reportImbalance(orgID int64, tb TrialBalance) {
	if s.metrics != nil {
		s.metrics.IntegrityFailure()
	}
	if s.logger != nil {
		s.logger.Error("trial balance out of balance",
			slog.Int64("organization_id", orgID),
			slog.String("total_debit", tb.TotalDebit.StringFixed(2)),
			slog.String("total_credit", tb.TotalCredit.StringFixed(2)))
	}
}

func dateToken(t *time.Time) string {
	if t == nil {
		return "all"
	}
	return t.Format("2006-01-02")
}
