package reports

import (
	"context"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockData struct {
	balances []AccountBalance
	totals   []TypeTotal

	balanceCalls int
	totalCalls   int
}

func (m *mockData) AccountBalances(ctx context.Context, orgID int64, from, to *time.Time) ([]AccountBalance, error) {
	m.balanceCalls++
	return m.balances, nil
}

func (m *mockData) TypeTotals(ctx context.Context, orgID int64) ([]TypeTotal, error) {
	m.totalCalls++
	return m.totals, nil
}

type countingMetrics struct {
	failures int
}

func (m *countingMetrics) IntegrityFailure() {
	m.failures++
}

func newCachedService(t *testing.T, data *mockData) (*Service, *Cache, *countingMetrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	metrics := &countingMetrics{}
	return NewService(slog.Default(), data, cache, metrics), cache, metrics
}

func balancedFixture() []AccountBalance {
	return []AccountBalance{
		NewAccountBalance("1000", "Cash", "asset", d("0.00"), d("500.00"), d("0.00")),
		NewAccountBalance("4000", "Sales", "revenue", d("0.00"), d("0.00"), d("500.00")),
	}
}

func TestTrialBalanceCached(t *testing.T) {
	data := &mockData{balances: balancedFixture()}
	svc, _, _ := newCachedService(t, data)

	first, err := svc.TrialBalance(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	second, err := svc.TrialBalance(context.Background(), 1, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, data.balanceCalls, "second call must come from cache")
	assert.True(t, first.TotalDebit.Equal(second.TotalDebit))
}

func TestTrialBalanceCacheInvalidatedByBump(t *testing.T) {
	data := &mockData{balances: balancedFixture()}
	svc, cache, _ := newCachedService(t, data)

	_, err := svc.TrialBalance(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	require.NoError(t, cache.Bump(context.Background()))

	_, err = svc.TrialBalance(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, data.balanceCalls, "bump must force a reload")
}

func TestTrialBalanceIntegrityFailure(t *testing.T) {
	data := &mockData{balances: []AccountBalance{
		NewAccountBalance("1000", "Cash", "asset", d("0.00"), d("500.00"), d("0.00")),
		NewAccountBalance("4000", "Sales", "revenue", d("0.00"), d("0.00"), d("450.00")),
	}}
	svc, _, metrics := newCachedService(t, data)

	_, err := svc.TrialBalance(context.Background(), 1, nil, nil)
	assert.ErrorIs(t, err, ErrInternalConsistency)
	assert.Equal(t, 1, metrics.failures)
}

func TestVerifyIntegrity(t *testing.T) {
	data := &mockData{balances: balancedFixture()}
	svc := NewService(slog.Default(), data, nil, nil)
	require.NoError(t, svc.VerifyIntegrity(context.Background(), 1))

	data.balances[1] = NewAccountBalance("4000", "Sales", "revenue", d("0.00"), d("0.00"), d("499.99"))
	assert.ErrorIs(t, svc.VerifyIntegrity(context.Background(), 1), ErrInternalConsistency)
}

func TestBalanceSummary(t *testing.T) {
	data := &mockData{totals: []TypeTotal{
		{Type: "asset", Accounts: 2, Balance: d("1500.00")},
		{Type: "revenue", Accounts: 1, Balance: d("500.00")},
	}}
	svc := NewService(slog.Default(), data, nil, nil)

	summary, err := svc.BalanceSummary(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, summary.Types, 2)
	assert.True(t, summary.Types[0].Balance.Equal(d("1500.00")))
}

func TestProfitAndLossWithoutCache(t *testing.T) {
	data := &mockData{balances: balancedFixture()}
	svc := NewService(slog.Default(), data, nil, nil)

	pl, err := svc.ProfitAndLoss(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.True(t, pl.NetIncome.Equal(d("500.00")))
}
