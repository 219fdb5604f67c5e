package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-erp/strata-erp/internal/finance/accounts"
	"github.com/strata-erp/strata-erp/internal/finance/fiscalyears"
	"github.com/strata-erp/strata-erp/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockState struct {
	accounts map[int64]accounts.Account
	vouchers map[int64]Voucher
	entries  map[int64][]Entry
	lines    []LedgerLine

	nextVoucherID int64
	nextEntryID   int64
	nextLineID    int64
}

func (s *mockState) clone() *mockState {
	cp := &mockState{
		accounts:      make(map[int64]accounts.Account, len(s.accounts)),
		vouchers:      make(map[int64]Voucher, len(s.vouchers)),
		entries:       make(map[int64][]Entry, len(s.entries)),
		lines:         append([]LedgerLine(nil), s.lines...),
		nextVoucherID: s.nextVoucherID,
		nextEntryID:   s.nextEntryID,
		nextLineID:    s.nextLineID,
	}
	for k, v := range s.accounts {
		cp.accounts[k] = v
	}
	for k, v := range s.vouchers {
		cp.vouchers[k] = v
	}
	for k, v := range s.entries {
		cp.entries[k] = append([]Entry(nil), v...)
	}
	return cp
}

type mockRepository struct {
	state *mockState

	// Error injection
	lockError          error
	insertLineError    error
	updateBalanceError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{state: &mockState{
		accounts:      make(map[int64]accounts.Account),
		vouchers:      make(map[int64]Voucher),
		entries:       make(map[int64][]Entry),
		nextVoucherID: 1,
		nextEntryID:   1,
		nextLineID:    1,
	}}
}

func (m *mockRepository) addAccount(id, orgID int64, code string, accountType accounts.AccountType, balance string) {
	m.state.accounts[id] = accounts.Account{
		ID:             id,
		OrgID:          orgID,
		Code:           code,
		Name:           code,
		Type:           accountType,
		OpeningBalance: d(balance),
		CurrentBalance: d(balance),
		Status:         accounts.AccountStatusActive,
	}
}

// WithTx snapshots state up front and restores it when fn fails, mirroring a
// database rollback.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := m.state.clone()
	if err := fn(ctx, &mockTxRepo{mock: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *mockRepository) ListVouchers(ctx context.Context, orgID int64, status VoucherStatus, page, perPage int) ([]Voucher, int, error) {
	out := make([]Voucher, 0)
	for _, v := range m.state.vouchers {
		if v.OrgID != orgID {
			continue
		}
		if status != "" && v.Status != status {
			continue
		}
		out = append(out, v)
	}
	return out, len(out), nil
}

func (m *mockRepository) GetVoucher(ctx context.Context, orgID, voucherID int64) (Voucher, error) {
	v, ok := m.state.vouchers[voucherID]
	if !ok || v.OrgID != orgID {
		return Voucher{}, ErrVoucherNotFound
	}
	v.Entries = append([]Entry(nil), m.state.entries[voucherID]...)
	return v, nil
}

func (m *mockRepository) LedgerLines(ctx context.Context, orgID, accountID int64, from, to *time.Time) ([]LedgerLine, error) {
	out := make([]LedgerLine, 0)
	for _, line := range m.state.lines {
		if line.OrgID != orgID || line.AccountID != accountID {
			continue
		}
		if from != nil && line.EntryDate.Before(*from) {
			continue
		}
		if to != nil && line.EntryDate.After(*to) {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func (m *mockRepository) ListLines(ctx context.Context, orgID int64, filter LineFilter) ([]LedgerLine, int, error) {
	out := make([]LedgerLine, 0)
	for _, line := range m.state.lines {
		if line.OrgID != orgID {
			continue
		}
		if filter.AccountID != 0 && line.AccountID != filter.AccountID {
			continue
		}
		if filter.From != nil && line.EntryDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && line.EntryDate.After(*filter.To) {
			continue
		}
		out = append(out, line)
	}
	return out, len(out), nil
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) LockAccounts(ctx context.Context, orgID int64, ids []int64) ([]accounts.Account, error) {
	if t.mock.lockError != nil {
		return nil, t.mock.lockError
	}
	out := make([]accounts.Account, 0, len(ids))
	for _, id := range ids {
		acc, ok := t.mock.state.accounts[id]
		if !ok || acc.OrgID != orgID {
			continue
		}
		out = append(out, acc)
	}
	return out, nil
}

func (t *mockTxRepo) VoucherNumberExists(ctx context.Context, orgID int64, number string) (bool, error) {
	for _, v := range t.mock.state.vouchers {
		if v.OrgID == orgID && v.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (t *mockTxRepo) InsertVoucher(ctx context.Context, in PostingInput, totalDebit, totalCredit decimal.Decimal) (Voucher, error) {
	v := Voucher{
		ID:          t.mock.state.nextVoucherID,
		OrgID:       in.OrgID,
		Number:      in.Number,
		Date:        in.Date,
		Description: in.Description,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Status:      VoucherStatusPosted,
	}
	t.mock.state.nextVoucherID++
	t.mock.state.vouchers[v.ID] = v
	return v, nil
}

func (t *mockTxRepo) InsertEntries(ctx context.Context, voucherID int64, inputs []EntryInput) ([]Entry, error) {
	out := make([]Entry, 0, len(inputs))
	for _, in := range inputs {
		e := Entry{
			ID:          t.mock.state.nextEntryID,
			VoucherID:   voucherID,
			AccountID:   in.AccountID,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: in.Description,
		}
		t.mock.state.nextEntryID++
		out = append(out, e)
	}
	t.mock.state.entries[voucherID] = out
	return out, nil
}

func (t *mockTxRepo) InsertLedgerLine(ctx context.Context, line LedgerLine) error {
	if t.mock.insertLineError != nil {
		return t.mock.insertLineError
	}
	line.ID = t.mock.state.nextLineID
	t.mock.state.nextLineID++
	t.mock.state.lines = append(t.mock.state.lines, line)
	return nil
}

func (t *mockTxRepo) DeleteLedgerLines(ctx context.Context, orgID int64, entryIDs []int64) error {
	keep := make([]LedgerLine, 0, len(t.mock.state.lines))
	drop := make(map[int64]struct{}, len(entryIDs))
	for _, id := range entryIDs {
		drop[id] = struct{}{}
	}
	for _, line := range t.mock.state.lines {
		if _, gone := drop[line.EntryID]; gone && line.OrgID == orgID {
			continue
		}
		keep = append(keep, line)
	}
	t.mock.state.lines = keep
	return nil
}

func (t *mockTxRepo) UpdateAccountBalance(ctx context.Context, orgID, accountID int64, balance decimal.Decimal) error {
	if t.mock.updateBalanceError != nil {
		return t.mock.updateBalanceError
	}
	acc, ok := t.mock.state.accounts[accountID]
	if !ok || acc.OrgID != orgID {
		return ErrAccountNotFound
	}
	acc.CurrentBalance = balance
	t.mock.state.accounts[accountID] = acc
	return nil
}

func (t *mockTxRepo) GetVoucherWithEntries(ctx context.Context, orgID, voucherID int64) (Voucher, []Entry, error) {
	v, ok := t.mock.state.vouchers[voucherID]
	if !ok || v.OrgID != orgID {
		return Voucher{}, nil, ErrVoucherNotFound
	}
	return v, append([]Entry(nil), t.mock.state.entries[voucherID]...), nil
}

func (t *mockTxRepo) UpdateVoucherStatus(ctx context.Context, voucherID int64, status VoucherStatus) error {
	v, ok := t.mock.state.vouchers[voucherID]
	if !ok {
		return ErrVoucherNotFound
	}
	v.Status = status
	t.mock.state.vouchers[voucherID] = v
	return nil
}

// ============================================================================
// MOCK PORTS
// ============================================================================

type mockAccountsPort struct {
	repo *mockRepository
}

func (m *mockAccountsPort) Get(ctx context.Context, orgID, id int64) (accounts.Account, error) {
	acc, ok := m.repo.state.accounts[id]
	if !ok || acc.OrgID != orgID {
		return accounts.Account{}, accounts.ErrNotFound
	}
	return acc, nil
}

type mockGuard struct {
	err error
}

func (m *mockGuard) EnsureOpenForPosting(ctx context.Context, orgID int64, date time.Time) error {
	return m.err
}

type mockAudit struct {
	logs []shared.AuditLog
}

func (m *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type mockMetrics struct {
	outcomes map[string]int
}

func (m *mockMetrics) VoucherPosted(outcome string) {
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

type mockCache struct {
	bumps int
}

func (m *mockCache) Bump(ctx context.Context) error {
	m.bumps++
	return nil
}

func newTestService(repo *mockRepository) (*Service, *mockAudit, *mockMetrics, *mockCache) {
	audit := &mockAudit{}
	metrics := &mockMetrics{}
	cache := &mockCache{}
	svc := NewService(repo, &mockAccountsPort{repo: repo}, &mockGuard{}, audit, metrics, cache)
	return svc, audit, metrics, cache
}

func seedCashAndRevenue(repo *mockRepository) {
	repo.addAccount(1, 1, "1000", accounts.AccountTypeAsset, "1000.00")
	repo.addAccount(2, 1, "4000", accounts.AccountTypeRevenue, "0.00")
}

func postingFixture() PostingInput {
	return PostingInput{
		OrgID:       1,
		Number:      "JV-2026-001",
		Date:        time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "cash sale",
		Entries: []EntryInput{
			{AccountID: 1, Debit: d("500.00")},
			{AccountID: 2, Credit: d("500.00")},
		},
	}
}

// ============================================================================
// POSTING
// ============================================================================

func TestPostVoucherHappyPath(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, audit, metrics, cache := newTestService(repo)

	result, err := svc.PostVoucher(context.Background(), postingFixture())
	require.NoError(t, err)

	assert.Equal(t, VoucherStatusPosted, result.Voucher.Status)
	assert.Len(t, result.Voucher.Entries, 2)
	assert.True(t, result.Voucher.TotalDebit.Equal(d("500.00")))
	assert.True(t, result.Voucher.TotalCredit.Equal(d("500.00")))

	// Debit grows the asset, credit grows the revenue account.
	assert.True(t, repo.state.accounts[1].CurrentBalance.Equal(d("1500.00")))
	assert.True(t, repo.state.accounts[2].CurrentBalance.Equal(d("500.00")))

	require.Len(t, result.Accounts, 2)
	assert.True(t, result.Accounts[0].Balance.Equal(d("1500.00")))
	assert.True(t, result.Accounts[1].Balance.Equal(d("500.00")))

	require.Len(t, repo.state.lines, 2)
	assert.True(t, repo.state.lines[0].Balance.Equal(d("1500.00")))
	assert.Equal(t, "JV-2026-001", repo.state.lines[0].Reference)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "voucher.post", audit.logs[0].Action)
	assert.Equal(t, 1, metrics.outcomes["posted"])
	assert.Equal(t, 1, cache.bumps)
}

func TestPostVoucherRunningBalanceSameAccount(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)

	input := postingFixture()
	input.Entries = []EntryInput{
		{AccountID: 1, Debit: d("100.00")},
		{AccountID: 1, Debit: d("50.00")},
		{AccountID: 2, Credit: d("150.00")},
	}
	_, err := svc.PostVoucher(context.Background(), input)
	require.NoError(t, err)

	// Two lines on the cash account carry intermediate running balances.
	assert.True(t, repo.state.lines[0].Balance.Equal(d("1100.00")))
	assert.True(t, repo.state.lines[1].Balance.Equal(d("1150.00")))
	assert.True(t, repo.state.accounts[1].CurrentBalance.Equal(d("1150.00")))
}

func TestPostVoucherUnbalanced(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, audit, metrics, cache := newTestService(repo)

	input := postingFixture()
	input.Entries[1].Credit = d("400.00")
	_, err := svc.PostVoucher(context.Background(), input)
	assert.ErrorIs(t, err, ErrUnbalanced)

	assert.True(t, repo.state.accounts[1].CurrentBalance.Equal(d("1000.00")))
	assert.Empty(t, repo.state.vouchers)
	assert.Empty(t, repo.state.lines)
	assert.Empty(t, audit.logs)
	assert.Equal(t, 1, metrics.outcomes["rejected"])
	assert.Equal(t, 0, cache.bumps)
}

func TestPostVoucherUnknownAccount(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)

	input := postingFixture()
	input.Entries[1].AccountID = 99
	_, err := svc.PostVoucher(context.Background(), input)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Empty(t, repo.state.vouchers)
}

func TestPostVoucherCrossTenantAccount(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	repo.addAccount(3, 2, "1000", accounts.AccountTypeAsset, "0.00")
	svc, _, _, _ := newTestService(repo)

	// Account 3 exists but belongs to another organization; posting must
	// treat it as missing rather than leak its existence.
	input := postingFixture()
	input.Entries[1].AccountID = 3
	_, err := svc.PostVoucher(context.Background(), input)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPostVoucherMixedLine(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)

	input := postingFixture()
	input.Entries[0] = EntryInput{AccountID: 1, Debit: d("500.00"), Credit: d("500.00")}
	_, err := svc.PostVoucher(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidEntryLine)
}

func TestPostVoucherDuplicateNumber(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)

	_, err := svc.PostVoucher(context.Background(), postingFixture())
	require.NoError(t, err)

	_, err = svc.PostVoucher(context.Background(), postingFixture())
	assert.ErrorIs(t, err, ErrDuplicateVoucher)
	assert.Len(t, repo.state.vouchers, 1)
	assert.True(t, repo.state.accounts[1].CurrentBalance.Equal(d("1500.00")))
}

func TestPostVoucherValidationOrder(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)

	_, err := svc.PostVoucher(context.Background(), postingFixture())
	require.NoError(t, err)

	// A reused number combined with an imbalance reports the imbalance:
	// balance equality is checked before the duplicate number.
	input := postingFixture()
	input.Entries[1].Credit = d("400.00")
	_, err = svc.PostVoucher(context.Background(), input)
	assert.ErrorIs(t, err, ErrUnbalanced)
}

func TestPostVoucherAtomicRollback(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	repo.insertLineError = errors.New("disk full")
	svc, audit, _, cache := newTestService(repo)

	_, err := svc.PostVoucher(context.Background(), postingFixture())
	require.Error(t, err)

	// The failure happened after the voucher insert; rollback must leave no
	// trace of the attempt.
	assert.Empty(t, repo.state.vouchers)
	assert.Empty(t, repo.state.entries)
	assert.Empty(t, repo.state.lines)
	assert.True(t, repo.state.accounts[1].CurrentBalance.Equal(d("1000.00")))
	assert.True(t, repo.state.accounts[2].CurrentBalance.Equal(d("0.00")))
	assert.Empty(t, audit.logs)
	assert.Equal(t, 0, cache.bumps)
}

func TestPostVoucherFiscalYearClosed(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	audit := &mockAudit{}
	svc := NewService(repo, &mockAccountsPort{repo: repo}, &mockGuard{err: fiscalyears.ErrLocked}, audit, nil, nil)

	_, err := svc.PostVoucher(context.Background(), postingFixture())
	assert.ErrorIs(t, err, ErrFiscalYearUnavailable)
	assert.Empty(t, repo.state.vouchers)
}

// ============================================================================
// CANCELLATION
// ============================================================================

func TestCancelVoucherReversesBalances(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, audit, _, cache := newTestService(repo)

	result, err := svc.PostVoucher(context.Background(), postingFixture())
	require.NoError(t, err)

	cancelled, err := svc.CancelVoucher(context.Background(), CancelInput{
		OrgID:     1,
		VoucherID: result.Voucher.ID,
		Reason:    "entered twice",
	})
	require.NoError(t, err)

	assert.Equal(t, VoucherStatusCancelled, cancelled.Status)
	assert.True(t, repo.state.accounts[1].CurrentBalance.Equal(d("1000.00")))
	assert.True(t, repo.state.accounts[2].CurrentBalance.Equal(d("0.00")))
	assert.Empty(t, repo.state.lines)

	require.Len(t, audit.logs, 2)
	assert.Equal(t, "voucher.cancel", audit.logs[1].Action)
	assert.Equal(t, 2, cache.bumps)
}

func TestCancelVoucherTwice(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)

	result, err := svc.PostVoucher(context.Background(), postingFixture())
	require.NoError(t, err)

	in := CancelInput{OrgID: 1, VoucherID: result.Voucher.ID}
	_, err = svc.CancelVoucher(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.CancelVoucher(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancelVoucherWrongTenant(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)

	result, err := svc.PostVoucher(context.Background(), postingFixture())
	require.NoError(t, err)

	_, err = svc.CancelVoucher(context.Background(), CancelInput{OrgID: 2, VoucherID: result.Voucher.ID})
	assert.ErrorIs(t, err, ErrVoucherNotFound)
	assert.Equal(t, VoucherStatusPosted, repo.state.vouchers[result.Voucher.ID].Status)
}

// ============================================================================
// STATEMENTS
// ============================================================================

func TestAccountStatement(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)

	_, err := svc.PostVoucher(context.Background(), postingFixture())
	require.NoError(t, err)

	statement, err := svc.AccountStatement(context.Background(), 1, 1, nil, nil)
	require.NoError(t, err)

	assert.True(t, statement.OpeningBalance.Equal(d("1000.00")))
	assert.True(t, statement.ClosingBalance.Equal(d("1500.00")))
	require.Len(t, statement.Lines, 1)
	assert.True(t, statement.Lines[0].Debit.Equal(d("500.00")))
}

func TestAccountStatementUnknownAccount(t *testing.T) {
	repo := newMockRepository()
	svc, _, _, _ := newTestService(repo)

	_, err := svc.AccountStatement(context.Background(), 1, 42, nil, nil)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestListLines(t *testing.T) {
	repo := newMockRepository()
	seedCashAndRevenue(repo)
	svc, _, _, _ := newTestService(repo)

	_, err := svc.PostVoucher(context.Background(), postingFixture())
	require.NoError(t, err)

	// All lines across accounts.
	lines, page, err := svc.ListLines(context.Background(), 1, LineFilter{})
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, 2, page.Total)

	// Narrowed to the revenue account.
	lines, _, err = svc.ListLines(context.Background(), 1, LineFilter{AccountID: 2})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Credit.Equal(d("500.00")))

	// Another organization sees nothing.
	lines, _, err = svc.ListLines(context.Background(), 2, LineFilter{})
	require.NoError(t, err)
	assert.Empty(t, lines)
}
