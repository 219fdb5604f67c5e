package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/strata-erp/strata-erp/internal/finance/accounts"
	"github.com/strata-erp/strata-erp/internal/finance/fiscalyears"
	"github.com/strata-erp/strata-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListVouchers(ctx context.Context, orgID int64, status VoucherStatus, page, perPage int) ([]Voucher, int, error)
	GetVoucher(ctx context.Context, orgID, voucherID int64) (Voucher, error)
	LedgerLines(ctx context.Context, orgID, accountID int64, from, to *time.Time) ([]LedgerLine, error)
	ListLines(ctx context.Context, orgID int64, filter LineFilter) ([]LedgerLine, int, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// FiscalYearGuard blocks postings outside an open fiscal year.
type FiscalYearGuard interface {
	EnsureOpenForPosting(ctx context.Context, orgID int64, date time.Time) error
}

// AccountsPort resolves accounts for statement rendering.
type AccountsPort interface {
	Get(ctx context.Context, orgID, id int64) (accounts.Account, error)
}

// MetricsPort counts posting outcomes.
type MetricsPort interface {
	VoucherPosted(outcome string)
}

// CachePort invalidates derived report caches after a ledger mutation.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service is the posting engine: the sole writer of vouchers, entries,
// ledger lines, and account running balances.
type Service struct {
	repo     RepositoryPort
	accounts AccountsPort
	guard    FiscalYearGuard
	audit    AuditPort
	metrics  MetricsPort
	cache    CachePort
	now      func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo RepositoryPort, accountsPort AccountsPort, guard FiscalYearGuard, audit AuditPort, metrics MetricsPort, cache CachePort) *Service {
	return &Service{
		repo:     repo,
		accounts: accountsPort,
		guard:    guard,
		audit:    audit,
		metrics:  metrics,
		cache:    cache,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostVoucher validates and persists a balanced voucher as one atomic
// transaction. Validation order is fixed so callers get deterministic
// errors: entry count, account existence, line shape, balance, duplicate
// number. Nothing is written unless every check passes, and a failure in
// any balance update rolls the whole posting back.
func (s *Service) PostVoucher(ctx context.Context, input PostingInput) (PostResult, error) {
	if err := input.Validate(); err != nil {
		s.countOutcome("rejected")
		return PostResult{}, err
	}
	if s.guard != nil {
		if err := s.guard.EnsureOpenForPosting(ctx, input.OrgID, input.Date); err != nil {
			s.countOutcome("rejected")
			if errors.Is(err, fiscalyears.ErrLocked) || errors.Is(err, fiscalyears.ErrNoOpenYear) {
				return PostResult{}, ErrFiscalYearUnavailable
			}
			return PostResult{}, err
		}
	}

	var result PostResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Locks are acquired in ascending account id order so two vouchers
		// sharing accounts cannot deadlock each other.
		ids := uniqueAccountIDs(input.Entries)
		locked, err := tx.LockAccounts(ctx, input.OrgID, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]accounts.Account, len(locked))
		for _, account := range locked {
			byID[account.ID] = account
		}
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				return fmt.Errorf("%w: account %d", ErrAccountNotFound, id)
			}
		}

		for idx, line := range input.Entries {
			if err := validateLine(idx, line); err != nil {
				return err
			}
		}

		totalDebit, totalCredit := input.Totals()
		if !totalDebit.Equal(totalCredit) {
			return fmt.Errorf("%w: debit %s credit %s", ErrUnbalanced, totalDebit.StringFixed(2), totalCredit.StringFixed(2))
		}

		exists, err := tx.VoucherNumberExists(ctx, input.OrgID, input.Number)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicateVoucher, input.Number)
		}

		voucher, err := tx.InsertVoucher(ctx, input, totalDebit, totalCredit)
		if err != nil {
			return err
		}
		entries, err := tx.InsertEntries(ctx, voucher.ID, input.Entries)
		if err != nil {
			return err
		}

		balances := make(map[int64]decimal.Decimal, len(locked))
		for id, account := range byID {
			balances[id] = account.CurrentBalance
		}
		for _, entry := range entries {
			account := byID[entry.AccountID]
			balances[entry.AccountID] = applyPosting(account, balances[entry.AccountID], entry.Debit, entry.Credit)
			if err := tx.InsertLedgerLine(ctx, LedgerLine{
				OrgID:     input.OrgID,
				AccountID: entry.AccountID,
				EntryDate: input.Date,
				EntryID:   entry.ID,
				Reference: input.Number,
				Debit:     entry.Debit,
				Credit:    entry.Credit,
				Balance:   balances[entry.AccountID],
				Narration: input.Description,
			}); err != nil {
				return err
			}
		}
		for _, id := range ids {
			if err := tx.UpdateAccountBalance(ctx, input.OrgID, id, balances[id]); err != nil {
				return err
			}
		}

		voucher.Entries = entries
		result.Voucher = voucher
		result.Accounts = touchedAccounts(ids, byID, balances)
		return nil
	})
	if err != nil {
		s.countOutcome("rejected")
		return PostResult{}, err
	}

	s.countOutcome("posted")
	s.bumpCache(ctx)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    input.OrgID,
			Action:   "voucher.post",
			Entity:   "journal_voucher",
			EntityID: fmt.Sprintf("%d", result.Voucher.ID),
			Meta: map[string]any{
				"voucher_number": input.Number,
				"total_debit":    result.Voucher.TotalDebit.StringFixed(2),
				"entries":        len(result.Voucher.Entries),
			},
			At: s.now(),
		})
	}
	return result, nil
}

// CancelVoucher reverses a posted voucher: every balance delta is undone and
// the voucher's ledger lines are removed, atomically. Only posted vouchers
// can be cancelled.
func (s *Service) CancelVoucher(ctx context.Context, input CancelInput) (Voucher, error) {
	if input.OrgID == 0 || input.VoucherID == 0 {
		return Voucher{}, errors.New("ledger: organization and voucher id required")
	}
	var cancelled Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		voucher, entries, err := tx.GetVoucherWithEntries(ctx, input.OrgID, input.VoucherID)
		if err != nil {
			return err
		}
		if voucher.Status != VoucherStatusPosted {
			return ErrInvalidStatus
		}

		ids := uniqueEntryAccountIDs(entries)
		locked, err := tx.LockAccounts(ctx, input.OrgID, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]accounts.Account, len(locked))
		balances := make(map[int64]decimal.Decimal, len(locked))
		for _, account := range locked {
			byID[account.ID] = account
			balances[account.ID] = account.CurrentBalance
		}

		entryIDs := make([]int64, 0, len(entries))
		for _, entry := range entries {
			account, ok := byID[entry.AccountID]
			if !ok {
				return fmt.Errorf("%w: account %d", ErrAccountNotFound, entry.AccountID)
			}
			// Reversal swaps the debit and credit application.
			balances[entry.AccountID] = applyPosting(account, balances[entry.AccountID], entry.Credit, entry.Debit)
			entryIDs = append(entryIDs, entry.ID)
		}
		for _, id := range ids {
			if err := tx.UpdateAccountBalance(ctx, input.OrgID, id, balances[id]); err != nil {
				return err
			}
		}
		if err := tx.DeleteLedgerLines(ctx, input.OrgID, entryIDs); err != nil {
			return err
		}
		if err := tx.UpdateVoucherStatus(ctx, voucher.ID, VoucherStatusCancelled); err != nil {
			return err
		}
		voucher.Status = VoucherStatusCancelled
		voucher.Entries = entries
		cancelled = voucher
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}

	s.bumpCache(ctx)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    input.OrgID,
			ActorID:  input.ActorID,
			Action:   "voucher.cancel",
			Entity:   "journal_voucher",
			EntityID: fmt.Sprintf("%d", cancelled.ID),
			Meta: map[string]any{
				"voucher_number": cancelled.Number,
				"reason":         input.Reason,
			},
			At: s.now(),
		})
	}
	return cancelled, nil
}

// ListVouchers returns vouchers for the organization with pagination.
func (s *Service) ListVouchers(ctx context.Context, orgID int64, status VoucherStatus, page, perPage int) ([]Voucher, shared.Pagination, error) {
	vouchers, total, err := s.repo.ListVouchers(ctx, orgID, status, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if perPage <= 0 {
		perPage = 20
	}
	return vouchers, shared.NewPagination(page, perPage, total), nil
}

// GetVoucher loads a voucher with entries.
func (s *Service) GetVoucher(ctx context.Context, orgID, voucherID int64) (Voucher, error) {
	return s.repo.GetVoucher(ctx, orgID, voucherID)
}

// ListLines returns ledger lines across all accounts of the organization,
// optionally narrowed to one account or a date range.
func (s *Service) ListLines(ctx context.Context, orgID int64, filter LineFilter) ([]LedgerLine, shared.Pagination, error) {
	lines, total, err := s.repo.ListLines(ctx, orgID, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	return lines, shared.NewPagination(filter.Page, perPage, total), nil
}

// Statement is an account's opening balance plus its date-ordered ledger
// lines with running balances.
type Statement struct {
	Account        accounts.Account `json:"account"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	ClosingBalance decimal.Decimal  `json:"closing_balance"`
	Lines          []LedgerLine     `json:"transactions"`
}

// AccountStatement renders the running-balance statement for one account.
func (s *Service) AccountStatement(ctx context.Context, orgID, accountID int64, from, to *time.Time) (Statement, error) {
	account, err := s.accounts.Get(ctx, orgID, accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return Statement{}, ErrAccountNotFound
		}
		return Statement{}, err
	}
	lines, err := s.repo.LedgerLines(ctx, orgID, accountID, from, to)
	if err != nil {
		return Statement{}, err
	}
	closing := account.OpeningBalance
	if len(lines) > 0 {
		closing = lines[len(lines)-1].Balance
	}
	if lines == nil {
		lines = []LedgerLine{}
	}
	return Statement{
		Account:        account,
		OpeningBalance: account.OpeningBalance,
		ClosingBalance: closing,
		Lines:          lines,
	}, nil
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.VoucherPosted(outcome)
	}
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}

// applyPosting moves a balance by one debit/credit pair honouring the
// account's normal-balance side.
func applyPosting(account accounts.Account, balance, debit, credit decimal.Decimal) decimal.Decimal {
	if account.NormalDebit() {
		return balance.Add(debit).Sub(credit)
	}
	return balance.Add(credit).Sub(debit)
}

func uniqueAccountIDs(entries []EntryInput) []int64 {
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.AccountID]; ok {
			continue
		}
		seen[entry.AccountID] = struct{}{}
		ids = append(ids, entry.AccountID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func uniqueEntryAccountIDs(entries []Entry) []int64 {
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.AccountID]; ok {
			continue
		}
		seen[entry.AccountID] = struct{}{}
		ids = append(ids, entry.AccountID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func touchedAccounts(ids []int64, byID map[int64]accounts.Account, balances map[int64]decimal.Decimal) []TouchedAccount {
	out := make([]TouchedAccount, 0, len(ids))
	for _, id := range ids {
		out = append(out, TouchedAccount{
			AccountID: id,
			Code:      byID[id].Code,
			Balance:   balances[id],
		})
	}
	return out
}
