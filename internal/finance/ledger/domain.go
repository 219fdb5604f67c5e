package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// VoucherStatus enumerates journal voucher lifecycle values. Vouchers are
// posted on creation; a cancellation reverses them.
type VoucherStatus string

const (
	VoucherStatusPosted    VoucherStatus = "posted"
	VoucherStatusCancelled VoucherStatus = "cancelled"
)

// Voucher is a balanced financial transaction composed of two or more entry
// lines. voucher_number is unique within the owning organization.
type Voucher struct {
	ID          int64           `json:"id"`
	OrgID       int64           `json:"organization_id"`
	Number      string          `json:"voucher_number"`
	Date        time.Time       `json:"voucher_date"`
	Description string          `json:"description,omitempty"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Status      VoucherStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Entries     []Entry         `json:"entries,omitempty"`
}

// Entry is a single debit or credit line belonging to exactly one voucher.
// Entries are immutable once posted; corrections are new vouchers.
type Entry struct {
	ID          int64           `json:"id"`
	VoucherID   int64           `json:"journal_voucher_id"`
	AccountID   int64           `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LedgerLine is the per-account posting record carrying the running balance
// after the line was applied. Lines power statements and period reports.
type LedgerLine struct {
	ID        int64           `json:"id"`
	OrgID     int64           `json:"organization_id"`
	AccountID int64           `json:"account_id"`
	EntryDate time.Time       `json:"entry_date"`
	EntryID   int64           `json:"journal_entry_id"`
	Reference string          `json:"reference"`
	Debit     decimal.Decimal `json:"debit_amount"`
	Credit    decimal.Decimal `json:"credit_amount"`
	Balance   decimal.Decimal `json:"balance"`
	Narration string          `json:"narration,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// LineFilter narrows ledger line listings. Zero values mean no filtering.
type LineFilter struct {
	AccountID int64
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}

// EntryInput describes one voucher line in a posting request.
type EntryInput struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// PostingInput groups the fields required to post a voucher.
type PostingInput struct {
	OrgID       int64
	Number      string
	Date        time.Time
	Description string
	Entries     []EntryInput
}

// CancelInput wraps parameters for voucher cancellation.
type CancelInput struct {
	OrgID     int64
	VoucherID int64
	ActorID   int64
	Reason    string
}

// TouchedAccount reports an account balance after a posting committed.
type TouchedAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"account_code"`
	Balance   decimal.Decimal `json:"current_balance"`
}

// PostResult is the full outcome of a successful posting.
type PostResult struct {
	Voucher  Voucher          `json:"voucher"`
	Accounts []TouchedAccount `json:"accounts"`
}

var (
	// ErrTooFewEntries indicates fewer than two lines.
	ErrTooFewEntries = errors.New("ledger: voucher requires at least two entries")
	// ErrAccountNotFound indicates a referenced account missing from the
	// organization. Foreign-tenant accounts surface here, never as forbidden.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrInvalidEntryLine indicates a line that is not purely debit or credit,
	// carries a negative amount, or exceeds currency precision.
	ErrInvalidEntryLine = errors.New("ledger: invalid entry line")
	// ErrUnbalanced indicates total debits != total credits.
	ErrUnbalanced = errors.New("ledger: debit and credit totals must be equal")
	// ErrDuplicateVoucher indicates the voucher number already exists in the
	// organization.
	ErrDuplicateVoucher = errors.New("ledger: voucher number already exists")
	// ErrVoucherNotFound indicates a missing voucher.
	ErrVoucherNotFound = errors.New("ledger: voucher not found")
	// ErrInvalidStatus indicates the action cannot proceed in the voucher's
	// current status.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrFiscalYearUnavailable indicates no open fiscal year accepts the date.
	ErrFiscalYearUnavailable = errors.New("ledger: fiscal year closed or missing for date")
)

// Validate checks the request shape before any data access. Account
// existence, line purity, balance, and duplicate checks follow inside the
// posting transaction in that order.
func (in PostingInput) Validate() error {
	if in.OrgID == 0 {
		return errors.New("ledger: organization required")
	}
	if strings.TrimSpace(in.Number) == "" {
		return errors.New("ledger: voucher number required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: voucher date required")
	}
	if len(in.Entries) < 2 {
		return ErrTooFewEntries
	}
	return nil
}

// validateLine enforces the debit-xor-credit rule at currency precision.
func validateLine(idx int, line EntryInput) error {
	if line.Debit.IsNegative() || line.Credit.IsNegative() {
		return fmt.Errorf("%w: line %d has a negative amount", ErrInvalidEntryLine, idx)
	}
	if line.Debit.Exponent() < -2 || line.Credit.Exponent() < -2 {
		return fmt.Errorf("%w: line %d exceeds currency precision", ErrInvalidEntryLine, idx)
	}
	debitSet := line.Debit.IsPositive()
	creditSet := line.Credit.IsPositive()
	if debitSet == creditSet {
		return fmt.Errorf("%w: line %d must be exactly one of debit or credit", ErrInvalidEntryLine, idx)
	}
	return nil
}

// Totals sums the debit and credit columns.
func (in PostingInput) Totals() (decimal.Decimal, decimal.Decimal) {
	debit := decimal.Zero
	credit := decimal.Zero
	for _, line := range in.Entries {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}
