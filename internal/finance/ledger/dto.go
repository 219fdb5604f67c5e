package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/strata-erp/strata-erp/internal/shared"
)

type entryLineRequest struct {
	AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" validate:"max=500"`
}

type postVoucherRequest struct {
	OrgID         int64              `json:"organization_id" validate:"required,gt=0"`
	VoucherNumber string             `json:"voucher_number" validate:"required,max=100"`
	VoucherDate   string             `json:"voucher_date" validate:"required,datetime=2006-01-02"`
	Description   string             `json:"description" validate:"max=1000"`
	Entries       []entryLineRequest `json:"entries" validate:"required,min=2,dive"`
}

type cancelVoucherRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type voucherResponse struct {
	Voucher Voucher `json:"voucher"`
}

type listVouchersResponse struct {
	Vouchers []Voucher         `json:"vouchers"`
	Page     shared.Pagination `json:"pagination"`
}

type listLinesResponse struct {
	Lines []LedgerLine      `json:"ledgers"`
	Page  shared.Pagination `json:"pagination"`
}
