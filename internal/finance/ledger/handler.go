package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/strata-erp/strata-erp/internal/platform/httpx"
)

// Handler wires journal voucher endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the journal voucher endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.post)
	r.Get("/{id}", h.show)
	r.Post("/{id}/cancel", h.cancel)
}

// MountStatementRoutes registers the per-account statement endpoint, mounted
// under the chart of accounts path.
func (h *Handler) MountStatementRoutes(r chi.Router) {
	r.Get("/{id}/statement", h.statement)
}

// MountLineRoutes registers the cross-account ledger listing.
func (h *Handler) MountLineRoutes(r chi.Router) {
	r.Get("/", h.lines)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req postVoucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.FieldProblem(w, "invalid voucher payload", fieldErrors(err))
		return
	}
	date, err := time.Parse("2006-01-02", req.VoucherDate)
	if err != nil {
		httpx.FieldProblem(w, "invalid voucher payload", map[string]string{"voucher_date": "datetime"})
		return
	}
	entries := make([]EntryInput, 0, len(req.Entries))
	for _, line := range req.Entries {
		entries = append(entries, EntryInput{
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	result, err := h.service.PostVoucher(r.Context(), PostingInput{
		OrgID:       req.OrgID,
		Number:      req.VoucherNumber,
		Date:        date,
		Description: req.Description,
		Entries:     entries,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	status := VoucherStatus(r.URL.Query().Get("status"))
	vouchers, pagination, err := h.service.ListVouchers(r.Context(), orgID, status, page, perPage)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if vouchers == nil {
		vouchers = []Voucher{}
	}
	httpx.JSON(w, http.StatusOK, listVouchersResponse{Vouchers: vouchers, Page: pagination})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	voucher, err := h.service.GetVoucher(r.Context(), orgID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucherResponse{Voucher: voucher})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	var req cancelVoucherRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	voucher, err := h.service.CancelVoucher(r.Context(), CancelInput{
		OrgID:     orgID,
		VoucherID: id,
		Reason:    req.Reason,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucherResponse{Voucher: voucher})
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	from, ok := dateFromQuery(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateFromQuery(w, r, "to")
	if !ok {
		return
	}
	statement, err := h.service.AccountStatement(r.Context(), orgID, id, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}

func (h *Handler) lines(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	filter := LineFilter{}
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.FieldProblem(w, "account_id must be a positive integer", map[string]string{"account_id": "invalid"})
			return
		}
		filter.AccountID = id
	}
	from, ok := dateFromQuery(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateFromQuery(w, r, "to")
	if !ok {
		return
	}
	filter.From = from
	filter.To = to
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if pp, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && pp > 0 {
		filter.PerPage = pp
	}
	lines, pagination, err := h.service.ListLines(r.Context(), orgID, filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if lines == nil {
		lines = []LedgerLine{}
	}
	httpx.JSON(w, http.StatusOK, listLinesResponse{Lines: lines, Page: pagination})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrVoucherNotFound), errors.Is(err, ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrTooFewEntries),
		errors.Is(err, ErrInvalidEntryLine),
		errors.Is(err, ErrUnbalanced),
		errors.Is(err, ErrDuplicateVoucher),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrFiscalYearUnavailable):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func orgIDFromQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("organization_id")
	if raw == "" {
		httpx.FieldProblem(w, "organization_id is required", map[string]string{"organization_id": "required"})
		return 0, false
	}
	orgID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orgID <= 0 {
		httpx.FieldProblem(w, "organization_id must be a positive integer", map[string]string{"organization_id": "invalid"})
		return 0, false
	}
	return orgID, true
}

func dateFromQuery(w http.ResponseWriter, r *http.Request, key string) (*time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.FieldProblem(w, key+" must be a YYYY-MM-DD date", map[string]string{key: "datetime"})
		return nil, false
	}
	return &t, true
}

func fieldErrors(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}
