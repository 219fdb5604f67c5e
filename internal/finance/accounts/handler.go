package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/strata-erp/strata-erp/internal/platform/httpx"
)

// Handler wires chart of accounts endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HTTP routes for the chart of accounts.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Get("/{id}/balance", h.balance)
	r.Post("/{id}/deactivate", h.deactivate)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.FieldProblem(w, "invalid account payload", fieldErrors(err))
		return
	}
	account, err := h.service.Create(r.Context(), CreateInput{
		OrgID:          req.OrgID,
		Code:           req.Code,
		Name:           req.Name,
		Type:           AccountType(req.Type),
		SubType:        req.SubType,
		OpeningBalance: req.OpeningBalance,
		IsCashAccount:  req.IsCashAccount,
		IsBankAccount:  req.IsBankAccount,
		Description:    req.Description,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, accountResponse{Account: account})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	filter := ListFilter{
		Type:   AccountType(r.URL.Query().Get("account_type")),
		Status: AccountStatus(r.URL.Query().Get("status")),
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if pp, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && pp > 0 {
		filter.PerPage = pp
	}
	accounts, page, err := h.service.List(r.Context(), orgID, filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if accounts == nil {
		accounts = []Account{}
	}
	httpx.JSON(w, http.StatusOK, listAccountsResponse{
		Accounts: accounts,
		Page:     page.Page,
		PerPage:  page.PerPage,
		Total:    page.Total,
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	account, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accountResponse{Account: account})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	account, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{
		AccountID:      account.ID,
		Code:           account.Code,
		Name:           account.Name,
		Type:           account.Type,
		OpeningBalance: account.OpeningBalance,
		CurrentBalance: account.CurrentBalance,
	})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	if err := h.service.Deactivate(r.Context(), orgID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateCode), errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidPrecision):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("accounts request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// orgIDFromQuery extracts the mandatory organization_id parameter. Missing or
// malformed values are rejected before any data access happens.
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
