package reports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strata-erp/strata-erp/internal/platform/httpx"
)

// Handler wires the financial report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/profit-loss", h.profitLoss)
	r.Get("/balance-summary", h.balanceSummary)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
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
	tb, err := h.service.TrialBalance(r.Context(), orgID, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	asOf, ok := dateFromQuery(w, r, "as_of")
	if !ok {
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), orgID, asOf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) profitLoss(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
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
	pl, err := h.service.ProfitAndLoss(r.Context(), orgID, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) balanceSummary(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromQuery(w, r)
	if !ok {
		return
	}
	summary, err := h.service.BalanceSummary(r.Context(), orgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInternalConsistency) {
		h.logger.Error("report rejected for ledger inconsistency", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Ledger Inconsistency", "posted debit and credit totals diverge; contact support")
		return
	}
	h.logger.Error("report request failed", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
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
