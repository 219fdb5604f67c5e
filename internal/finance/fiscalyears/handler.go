package fiscalyears

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

type createYearRequest struct {
	OrgID     int64  `json:"organization_id" validate:"required,gt=0"`
	Name      string `json:"name" validate:"required,max=255"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=upcoming current closed"`
}

// Handler wires fiscal year endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers fiscal year routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{id}/lock", h.lock)
	r.Post("/{id}/unlock", h.unlock)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createYearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.FieldProblem(w, "invalid fiscal year payload", map[string]string{"payload": err.Error()})
		return
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	year, err := h.service.Create(r.Context(), CreateInput{
		OrgID:     req.OrgID,
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Status:    Status(req.Status),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": year})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.ParseInt(r.URL.Query().Get("organization_id"), 10, 64)
	if err != nil || orgID <= 0 {
		httpx.FieldProblem(w, "organization_id is required", map[string]string{"organization_id": "required"})
		return
	}
	years, err := h.service.List(r.Context(), orgID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if years == nil {
		years = []FiscalYear{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": years})
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, true)
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, false)
}

func (h *Handler) setLock(w http.ResponseWriter, r *http.Request, locked bool) {
	orgID, err := strconv.ParseInt(r.URL.Query().Get("organization_id"), 10, 64)
	if err != nil || orgID <= 0 {
		httpx.FieldProblem(w, "organization_id is required", map[string]string{"organization_id": "required"})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid fiscal year id")
		return
	}
	var opErr error
	if locked {
		opErr = h.service.Lock(r.Context(), orgID, id)
	} else {
		opErr = h.service.Unlock(r.Context(), orgID, id)
	}
	if opErr != nil {
		h.respondError(w, opErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidRange):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("fiscal years request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
