package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/strata-erp/strata-erp/internal/finance/accounts"
	"github.com/strata-erp/strata-erp/internal/finance/fiscalyears"
	"github.com/strata-erp/strata-erp/internal/finance/ledger"
	"github.com/strata-erp/strata-erp/internal/finance/reports"
	"github.com/strata-erp/strata-erp/internal/observability"
	"github.com/strata-erp/strata-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AccountsHandler    *accounts.Handler
	LedgerHandler      *ledger.Handler
	FiscalYearsHandler *fiscalyears.Handler
	ReportsHandler     *reports.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Strata defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/finance", func(r chi.Router) {
		if params.AccountsHandler != nil {
			r.Route("/chart-of-accounts", func(r chi.Router) {
				params.AccountsHandler.MountRoutes(r)
				if params.LedgerHandler != nil {
					params.LedgerHandler.MountStatementRoutes(r)
				}
			})
		}
		if params.LedgerHandler != nil {
			r.Route("/journal-vouchers", params.LedgerHandler.MountRoutes)
			r.Route("/ledgers", params.LedgerHandler.MountLineRoutes)
		}
		if params.FiscalYearsHandler != nil {
			r.Route("/fiscal-years", params.FiscalYearsHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", func(r chi.Router) {
				// Report generation is heavier than CRUD, so it carries a
				// tighter per-client budget.
				r.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
				params.ReportsHandler.MountRoutes(r)
			})
		}
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
