package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/harbor-books/harbor-books/internal/integration"
	"github.com/harbor-books/harbor-books/internal/ledger"
	"github.com/harbor-books/harbor-books/internal/ledger/reports"
	"github.com/harbor-books/harbor-books/internal/numbering"
	"github.com/harbor-books/harbor-books/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	LedgerHandler      *ledger.Handler
	ReportsHandler     *reports.Handler
	IntegrationHandler *integration.Handler
	NumberingHandler   *numbering.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router for the ledger service.
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
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(TenantMiddleware(params.Logger))
		params.LedgerHandler.MountRoutes(r)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
		params.IntegrationHandler.MountRoutes(r)
		r.Route("/numbers", params.NumberingHandler.MountRoutes)
	})

	return r
}
