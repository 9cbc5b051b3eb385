package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harbor-books/harbor-books/internal/ledger"
	"github.com/harbor-books/harbor-books/internal/platform/httpx"
	"github.com/harbor-books/harbor-books/internal/shared"
)

// Handler exposes the statement generator over HTTP.
type Handler struct {
	service   *Service
	logger    *slog.Logger
	formatter *Formatter
	now       func() time.Time
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, service *Service, formatter *Formatter) *Handler {
	return &Handler{service: service, logger: logger, formatter: formatter, now: time.Now}
}

// MountRoutes attaches statement endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/profit-loss", h.ProfitAndLoss)
	r.Get("/balance-sheet", h.BalanceSheet)
}

// TrialBalance handles GET /reports/trial-balance.
func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.service.TrialBalance(r.Context(), shared.TenantFromContext(r.Context()))
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rows":                  tb.Rows,
		"total_debits":          tb.TotalDebit,
		"total_credits":         tb.TotalCredit,
		"total_debits_display":  h.formatter.Amount(tb.TotalDebit),
		"total_credits_display": h.formatter.Amount(tb.TotalCredit),
	})
}

// ProfitAndLoss handles GET /reports/profit-loss?from=&to=.
func (h *Handler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "from must be YYYY-MM-DD")
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "to must be YYYY-MM-DD")
		return
	}
	if from.IsZero() || to.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Missing Range", "from and to are required")
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), shared.TenantFromContext(r.Context()), from, to)
	if err != nil {
		h.logger.Error("profit and loss", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"revenue":            pl.Revenue,
		"expenses":           pl.Expense,
		"total_revenue":      pl.Revenue.Total,
		"total_expenses":     pl.Expense.Total,
		"net_income":         pl.NetIncome,
		"net_income_display": h.formatter.Amount(pl.NetIncome),
	})
}

// BalanceSheet handles GET /reports/balance-sheet?as_of=.
func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "as_of must be YYYY-MM-DD")
		return
	}
	if asOf.IsZero() {
		asOf = h.now()
	}
	bs, err := h.service.BalanceSheet(r.Context(), shared.TenantFromContext(r.Context()), asOf)
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"assets":                       bs.Assets,
		"liabilities":                  bs.Liabilities,
		"equity":                       bs.Equity,
		"total_assets":                 bs.TotalAssets,
		"total_liabilities_and_equity": bs.TotalLiabilitiesAndEquity,
		"total_assets_display":         h.formatter.Amount(bs.TotalAssets),
	})
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", v)
}
