package integration

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harbor-books/harbor-books/internal/ledger"
	"github.com/harbor-books/harbor-books/internal/platform/httpx"
	"github.com/harbor-books/harbor-books/internal/shared"
)

// Handler receives business-event projections from the host application.
type Handler struct {
	hooks    *Hooks
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs the integration handler.
func NewHandler(logger *slog.Logger, hooks *Hooks) *Handler {
	return &Handler{hooks: hooks, logger: logger, validate: validator.New()}
}

// MountRoutes attaches the posting adapter endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices/issued", h.InvoiceIssued)
	r.Post("/invoices/paid", h.InvoicePaid)
	r.Post("/payroll/runs", h.PayrollRun)
}

type invoiceIssuedRequest struct {
	InvoiceID int64   `json:"invoice_id" validate:"required"`
	Number    string  `json:"number" validate:"required"`
	IssueDate string  `json:"issue_date" validate:"required,datetime=2006-01-02"`
	Subtotal  float64 `json:"subtotal" validate:"gte=0"`
	Tax       float64 `json:"tax" validate:"gte=0"`
	Total     float64 `json:"total" validate:"gt=0"`
}

// InvoiceIssued handles POST /invoices/issued.
func (h *Handler) InvoiceIssued(w http.ResponseWriter, r *http.Request) {
	var req invoiceIssuedRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	issueDate, _ := time.Parse("2006-01-02", req.IssueDate)
	txn, err := h.hooks.HandleInvoiceIssued(r.Context(), InvoiceIssuedEvent{
		InvoiceID: req.InvoiceID,
		TenantID:  shared.TenantFromContext(r.Context()),
		Number:    req.Number,
		IssueDate: issueDate,
		Subtotal:  req.Subtotal,
		Tax:       req.Tax,
		Total:     req.Total,
	})
	if err != nil {
		h.logger.Error("invoice issued posting", slog.String("number", req.Number), slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ledger.NewTransactionResponse(txn))
}

type invoicePaidRequest struct {
	InvoiceID int64   `json:"invoice_id" validate:"required"`
	Number    string  `json:"number" validate:"required"`
	PaidAt    string  `json:"paid_at" validate:"required,datetime=2006-01-02"`
	Total     float64 `json:"total" validate:"gt=0"`
}

// InvoicePaid handles POST /invoices/paid.
func (h *Handler) InvoicePaid(w http.ResponseWriter, r *http.Request) {
	var req invoicePaidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	paidAt, _ := time.Parse("2006-01-02", req.PaidAt)
	txn, err := h.hooks.HandleInvoicePaid(r.Context(), InvoicePaidEvent{
		InvoiceID: req.InvoiceID,
		TenantID:  shared.TenantFromContext(r.Context()),
		Number:    req.Number,
		PaidAt:    paidAt,
		Total:     req.Total,
	})
	if err != nil {
		h.logger.Error("invoice paid posting", slog.String("number", req.Number), slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ledger.NewTransactionResponse(txn))
}

type payrollRunRequest struct {
	RunID    int64   `json:"run_id" validate:"required"`
	PayDate  string  `json:"pay_date" validate:"required,datetime=2006-01-02"`
	Gross    float64 `json:"gross" validate:"gt=0"`
	Withheld float64 `json:"withheld" validate:"gte=0"`
}

// PayrollRun handles POST /payroll/runs.
func (h *Handler) PayrollRun(w http.ResponseWriter, r *http.Request) {
	var req payrollRunRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	payDate, _ := time.Parse("2006-01-02", req.PayDate)
	txn, err := h.hooks.HandlePayrollRun(r.Context(), PayrollRunEvent{
		RunID:    req.RunID,
		TenantID: shared.TenantFromContext(r.Context()),
		PayDate:  payDate,
		Gross:    req.Gross,
		Withheld: req.Withheld,
	})
	if err != nil {
		h.logger.Error("payroll posting", slog.Int64("run_id", req.RunID), slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ledger.NewTransactionResponse(txn))
}
