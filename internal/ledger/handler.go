package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harbor-books/harbor-books/internal/platform/httpx"
	"github.com/harbor-books/harbor-books/internal/shared"
)

// IdempotencyKeyHeader carries the caller-supplied retry key.
const IdempotencyKeyHeader = "Idempotency-Key"

// PostingMetrics counts posting attempt outcomes.
type PostingMetrics interface {
	CountPosting(result string)
}

// Handler exposes the registry and posting engine over HTTP.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
	metrics  PostingMetrics
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

// WithMetrics attaches posting outcome counters.
func (h *Handler) WithMetrics(m PostingMetrics) {
	h.metrics = m
}

func (h *Handler) countPosting(err error) {
	if h.metrics == nil {
		return
	}
	switch {
	case err == nil:
		h.metrics.CountPosting("committed")
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrTooFewLines),
		errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrAccountInactive):
		h.metrics.CountPosting("rejected")
	default:
		h.metrics.CountPosting("failed")
	}
}

// CreateAccount handles POST /accounts.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), CreateAccountInput{
		TenantID: shared.TenantFromContext(r.Context()),
		Code:     req.Code,
		Name:     req.Name,
		Type:     AccountType(req.Type),
		Role:     AccountRole(req.Role),
		Currency: req.Currency,
	})
	if err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewAccountResponse(account))
}

// ListAccounts handles GET /accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	accounts, err := h.service.ListAccounts(r.Context(), shared.TenantFromContext(r.Context()), includeInactive)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		RespondError(w, err)
		return
	}
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, NewAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": out})
}

// DeactivateAccount handles POST /accounts/{id}/deactivate.
func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "account id must be numeric")
		return
	}
	if err := h.service.DeactivateAccount(r.Context(), shared.TenantFromContext(r.Context()), id); err != nil {
		h.logger.Error("deactivate account", slog.Any("error", err))
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostJournal handles POST /journals.
func (h *Handler) PostJournal(w http.ResponseWriter, r *http.Request) {
	var req PostJournalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.ToPostingInput(shared.TenantFromContext(r.Context()), r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", err.Error())
		return
	}
	txn, err := h.service.PostTransaction(r.Context(), input)
	h.countPosting(err)
	if err != nil {
		h.logger.Error("post journal", slog.Any("error", err))
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewTransactionResponse(txn))
}

// ListJournals handles GET /journals.
func (h *Handler) ListJournals(w http.ResponseWriter, r *http.Request) {
	filter := TransactionFilter{}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "from must be YYYY-MM-DD")
			return
		}
		filter.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "to must be YYYY-MM-DD")
			return
		}
		filter.To = &t
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = TransactionStatus(v)
	}
	txns, err := h.service.ListTransactions(r.Context(), shared.TenantFromContext(r.Context()), filter)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		RespondError(w, err)
		return
	}
	out := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, NewTransactionResponse(txn))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journals": out})
}

// Reverse handles POST /journals/{id}/reverse.
func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "journal id must be numeric")
		return
	}
	var req struct {
		Memo string `json:"memo"`
	}
	// Body is optional for reversals.
	_ = httpx.DecodeJSON(r, &req)
	txn, err := h.service.ReverseTransaction(r.Context(), shared.TenantFromContext(r.Context()), id, 0, req.Memo)
	h.countPosting(err)
	if err != nil {
		h.logger.Error("reverse journal", slog.Any("error", err))
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewTransactionResponse(txn))
}

// RespondError maps ledger domain errors to problem responses. Every error
// reaches the caller; none are downgraded to warnings.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrTooFewLines):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unbalanced Transaction", err.Error())
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrTransactionNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAccountInactive), errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate Code", err.Error())
	case errors.Is(err, ErrRoleAccountMissing):
		httpx.Problem(w, http.StatusConflict, "Missing Role Account", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
