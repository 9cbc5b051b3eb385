package numbering

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harbor-books/harbor-books/internal/platform/httpx"
	"github.com/harbor-books/harbor-books/internal/shared"
)

// Handler exposes number issuance to the host application.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs the numbering handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

// MountRoutes attaches numbering endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/next", h.Next)
}

type nextNumberRequest struct {
	Prefix string `json:"prefix" validate:"required,alpha,max=8"`
}

// Next handles POST /numbers/next.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	var req nextNumberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	number, err := h.service.NextNumber(r.Context(), shared.TenantFromContext(r.Context()), req.Prefix)
	if err != nil {
		h.logger.Error("next number", slog.String("prefix", req.Prefix), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"number": number})
}
