package ledger

import "github.com/go-chi/chi/v5"

// MountRoutes attaches registry and journal endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Post("/", h.CreateAccount)
		r.Post("/{id}/deactivate", h.DeactivateAccount)
	})
	r.Route("/journals", func(r chi.Router) {
		r.Get("/", h.ListJournals)
		r.Post("/", h.PostJournal)
		r.Post("/{id}/reverse", h.Reverse)
	})
}
