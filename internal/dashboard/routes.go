package dashboard

import "github.com/go-chi/chi/v5"

// Mount registers the page and the /api routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.Index)
	r.Route("/api", func(r chi.Router) {
		r.Post("/fetch", h.Fetch)
		r.Route("/results", func(r chi.Router) {
			r.Get("/", h.Results)
			r.Delete("/", h.Clear)
			r.Get("/summary", h.Summary)
			r.Get("/yearly", h.Yearly)
			r.Get("/hexbins", h.Hexbins)
		})
	})
}
