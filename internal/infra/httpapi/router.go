package httpapi

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all distribution routes mounted.
// Everything except the liveness probe sits behind the shared-secret check.
func NewRouter(h *Handler, triggerSecret string) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", h.Healthz)

	r.Group(func(pr chi.Router) {
		pr.Use(AuthMiddleware(triggerSecret))
		pr.Post("/api/distribution/notify", h.NotifyPublished)
		pr.Post("/api/distribution/backfill", h.RunBackfill)
		pr.Get("/api/sources", h.ListSources)
	})

	return r
}
