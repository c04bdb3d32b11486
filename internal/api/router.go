/**
 * @description
 * HTTP router setup for the compte service using go-chi/chi. Public account
 * routes live under /v1/comptes; the on-demand sweep trigger sits behind the
 * internal API key.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers compte routes.
func NewRouter(h *CompteHandler, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Compte service is healthy"))
	})

	r.Route("/v1/comptes", func(r chi.Router) {
		r.Post("/", h.CreateCompte)
		r.Get("/", h.ListComptes)
		r.Get("/{compteId}", h.GetCompte)
		r.Post("/{compteId}/block", h.BlockCompte)
		r.Post("/{compteId}/unblock", h.UnblockCompte)
		r.Post("/{compteId}/archive", h.ArchiveCompte)
		r.Post("/{compteId}/unarchive", h.UnarchiveCompte)
	})

	r.Route("/internal/comptes", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))
		r.Post("/archiving/run", h.RunArchiving)
	})

	return r
}
