/*
server.go - HTTP router setup

PURPOSE:
  Wires handlers to routes with chi. Middleware stack: request IDs,
  logging, panic recovery, permissive CORS for browser clients.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the full route tree around the handler.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/orgs/{orgID}", func(r chi.Router) {
			r.Get("/config", h.GetConfig)
			r.Put("/config", h.UpdateConfig)

			r.Route("/pilots/{pilotID}", func(r chi.Router) {
				r.Post("/duties", h.StartDuty)
				r.Post("/rests", h.RecordRest)
				r.Get("/compliance", h.CheckCompliance)
				r.Get("/rest-check", h.CheckRest)
				r.Post("/validate-duty", h.ValidateDuty)
				r.Get("/status", h.GetStatus)
				r.Get("/violations", h.ListViolations)
			})
		})

		r.Post("/duties/{id}/end", h.EndDuty)
		r.Post("/rests/{id}/end", h.EndRest)
		r.Post("/violations/{id}/resolve", h.ResolveViolation)
	})

	return r
}
