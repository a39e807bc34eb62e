package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// HealthFunc produces the health payload served at /api/health.
type HealthFunc func(r *http.Request) any

// NewRouter assembles the standard middleware chain for services that
// embed the licensing client: request IDs, panic recovery and the
// license gate, plus an ungated health endpoint.
func NewRouter(gate *LicenseGate, health HealthFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(gate.Handler)

	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, health(req))
	})

	return r
}
