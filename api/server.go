/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/commissions/*   Commission ledger and settlement
  /api/rules/*         Rule management
  /api/admin/*         Assignments and batch sweep
  /api/orders          Order ingestion feed

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Commission routes
		r.Route("/commissions", func(r chi.Router) {
			r.Get("/", h.ListCommissions)
			r.Post("/recalculate", h.Recalculate)
			r.Get("/leaderboard", h.Leaderboard)
			r.Get("/{id}", h.GetCommission)
			r.Post("/{id}/approve", h.ApproveCommission)
			r.Post("/{id}/pay", h.PayCommission)
		})

		// Rule routes
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.CreateRule)
			r.Get("/{id}", h.GetRule)
			r.Post("/{id}/deactivate", h.DeactivateRule)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/assignments", h.CreateAssignment)
			r.Post("/sweep", h.TriggerSweep)
		})

		// Order ingestion feed
		r.Post("/orders", h.IngestOrders)
	})

	return r
}
