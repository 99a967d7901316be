/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router and route definitions. This is a thin
  boundary: every route maps 1:1 onto a ledger.Service operation and
  the handlers do nothing but decode, call, encode.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

SECURITY NOTE:
  No authentication middleware; session/auth live outside this service.

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all ledger routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/participants", func(r chi.Router) {
			r.Get("/", h.ListParticipants)
			r.Post("/", h.AddParticipant)
			r.Delete("/{name}", h.RemoveParticipant)
			r.Get("/{name}/vacations", h.ListVacations)
			r.Get("/{name}/recommendation", h.RecommendGoal)
		})

		r.Route("/weeks", func(r chi.Router) {
			r.Get("/", h.ListRecentWeeks)
			r.Route("/{week}", func(r chi.Router) {
				r.Get("/stats", h.WeekStats)
				r.Get("/audit", h.WeekAudit)
				r.Get("/audit.csv", h.WeekAuditCSV)
				r.Post("/activities", h.RecordActivity)
				r.Delete("/activities/{id}", h.DeleteActivity)
				r.Put("/goals/{name}", h.SetWeekGoal)
				r.Post("/apply", h.ApplyPending)
				r.Post("/reset", h.ResetWeek)
			})
		})

		r.Post("/vacations", h.SetVacationPeriod)
	})

	return r
}
