/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through logrus
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a frontend

ROUTE GROUPS:
  /api/users/*          Per-user config, records, tracking and goals
  /api/admin/*          Diagnosis and repair
  /healthz              Liveness probe

SECURITY NOTE:
  No authentication middleware. All endpoints are public, including admin.

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

// NewRouter creates a new router with all routes configured. An empty
// origins list allows any origin.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: h.Logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", h.CreateUser)

		r.Route("/users/{user}", func(r chi.Router) {
			// Config routes
			r.Get("/config", h.GetConfig)
			r.Put("/config/budget", h.UpdateBudget)
			r.Put("/config/defaults/{field}", h.SetDefault)
			r.Put("/config/start-date", h.SetStartDate)

			// Record routes
			r.Route("/records", func(r chi.Router) {
				r.Get("/", h.ListRecords)
				r.Get("/{date}", h.GetRecord)
				r.Put("/{date}", h.SaveDay)
				r.Post("/{date}/complete", h.CompleteDay)
				r.Post("/{date}/fix", h.FixField)
			})

			// Tracking routes
			r.Post("/coverage", h.EnsureCoverage)
			r.Get("/pending", h.PendingDays)
			r.Get("/summary", h.Summary)
			r.Get("/calendar", h.Calendar)

			// Goal routes
			r.Route("/goals", func(r chi.Router) {
				r.Get("/", h.ListGoals)
				r.Post("/", h.CreateGoal)
				r.Get("/{id}", h.GetGoal)
				r.Post("/{id}/contribute", h.Contribute)
			})
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/diagnose", h.Diagnose)
			r.Get("/verify", h.Verify)
			r.Post("/repair", h.Repair)
			r.Post("/repair-configs", h.RepairConfigs)
			r.Get("/ghosts", h.FindGhosts)
			r.Delete("/ghosts", h.DeleteGhosts)
		})
	})

	return r
}
