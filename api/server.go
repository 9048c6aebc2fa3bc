/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/projects/*       Projects, field records and derived views
  /api/recompute/*      Recompute runs and manual trigger
  /api/scenarios/*      Demo scenarios
  /api/reset            Store reset (dev only)
  /                     Endpoint index

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cli/serve.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// AllowedOrigins are the dashboard origins accepted by CORS.
var AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProject)
				r.Get("/reports", h.ListReports)
				r.Post("/reports", h.SubmitReport)
				r.Get("/attendance", h.ListAttendance)
				r.Post("/attendance", h.SubmitAttendance)
				r.Get("/summary", h.GetSummary)
				r.Get("/summary/latest", h.GetLatestSummary)
				r.Get("/tasks/{taskID}/timeline", h.GetTimeline)
				r.Get("/tasks/{taskID}/variance", h.GetVariance)
				r.Get("/curve", h.GetCurve)
				r.Get("/digests", h.GetDigests)
			})
		})

		r.Route("/recompute", func(r chi.Router) {
			r.Get("/runs", h.ListRuns)
			r.Get("/schedule", h.GetSchedule)
			r.Post("/process", h.TriggerRecompute)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		r.Post("/reset", h.ResetDatabase)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(indexPage))
	})

	return r
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Sitetrack</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Sitetrack API</h1>
<p>Construction progress, schedule variance and crew hours per project.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/projects">/api/projects</a> - List projects</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
<li><a href="/api/recompute/runs">/api/recompute/runs</a> - Recent recompute runs</li>
<li><a href="/api/recompute/schedule">/api/recompute/schedule</a> - Periodic recompute timing</li>
</ul>
</body>
</html>`
