/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:      Unique ID per request, echoed in logs
  2. RequestLogger:  logrus line per request
  3. Recoverer:      Panic recovery (500 instead of crash)
  4. CORS:           Cross-origin requests for frontends
  5. Authenticate:   Bearer token => identity (timesheet routes only)

ROUTE GROUPS:
  /healthz              Liveness, no auth
  /metrics              Prometheus, no auth
  /timesheet/*          Week and month endpoints, bearer auth

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/warp/timesheet-engine/identity"
)

// RouterOptions carries the collaborators the router needs besides the handler.
type RouterOptions struct {
	Resolver       identity.Resolver
	Logger         logrus.FieldLogger
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = h.Logger
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	r.Method("GET", "/metrics", h.Metrics.Handler())

	r.Route("/timesheet", func(r chi.Router) {
		r.Use(Authenticate(opts.Resolver))

		r.Get("/week", h.GetWeek)
		r.Post("/week", h.SaveWeek)
		r.Get("/month", h.GetMonth)
	})

	return r
}
