package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check so a wedged backend
// cannot stall the health endpoint.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check
	r.Get("/health", s.handleHealth)

	// Boiler routes. The /diematic path prefix is what existing
	// diematic_server clients expect.
	r.Route("/diematic", func(r chi.Router) {
		r.Route("/parameters", func(r chi.Router) {
			r.Get("/", s.handleListParameters)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetParameter)
				r.Post("/", s.handleSetParameter)
				r.Post("/resume", s.handleResumeParameter)
				r.Get("/history", s.handleParameterHistory)
			})
		})

		r.Get("/json", s.handleSnapshot)
		r.Get("/config", s.handleConfig)
		r.Post("/poll", s.handlePoll)
	})

	return r
}

// handleHealth checks every registered component and reports aggregate
// health. Any failing component degrades the whole endpoint to 503 so
// orchestrators restart the daemon rather than ignore a dead backend.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	components := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.health[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	body := map[string]any{
		"status":  status,
		"version": s.version,
	}
	if len(components) > 0 {
		body["components"] = components
	}
	writeJSON(w, code, body)
}
