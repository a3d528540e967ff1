// Package api exposes the search, feedback and admin surface over
// HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/core/ports/driving"
	"github.com/custodia-labs/curator/internal/core/services"
)

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	search    driving.SearchService
	feedback  driving.FeedbackService
	lifecycle driving.LifecycleService
	conflicts driven.ConflictStore
	limiter   *services.RateLimiter
}

// NewServer creates and configures the HTTP server. limiter is
// optional; without it requests are not rate limited.
func NewServer(
	search driving.SearchService,
	feedback driving.FeedbackService,
	lifecycle driving.LifecycleService,
	conflicts driven.ConflictStore,
	limiter *services.RateLimiter,
) *Server {
	s := &Server{
		search:    search,
		feedback:  feedback,
		lifecycle: lifecycle,
		conflicts: conflicts,
		limiter:   limiter,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger())

	r.Get("/api/v1/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(rateLimitMiddleware(s.limiter))

		r.Post("/api/v1/search", s.handleSearch)
		r.Post("/api/v1/feedback", s.handleFeedback)

		r.Get("/api/v1/conflicts", s.handleListConflicts)
		r.Post("/api/v1/conflicts/{conflictID}/resolve", s.handleResolveConflict)
		r.Post("/api/v1/chunks/{chunkID}/repromote", s.handleRepromote)
	})

	s.router = r
}
