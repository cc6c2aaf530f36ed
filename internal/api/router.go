package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRouter creates and configures a Chi router with all API routes
func (s *Server) SetupRouter() http.Handler {
	r := chi.NewRouter()

	// Built-in Chi middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// Health check endpoint
	r.Get("/api/health", s.HealthHandler)

	// Report routes
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/", s.ListReportsHandler)
		r.Get("/{name}", s.GetReportHandler)
		r.Get("/{name}/search", s.SearchReportHandler)
		r.Get("/{name}/devices/*", s.GetDeviceHandler)
	})

	return r
}
