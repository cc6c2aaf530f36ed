// Package web renders parsed reports as browsable HTML pages.
package web

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/camdumpdb/internal/catalog"
)

// ReportSource is the part of the catalog the pages need.
type ReportSource interface {
	List() ([]catalog.Entry, error)
	Get(ctx context.Context, name string) (*catalog.Loaded, error)
}

// Server represents the web server
type Server struct {
	reports     ReportSource
	templates   map[string]*template.Template
	templatesFS fs.FS
	staticFS    fs.FS
}

// New creates a new web server
func New(reports ReportSource, templatesFS, staticFS fs.FS) *Server {
	server := &Server{
		reports:     reports,
		templates:   make(map[string]*template.Template),
		templatesFS: templatesFS,
		staticFS:    staticFS,
	}

	server.loadTemplates()
	return server
}

// loadTemplates parses every page together with the shared partials
func (s *Server) loadTemplates() {
	pages := []string{"index", "report"}

	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"join": strings.Join,
	}

	for _, page := range pages {
		s.templates[page] = template.Must(template.New(page).Funcs(funcMap).ParseFS(s.templatesFS,
			"templates/"+page+".html",
			"templates/partials/*.html",
		))
	}
}

// SetupRoutes configures the HTTP routes
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.IndexHandler)
	mux.HandleFunc("GET /reports/{name}", s.ReportHandler)

	// Serve static files
	mux.HandleFunc("GET /static/", s.StaticHandler)
}

func (s *Server) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, page+".html", data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}
