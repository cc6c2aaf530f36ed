package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/camdumpdb/internal/catalog"
	"github.com/camdumpdb/internal/search"
)

// IndexHandler lists the available dumps
func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.reports.List()
	if err != nil {
		http.Error(w, "Failed to list reports: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		Title   string
		Reports []catalog.Entry
	}{
		Title:   "Camera Dumps",
		Reports: entries,
	}
	s.render(w, "index", data)
}

// ReportHandler shows one report, optionally filtered by a search term.
// GET /reports/{name}?q=fps&collapsed=1
func (s *Server) ReportHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	loaded, err := s.reports.Get(r.Context(), name)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		http.Error(w, "Failed to load report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	res := loaded.Result
	view := reportView{
		Title:       name,
		Name:        name,
		Hash:        loaded.Hash,
		Cached:      loaded.Cached,
		LinesRead:   res.LinesRead,
		Diagnostics: res.Diagnostics,
		Query:       strings.TrimSpace(r.URL.Query().Get("q")),
		Collapsed:   r.URL.Query().Get("collapsed") == "1",
	}

	if res.Report != nil {
		report := res.Report
		var matches []search.DeviceMatches
		if view.Query != "" {
			filtered := search.Filter(report, view.Query)
			report = filtered.Report
			matches = filtered.Devices
			view.Total = filtered.Total
		}

		view.Provider = report.ProviderName
		view.Declared = report.DeviceCount
		view.Complete = report.Complete
		view.Metadata = fieldsOf(report.Metadata)
		view.Devices = devicesOf(report, matches)
	}

	s.render(w, "report", view)
}
