package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camdumpdb/internal/catalog"
	"github.com/camdumpdb/internal/models"
	"github.com/camdumpdb/internal/parser"
	"github.com/camdumpdb/internal/search"
)

// ReportSource is the part of the catalog the handlers need.
type ReportSource interface {
	List() ([]catalog.Entry, error)
	Get(ctx context.Context, name string) (*catalog.Loaded, error)
}

// Server represents the API server
type Server struct {
	reports       ReportSource
	healthChecker HealthChecker
	indent        int
}

// SetHealthChecker sets the health checker for the server
func (s *Server) SetHealthChecker(hc HealthChecker) {
	s.healthChecker = hc
}

// SetIndent sets the JSON indent width of report responses.
func (s *Server) SetIndent(indent int) {
	s.indent = indent
}

// New creates a new API server
func New(reports ReportSource) *Server {
	return &Server{
		reports: reports,
		indent:  2,
	}
}

// HealthHandler handles health check requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if s.healthChecker != nil {
		WriteJSONSuccess(w, s.healthChecker.CheckHealth())
		return
	}
	WriteJSONSuccess(w, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// reportSummary is one row of the report listing.
type reportSummary struct {
	catalog.Entry
	URL string `json:"url"`
}

// ListReportsHandler lists the dumps available to the server.
// GET /api/reports
func (s *Server) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.reports.List()
	if err != nil {
		WriteJSONError(w, fmt.Sprintf("Failed to list reports: %v", err), http.StatusInternalServerError)
		return
	}

	rows := make([]reportSummary, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, reportSummary{Entry: e, URL: "/api/reports/" + e.Name})
	}

	WriteJSONSuccess(w, map[string]any{
		"reports": rows,
		"count":   len(rows),
	})
}

// reportResponse wraps a parsed report with its parse outcome.
type reportResponse struct {
	Name        string              `json:"name"`
	ContentHash string              `json:"contentHash"`
	Cached      bool                `json:"cached"`
	State       parser.State        `json:"state"`
	LinesRead   int                 `json:"linesRead"`
	Diagnostics []parser.Diagnostic `json:"diagnostics,omitempty"`
	Report      *models.Report      `json:"report"`
}

// GetReportHandler returns the full report of one dump.
// GET /api/reports/{name}?diagnostics=true
func (s *Server) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	loaded, ok := s.loadReport(w, r)
	if !ok {
		return
	}

	resp := reportResponse{
		Name:        loaded.Name,
		ContentHash: loaded.Hash,
		Cached:      loaded.Cached,
		State:       loaded.Result.State,
		LinesRead:   loaded.Result.LinesRead,
		Report:      loaded.Result.Report,
	}
	if withDiag, _ := parseBoolParam(r.URL.Query(), "diagnostics"); withDiag {
		resp.Diagnostics = loaded.Result.Diagnostics
	}

	WriteJSONIndent(w, resp, http.StatusOK, s.indent)
}

// GetDeviceHandler returns one device of a report. Device ids contain
// slashes and may be sent raw or percent-encoded.
// GET /api/reports/{name}/devices/{id}
func (s *Server) GetDeviceHandler(w http.ResponseWriter, r *http.Request) {
	loaded, ok := s.loadReport(w, r)
	if !ok {
		return
	}

	id, err := parsePathString(chi.URLParam(r, "*"), "device id")
	if err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	device := loaded.Result.Report.Device(id)
	if device == nil {
		WriteJSONError(w, fmt.Sprintf("Device %s not found in report %s", id, loaded.Name), http.StatusNotFound)
		return
	}

	WriteJSONIndent(w, device, http.StatusOK, s.indent)
}

// SearchReportHandler filters a report down to the fields matching q.
// GET /api/reports/{name}/search?q=fps
func (s *Server) SearchReportHandler(w http.ResponseWriter, r *http.Request) {
	term, ok := parseStringParam(r.URL.Query(), "q", 1)
	if !ok {
		WriteJSONError(w, "Query parameter q is required", http.StatusBadRequest)
		return
	}

	loaded, ok := s.loadReport(w, r)
	if !ok {
		return
	}

	WriteJSONIndent(w, search.Filter(loaded.Result.Report, term), http.StatusOK, s.indent)
}

// loadReport resolves the {name} parameter. It writes the error response
// itself and returns false when there is no report to serve.
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*catalog.Loaded, bool) {
	name, err := pathParam(r, "name")
	if err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	loaded, err := s.reports.Get(r.Context(), name)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		WriteJSONError(w, fmt.Sprintf("Report %s not found", name), http.StatusNotFound)
		return nil, false
	case err != nil:
		WriteJSONError(w, fmt.Sprintf("Failed to load report: %v", err), http.StatusInternalServerError)
		return nil, false
	}

	if loaded.Result.Report == nil {
		WriteJSONError(w, fmt.Sprintf("Report %s: %v", name, parser.ErrNoProvider), http.StatusUnprocessableEntity)
		return nil, false
	}
	return loaded, true
}

// pathParam returns a decoded, non-empty chi URL parameter.
func pathParam(r *http.Request, key string) (string, error) {
	return parsePathString(chi.URLParam(r, key), key)
}
