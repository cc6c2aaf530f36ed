package web

import (
	"io"
	"net/http"
	"path"
	"strings"
)

// StaticHandler serves static files from the embedded filesystem
func (s *Server) StaticHandler(w http.ResponseWriter, r *http.Request) {
	requestPath := strings.TrimPrefix(r.URL.Path, "/static/")

	// Security check: prevent directory traversal
	if requestPath == "" || strings.Contains(requestPath, "..") {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	file, err := s.staticFS.Open(path.Join("static", requestPath))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	// Set appropriate content type based on file extension
	switch path.Ext(requestPath) {
	case ".css":
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	case ".js":
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	case ".svg":
		w.Header().Set("Content-Type", "image/svg+xml")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")

	io.Copy(w, file)
}
