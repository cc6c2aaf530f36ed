package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/camdumpdb/internal/logging"
	"github.com/camdumpdb/internal/models"
)

// LoggingMiddleware logs every request with its status and duration.
// It wraps the whole server mux so page and API requests log alike.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		args := append(logging.HTTP(r.Method, r.URL.Path, status),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", r.RemoteAddr))
		logging.Info("HTTP request", args...)
	})
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	WriteJSONIndent(w, data, statusCode, 0)
}

// WriteJSONIndent writes an indented JSON response. Field names and values
// are written as parsed, without HTML escaping.
func WriteJSONIndent(w http.ResponseWriter, data interface{}, statusCode int, indent int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := models.EncodeJSON(w, data, indent); err != nil {
		logging.Warn("failed to encode response", logging.Err(err))
	}
}

// WriteJSONError writes a JSON error response.
func WriteJSONError(w http.ResponseWriter, message string, statusCode int) {
	WriteJSON(w, map[string]interface{}{
		"error":  message,
		"status": statusCode,
		"time":   time.Now().UTC(),
	}, statusCode)
}

// WriteJSONSuccess writes a successful JSON response.
func WriteJSONSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, data, http.StatusOK)
}
