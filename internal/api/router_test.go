package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/camdumpdb/internal/catalog"
	"github.com/camdumpdb/internal/testutil"
)

func newTestAPIServer(t *testing.T) *Server {
	t.Helper()
	fs := testutil.DumpFS(t, map[string][]byte{
		"/dumps/pixel.txt": testutil.LoadFixture(t, testutil.CameraDump),
		"/dumps/empty.txt": []byte("Camera module API version: 0x204\n"),
	})

	return New(catalog.New(fs, "/dumps", catalog.Options{Extensions: []string{".txt"}}))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not JSON: %v\n%s", err, w.Body.String())
	}
	return body
}

func TestRouterSetup(t *testing.T) {
	router := newTestAPIServer(t).SetupRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"Health endpoint", "GET", "/api/health", http.StatusOK},
		{"List reports", "GET", "/api/reports", http.StatusOK},
		{"Get report", "GET", "/api/reports/pixel", http.StatusOK},
		{"Unknown report", "GET", "/api/reports/nope", http.StatusNotFound},
		{"Report without provider", "GET", "/api/reports/empty", http.StatusUnprocessableEntity},
		{"Get device", "GET", "/api/reports/pixel/devices/1", http.StatusOK},
		{"Unknown device", "GET", "/api/reports/pixel/devices/9", http.StatusNotFound},
		{"Search without term", "GET", "/api/reports/pixel/search", http.StatusBadRequest},
		{"Invalid route", "GET", "/api/invalid", http.StatusNotFound},
		{"Invalid method on health", "POST", "/api/health", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d for %s %s", tt.wantStatus, w.Code, tt.method, tt.path)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", ct)
			}
		})
	}
}

func TestListReports(t *testing.T) {
	w := get(t, newTestAPIServer(t).SetupRouter(), "/api/reports/")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["count"] != float64(2) {
		t.Errorf("Expected count 2, got %v", body["count"])
	}

	reports := body["reports"].([]any)
	first := reports[0].(map[string]any)
	if first["name"] != "empty" || first["url"] != "/api/reports/empty" {
		t.Errorf("First report = %v, want empty at /api/reports/empty", first)
	}
}

func TestGetReport(t *testing.T) {
	router := newTestAPIServer(t).SetupRouter()

	w := get(t, router, "/api/reports/pixel")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["name"] != "pixel" || body["state"] != "terminated" {
		t.Errorf("Expected pixel in state terminated, got name=%v state=%v", body["name"], body["state"])
	}
	if _, ok := body["diagnostics"]; ok {
		t.Error("Expected diagnostics to be omitted by default")
	}

	report := body["report"].(map[string]any)
	if report["providerName"] != "legacy/0 (v2.5, remote)" {
		t.Errorf("providerName = %v", report["providerName"])
	}
	if report["complete"] != true {
		t.Errorf("complete = %v, want true", report["complete"])
	}

	w = get(t, router, "/api/reports/pixel?diagnostics=true")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 with diagnostics, got %d", w.Code)
	}
	if name := decode(t, w)["name"]; name != "pixel" {
		t.Errorf("name = %v, want pixel", name)
	}
}

func TestGetDevice(t *testing.T) {
	w := get(t, newTestAPIServer(t).SetupRouter(), "/api/reports/pixel/devices/0")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["id"] != "0" {
		t.Errorf("id = %v, want 0", body["id"])
	}
	if _, ok := body["characteristics"]; !ok {
		t.Error("Expected characteristics in device body")
	}
}

func TestSearchReport(t *testing.T) {
	w := get(t, newTestAPIServer(t).SetupRouter(), "/api/reports/pixel/search?q=FPSRANGES")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["term"] != "FPSRANGES" {
		t.Errorf("term = %v, want FPSRANGES", body["term"])
	}
	if total, _ := body["total"].(float64); total <= 0 {
		t.Errorf("Expected matches, got total %v", body["total"])
	}
	if devices, _ := body["devices"].([]any); len(devices) == 0 {
		t.Error("Expected per-device match counts")
	}
}

func TestErrorBody(t *testing.T) {
	w := get(t, newTestAPIServer(t).SetupRouter(), "/api/reports/nope")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}

	body := decode(t, w)
	if body["error"] != "Report nope not found" {
		t.Errorf("error = %v", body["error"])
	}
	if body["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v, want 404", body["status"])
	}
}

func TestParsePathString(t *testing.T) {
	got, err := parsePathString("device%403.5%2Flegacy%2F0", "device id")
	if err != nil {
		t.Fatalf("parsePathString failed: %v", err)
	}
	if got != "device@3.5/legacy/0" {
		t.Errorf("parsePathString = %q, want device@3.5/legacy/0", got)
	}

	if _, err := parsePathString("", "name"); err == nil || err.Error() != "name cannot be empty" {
		t.Errorf("Expected empty-name error, got %v", err)
	}

	_, err = parsePathString("%zz", "name")
	var pe *ParamError
	if !errors.As(err, &pe) {
		t.Errorf("Expected *ParamError, got %T", err)
	}
}
