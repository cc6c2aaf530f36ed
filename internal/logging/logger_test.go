package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitialize(t *testing.T) {
	err := Initialize(nil)
	if err != nil {
		t.Fatalf("Failed to initialize with default config: %v", err)
	}

	logger := GetLogger()
	if logger == nil {
		t.Fatal("GetLogger returned nil")
	}

	cfg := &Config{
		Level:   "debug",
		Console: true,
		Stderr:  true,
	}
	err = Initialize(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize with custom config: %v", err)
	}
}

func TestGetLogger(t *testing.T) {
	globalLogger = nil

	logger := GetLogger()
	if logger == nil {
		t.Fatal("GetLogger returned nil")
	}

	logger2 := GetLogger()
	if logger != logger2 {
		t.Error("GetLogger should return same instance")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo}, // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level := parseLevel(tt.input)
			if level != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "warning", "error"} {
		if !ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = false, want true", level)
		}
	}
	if ValidLevel("verbose") {
		t.Errorf("ValidLevel(%q) = true, want false", "verbose")
	}
}

func TestOutputWriter(t *testing.T) {
	var buf bytes.Buffer
	err := Initialize(&Config{
		Level:   "debug",
		Console: true,
		Output:  &buf,
	})
	if err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	Debug("debug message", Device("3"))
	Infof("parsed %d devices", 2)
	Component("parser").Warn("orphan values", Count("line", 1))

	out := buf.String()
	for _, want := range []string{"debug message", "device_id=3", "parsed 2 devices", "component=parser", "line_count=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: "warn", Console: true, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message missing")
	}
}

func TestNewDoesNotReplaceGlobal(t *testing.T) {
	if err := Initialize(&Config{Level: "info", Console: false}); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	global := GetLogger()

	var buf bytes.Buffer
	if _, err := New(&Config{Level: "debug", Console: true, Output: &buf}); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if GetLogger() != global {
		t.Error("New replaced the global logger")
	}
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	err := Initialize(&Config{
		Level:   "debug",
		Console: true,
		Output:  &buf,
		JSON:    true,
	})
	if err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	WithError(errors.New("boom")).Info("with error")
	With(Provider("legacy/0"), Hash("0123456789abcdef0123"), Duration("parse", 1500*time.Millisecond)).Info("with attrs")

	out := buf.String()
	for _, want := range []string{`"error":"boom"`, `"provider":"legacy/0"`, `"content_hash":"0123456789ab"`, `"parse_ms":1500`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestFileLogging(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	cfg := &Config{
		Level:   "info",
		File:    logFile,
		Console: false,
	}

	err := Initialize(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize with file: %v", err)
	}

	Info("test message 1")
	Info("test message 2")

	err = GetLogger().Close()
	if err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(data), "test message 1") {
		t.Error("Log file doesn't contain expected message")
	}
}

func TestReload(t *testing.T) {
	err := Initialize(&Config{
		Level:   "info",
		Console: false,
	})
	if err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	logger := GetLogger()

	newCfg := &Config{
		Level:   "debug",
		Console: false,
		JSON:    true,
	}

	err = logger.Reload(newCfg)
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}

	if logger.config.Level != "debug" {
		t.Error("Config level not updated")
	}
}
