package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// CameraDump is the shared three-device dump fixture.
const CameraDump = "camera_dump.txt"

// fixtureDirs are searched, relative to each parent directory, for fixtures.
var fixtureDirs = []string{
	"testdata",
	filepath.Join("internal", "parser", "testdata"),
}

// TempFile creates a temporary file with content for testing
func TempFile(t *testing.T, dir, pattern, content string) string {
	t.Helper()

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer f.Close()

	if content != "" {
		if _, err := f.WriteString(content); err != nil {
			t.Fatalf("Failed to write to temp file: %v", err)
		}
	}

	return f.Name()
}

// LoadFixture loads a test fixture file from a testdata directory.
// Walks up the directory tree so any package can reach the shared dumps.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	// Try up to 10 levels up (should be more than enough)
	dir := cwd
	for i := 0; i < 10; i++ {
		for _, sub := range fixtureDirs {
			if data, err := os.ReadFile(filepath.Join(dir, sub, path)); err == nil {
				return data
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	t.Fatalf("Failed to load fixture %s from testdata/ (searched up from %s)", path, cwd)
	return nil
}

// LoadFixtureString loads a test fixture as string
func LoadFixtureString(t *testing.T, path string) string {
	t.Helper()
	return string(LoadFixture(t, path))
}

// DumpFS returns an in-memory filesystem holding files, keyed by path.
func DumpFS(t *testing.T, files map[string][]byte) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, data := range files {
		if err := afero.WriteFile(fs, path, data, 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return fs
}
