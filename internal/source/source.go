// Package source locates and reads dump files through an afero filesystem.
package source

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Dump is one dump file read into memory.
type Dump struct {
	Path    string
	Data    []byte
	Hash    string
	ModTime time.Time
}

// Reader returns a fresh reader over the dump content.
func (d *Dump) Reader() io.Reader {
	return bytes.NewReader(d.Data)
}

// Name is the file name without directory or extension.
func (d *Dump) Name() string {
	return ReportName(d.Path)
}

// ReportName derives the name a dump is addressed by.
func ReportName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// HashContent returns the hex SHA-256 of data.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FindDumpFiles returns the dump files under root in lexical order. A root
// that is a regular file is returned as is. An empty extension list accepts
// every file.
func FindDumpFiles(fs afero.Fs, root string, recursive bool, extensions []string) ([]string, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && (!recursive || strings.HasPrefix(info.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		if hasExtension(info.Name(), extensions) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func hasExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// ReadDump reads a dump file and computes its content hash.
func ReadDump(fs afero.Fs, path string) (*Dump, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var modTime time.Time
	if info, err := fs.Stat(path); err == nil {
		modTime = info.ModTime()
	}

	return &Dump{
		Path:    path,
		Data:    data,
		Hash:    HashContent(data),
		ModTime: modTime,
	}, nil
}
