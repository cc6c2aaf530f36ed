// Package catalog serves the dumps of a directory as lazily parsed reports.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/camdumpdb/internal/cache"
	"github.com/camdumpdb/internal/logging"
	"github.com/camdumpdb/internal/parser"
	"github.com/camdumpdb/internal/source"
	"github.com/camdumpdb/internal/textenc"
)

// ErrNotFound is returned for an unknown report name.
var ErrNotFound = errors.New("report not found")

// Entry describes one dump available in the catalog.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Loaded is a parsed dump.
type Loaded struct {
	Entry
	Hash     string         `json:"contentHash"`
	Result   *parser.Result `json:"result"`
	Cached   bool           `json:"cached"`
	LoadedAt time.Time      `json:"loadedAt"`
}

// Options configures a Catalog.
type Options struct {
	Recursive  bool
	Extensions []string
	Encoding   textenc.Encoding
	Cache      *cache.ReportCache
	Logger     *slog.Logger
}

// Catalog indexes a dumps directory and parses each dump on first request.
// Concurrent requests for the same dump share one parse.
type Catalog struct {
	fs     afero.Fs
	root   string
	opts   Options
	logger *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	loaded map[string]*Loaded
}

// New creates a catalog over root.
func New(fs afero.Fs, root string, opts Options) *Catalog {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Component("catalog")
	}
	return &Catalog{
		fs:     fs,
		root:   root,
		opts:   opts,
		logger: logger,
		loaded: make(map[string]*Loaded),
	}
}

// List returns the dumps currently present, by name. When two files share
// a name the first in lexical path order wins.
func (c *Catalog) List() ([]Entry, error) {
	paths, err := source.FindDumpFiles(c.fs, c.root, c.opts.Recursive, c.opts.Extensions)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		name := source.ReportName(path)
		if seen[name] {
			c.logger.Debug("duplicate dump name ignored", logging.Report(name), logging.File(path))
			continue
		}
		seen[name] = true

		entry := Entry{Name: name, Path: path}
		if info, err := c.fs.Stat(path); err == nil {
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *Catalog) lookup(name string) (Entry, error) {
	entries, err := c.List()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Get returns the parsed report for name. A dump whose content changed since
// the last load is parsed again.
func (c *Catalog) Get(ctx context.Context, name string) (*Loaded, error) {
	entry, err := c.lookup(name)
	if err != nil {
		return nil, err
	}

	v, err, _ := c.group.Do(name, func() (interface{}, error) {
		return c.load(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Loaded), nil
}

func (c *Catalog) load(ctx context.Context, entry Entry) (*Loaded, error) {
	dump, err := source.ReadDump(c.fs, entry.Path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	prev := c.loaded[entry.Name]
	c.mu.RUnlock()
	if prev != nil && prev.Hash == dump.Hash {
		return prev, nil
	}

	loaded := &Loaded{Entry: entry, Hash: dump.Hash, LoadedAt: time.Now()}

	if rc := c.opts.Cache; rc != nil {
		cached, ok, err := rc.Get(ctx, dump.Hash)
		if err != nil {
			c.logger.Warn("cache lookup failed", logging.Report(entry.Name), logging.Err(err))
		} else if ok {
			loaded.Result = cached.Result(entry.Path)
			loaded.Cached = true
		}
	}

	if loaded.Result == nil {
		p := parser.New(
			parser.WithLogger(c.logger.With(logging.Report(entry.Name))),
			parser.WithEncoding(c.opts.Encoding),
		)
		res, err := p.Parse(dump.Reader())
		if err != nil {
			return nil, parser.NewFileError(entry.Path, "parse", err.Error(), err)
		}
		res.FilePath = entry.Path
		loaded.Result = res

		if rc := c.opts.Cache; rc != nil {
			if err := rc.Put(ctx, dump.Hash, cache.EntryFromResult(res)); err != nil {
				c.logger.Warn("cache store failed", logging.Report(entry.Name), logging.Err(err))
			}
		}

		c.logger.Debug("report parsed",
			logging.Report(entry.Name),
			logging.Hash(dump.Hash),
			logging.Count("diagnostic", len(res.Diagnostics)),
			logging.Duration("parse", res.Duration))
	}

	c.mu.Lock()
	c.loaded[entry.Name] = loaded
	c.mu.Unlock()

	return loaded, nil
}

// LoadedCount returns how many reports are held in memory.
func (c *Catalog) LoadedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.loaded)
}
