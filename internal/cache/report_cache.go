package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/camdumpdb/internal/models"
	"github.com/camdumpdb/internal/parser"
	"github.com/camdumpdb/internal/textenc"
)

// Entry is what the report cache keeps per dump. Report is nil for dumps
// without a provider header so those are not re-read either.
type Entry struct {
	Report           *models.Report `cbor:"report"`
	LinesRead        int            `cbor:"linesRead"`
	ProcessedDevices int            `cbor:"processedDevices"`
	Diagnostics      int            `cbor:"diagnostics"`
	Encoding         string         `cbor:"encoding,omitempty"`
}

// EntryFromResult captures what a later lookup needs from a parse.
func EntryFromResult(res *parser.Result) *Entry {
	return &Entry{
		Report:           res.Report,
		LinesRead:        res.LinesRead,
		ProcessedDevices: res.ProcessedDevices,
		Diagnostics:      len(res.Diagnostics),
		Encoding:         string(res.Encoding),
	}
}

// Result rebuilds a parse result from the entry. Individual diagnostics are
// not cached.
func (e *Entry) Result(filePath string) *parser.Result {
	res := &parser.Result{
		Report:           e.Report,
		LinesRead:        e.LinesRead,
		ProcessedDevices: e.ProcessedDevices,
		FilePath:         filePath,
		Encoding:         textenc.Encoding(e.Encoding),
		State:            parser.StateAwaitingProvider,
	}
	if e.Report != nil {
		res.State = parser.StateInProvider
		if e.Report.Complete {
			res.State = parser.StateTerminated
		}
	}
	return res
}

// ReportCache stores parsed reports keyed by content hash.
type ReportCache struct {
	cache Cache
	keys  *KeyGenerator
	ttl   time.Duration
}

// NewReportCache wraps c. A zero ttl keeps entries until evicted.
func NewReportCache(c Cache, ttl time.Duration) *ReportCache {
	return &ReportCache{
		cache: c,
		keys:  NewKeyGenerator(""),
		ttl:   ttl,
	}
}

// Get returns the cached entry for contentHash. ok is false on a miss.
func (rc *ReportCache) Get(ctx context.Context, contentHash string) (entry *Entry, ok bool, err error) {
	data, err := rc.cache.Get(ctx, rc.keys.ReportKey(contentHash))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	entry = &Entry{}
	if err := cbor.Unmarshal(data, entry); err != nil {
		// undecodable entries are dropped and treated as a miss
		_ = rc.cache.Delete(ctx, rc.keys.ReportKey(contentHash))
		return nil, false, nil
	}
	return entry, true, nil
}

// Put stores entry under contentHash.
func (rc *ReportCache) Put(ctx context.Context, contentHash string, entry *Entry) error {
	data, err := cbor.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return rc.cache.Set(ctx, rc.keys.ReportKey(contentHash), data, rc.ttl)
}

// Purge drops every cached report, all parser versions.
func (rc *ReportCache) Purge(ctx context.Context) error {
	return rc.cache.DeleteByPattern(ctx, rc.keys.AllPattern())
}

// Metrics returns the underlying cache metrics.
func (rc *ReportCache) Metrics() *Metrics {
	return rc.cache.GetMetrics()
}

// Close closes the underlying cache.
func (rc *ReportCache) Close() error {
	return rc.cache.Close()
}
