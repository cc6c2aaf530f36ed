package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/camdumpdb/internal/logging"
)

type BadgerCache struct {
	db      *badger.DB
	metrics *Metrics
	config  *BadgerConfig
	stopGC  chan struct{}
}

type BadgerConfig struct {
	Path             string
	InMemory         bool
	MaxMemoryMB      int
	ValueLogMaxMB    int
	CompactL0OnClose bool
	NumGoroutines    int
	GCInterval       time.Duration
	GCDiscardRatio   float64
}

func NewBadgerCache(config *BadgerConfig) (*BadgerCache, error) {
	if config.GCInterval == 0 {
		config.GCInterval = 10 * time.Minute
	}
	if config.GCDiscardRatio == 0 {
		config.GCDiscardRatio = 0.5
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Path)
	}

	if config.MaxMemoryMB > 0 {
		opts = opts.WithMemTableSize(int64(config.MaxMemoryMB) << 20)
	}
	if config.ValueLogMaxMB > 0 && !config.InMemory {
		opts = opts.WithValueLogFileSize(int64(config.ValueLogMaxMB) << 20)
	}
	opts = opts.WithCompactL0OnClose(config.CompactL0OnClose)
	if config.NumGoroutines > 0 {
		opts = opts.WithNumGoroutines(config.NumGoroutines)
	}

	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	cache := &BadgerCache{
		db:      db,
		metrics: &Metrics{},
		config:  config,
		stopGC:  make(chan struct{}),
	}

	// value log GC is not available in memory mode
	if !config.InMemory {
		go cache.runGC()
	}

	return cache, nil
}

func (bc *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := bc.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}

		if item.IsDeletedOrExpired() {
			return ErrNotFound
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, ErrNotFound) {
		atomic.AddUint64(&bc.metrics.Misses, 1)
	} else if err == nil {
		atomic.AddUint64(&bc.metrics.Hits, 1)
	}

	return value, err
}

func (bc *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Sets, 1)
	}

	return err
}

func (bc *BadgerCache) Delete(ctx context.Context, key string) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Deletes, 1)
	}

	return err
}

// DeleteByPattern removes every key matching "prefix*" (or the exact key).
func (bc *BadgerCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")

	var keysToDelete [][]byte

	err := bc.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			key := it.Item().KeyCopy(nil)
			if matchPattern(pattern, string(key)) {
				keysToDelete = append(keysToDelete, key)
			}
		}
		return nil
	})

	if err != nil {
		return err
	}

	err = bc.db.Update(func(txn *badger.Txn) error {
		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Deletes, uint64(len(keysToDelete)))
	}

	return err
}

func (bc *BadgerCache) GetMetrics() *Metrics {
	bc.updateSizeMetrics()
	return &Metrics{
		Hits:    atomic.LoadUint64(&bc.metrics.Hits),
		Misses:  atomic.LoadUint64(&bc.metrics.Misses),
		Sets:    atomic.LoadUint64(&bc.metrics.Sets),
		Deletes: atomic.LoadUint64(&bc.metrics.Deletes),
		Size:    atomic.LoadUint64(&bc.metrics.Size),
		Keys:    atomic.LoadUint64(&bc.metrics.Keys),
	}
}

func (bc *BadgerCache) Close() error {
	close(bc.stopGC)
	return bc.db.Close()
}

func (bc *BadgerCache) runGC() {
	ticker := time.NewTicker(bc.config.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bc.performGC()
		case <-bc.stopGC:
			return
		}
	}
}

func (bc *BadgerCache) performGC() {
	startTime := time.Now()
	cycles := 0
	log := logging.Component("cache")

	for {
		err := bc.db.RunValueLogGC(bc.config.GCDiscardRatio)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				if cycles > 0 {
					log.Debug("badger GC completed", "cycles", cycles, logging.Duration("gc", time.Since(startTime)))
				}
				break
			}
			log.Warn("badger GC failed", "cycles", cycles, logging.Err(err))
			break
		}
		cycles++
	}
}

func (bc *BadgerCache) updateSizeMetrics() {
	lsm, vlog := bc.db.Size()
	atomic.StoreUint64(&bc.metrics.Size, uint64(lsm+vlog))

	var keyCount uint64
	err := bc.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keyCount++
		}
		return nil
	})

	if err == nil {
		atomic.StoreUint64(&bc.metrics.Keys, keyCount)
	}
}

// matchPattern supports a single trailing wildcard.
func matchPattern(pattern, str string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(str, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == str
}
