// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/ava-labs/dutchvm/state"
)

var (
	_ state.Mutable = (*Database)(nil)
	_ state.Batcher = (*Database)(nil)
	_ state.Batch   = (*Batch)(nil)
)

type Config struct {
	CacheSize             int64 `json:"cacheSize"             yaml:"cacheSize"`
	BytesPerSync          int   `json:"bytesPerSync"          yaml:"bytesPerSync"`
	MaxOpenFiles          int   `json:"maxOpenFiles"          yaml:"maxOpenFiles"`
	ConcurrentCompactions int   `json:"concurrentCompactions" yaml:"concurrentCompactions"`
	Sync                  bool  `json:"sync"                  yaml:"sync"`
}

func NewDefaultConfig() Config {
	return Config{
		CacheSize:             256 * 1024 * 1024,
		BytesPerSync:          1024 * 1024,
		MaxOpenFiles:          1_024,
		ConcurrentCompactions: 1,
		Sync:                  true,
	}
}

// Database is a [state.Mutable] backed by pebble. Every write is applied
// immediately; use [Database.NewBatch] to write several keys atomically.
type Database struct {
	db      *pebble.DB
	metrics *metrics
	writes  *pebble.WriteOptions

	closing   chan struct{}
	closed    atomic.Bool
	closingWg sync.WaitGroup
}

func New(path string, cfg Config) (*Database, *prometheus.Registry, error) {
	registry, metrics, err := newMetrics()
	if err != nil {
		return nil, nil, err
	}
	d := &Database{
		metrics: metrics,
		writes:  pebble.NoSync,
		closing: make(chan struct{}),
	}
	if cfg.Sync {
		d.writes = pebble.Sync
	}
	opts := &pebble.Options{
		Cache:                    pebble.NewCache(cfg.CacheSize),
		BytesPerSync:             cfg.BytesPerSync,
		WALBytesPerSync:          cfg.BytesPerSync,
		Comparer:                 pebble.DefaultComparer,
		MaxOpenFiles:             cfg.MaxOpenFiles,
		MaxConcurrentCompactions: func() int { return cfg.ConcurrentCompactions },
	}
	opts.EventListener = &pebble.EventListener{
		CompactionBegin: d.onCompactionBegin,
		CompactionEnd:   d.onCompactionEnd,
		WriteStallBegin: d.onWriteStallBegin,
		WriteStallEnd:   d.onWriteStallEnd,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, nil, err
	}
	d.db = db

	d.closingWg.Add(1)
	go func() {
		defer d.closingWg.Done()
		d.collectMetrics()
	}()
	return d, registry, nil
}

// GetValue returns a copy of the value stored at [key] or
// [database.ErrNotFound].
func (db *Database) GetValue(_ context.Context, key []byte) ([]byte, error) {
	if db.closed.Load() {
		return nil, database.ErrClosed
	}
	start := time.Now()
	data, closer, err := db.db.Get(key)
	db.metrics.getLatency.Observe(float64(time.Since(start)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	v := slices.Clone(data)
	return v, closer.Close()
}

func (db *Database) Insert(_ context.Context, key []byte, value []byte) error {
	if db.closed.Load() {
		return database.ErrClosed
	}
	return db.db.Set(key, value, db.writes)
}

func (db *Database) Remove(_ context.Context, key []byte) error {
	if db.closed.Load() {
		return database.ErrClosed
	}
	return db.db.Delete(key, db.writes)
}

func (db *Database) NewBatch() state.Batch {
	return &Batch{db: db, b: db.db.NewBatch()}
}

func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return database.ErrClosed
	}
	close(db.closing)
	db.closingWg.Wait()
	return db.db.Close()
}

// Batch buffers writes until [Batch.Write]. Reads are served by the
// database and do not observe buffered writes.
type Batch struct {
	db *Database
	b  *pebble.Batch
}

func (b *Batch) GetValue(ctx context.Context, key []byte) ([]byte, error) {
	return b.db.GetValue(ctx, key)
}

func (b *Batch) Insert(_ context.Context, key []byte, value []byte) error {
	return b.b.Set(key, value, nil)
}

func (b *Batch) Remove(_ context.Context, key []byte) error {
	return b.b.Delete(key, nil)
}

func (b *Batch) Write() error {
	if b.db.closed.Load() {
		return database.ErrClosed
	}
	b.db.metrics.batchSize.Observe(float64(b.b.Count()))
	return b.b.Commit(b.db.writes)
}
