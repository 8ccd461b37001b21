// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package archive

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/consts"
	"github.com/ava-labs/dutchvm/event"
	"github.com/ava-labs/dutchvm/state"
)

const (
	latestPrefix = 0x0
	recordPrefix = 0x1
)

var (
	_ event.Subscription[*auction.PurchaseRecord] = (*Archive)(nil)

	latestKey = []byte{latestPrefix}

	ErrRecordNotFound = errors.New("record not found")
	ErrOutOfOrder     = errors.New("record out of order")
)

type Config struct {
	Enabled   bool `json:"enabled"   yaml:"enabled"`
	CacheSize int  `json:"cacheSize" yaml:"cacheSize"`
}

func NewDefaultConfig() Config {
	return Config{
		Enabled:   true,
		CacheSize: 1_024,
	}
}

// Archive persists every accepted purchase record by sequence number.
type Archive struct {
	db     state.Mutable
	recent *cache.LRU[uint64, *auction.PurchaseRecord]

	l      sync.RWMutex
	latest uint64
}

func New(ctx context.Context, db state.Mutable, cfg Config) (*Archive, error) {
	latest, err := getSequence(ctx, db, latestKey)
	if err != nil {
		return nil, err
	}
	return &Archive{
		db:     db,
		recent: &cache.LRU[uint64, *auction.PurchaseRecord]{Size: cfg.CacheSize},
		latest: latest,
	}, nil
}

func recordKey(seq uint64) []byte {
	k := make([]byte, 1+consts.Uint64Len)
	k[0] = recordPrefix
	binary.BigEndian.PutUint64(k[1:], seq)
	return k
}

// Accept stores [r]. Sequences must increase and each sequence is stored
// once. A record that could not be stored leaves a gap that later records
// skip over.
func (a *Archive) Accept(ctx context.Context, r *auction.PurchaseRecord) error {
	a.l.Lock()
	defer a.l.Unlock()

	if r.Sequence <= a.latest {
		return fmt.Errorf("%w: expected more than %d but got %d", ErrOutOfOrder, a.latest, r.Sequence)
	}
	b, err := r.Marshal()
	if err != nil {
		return err
	}

	var (
		target = a.db
		batch  state.Batch
	)
	if batcher, ok := a.db.(state.Batcher); ok {
		batch = batcher.NewBatch()
		target = batch
	}
	if err := target.Insert(ctx, recordKey(r.Sequence), b); err != nil {
		return err
	}
	if err := target.Insert(ctx, latestKey, binary.BigEndian.AppendUint64(nil, r.Sequence)); err != nil {
		return err
	}
	if batch != nil {
		if err := batch.Write(); err != nil {
			return err
		}
	}

	a.latest = r.Sequence
	a.recent.Put(r.Sequence, r)
	return nil
}

// Close closes the underlying database if it can be closed.
func (a *Archive) Close() error {
	if c, ok := a.db.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Latest returns the highest stored sequence or 0 if nothing was stored.
func (a *Archive) Latest() uint64 {
	a.l.RLock()
	defer a.l.RUnlock()

	return a.latest
}

func (a *Archive) Get(ctx context.Context, seq uint64) (*auction.PurchaseRecord, error) {
	if r, ok := a.recent.Get(seq); ok {
		return r, nil
	}
	v, err := a.db.GetValue(ctx, recordKey(seq))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrRecordNotFound, seq)
	}
	if err != nil {
		return nil, err
	}
	r, err := auction.UnmarshalPurchaseRecord(v)
	if err != nil {
		return nil, err
	}
	a.recent.Put(seq, r)
	return r, nil
}

// Range returns up to [limit] records starting at sequence [from]. Missing
// sequences are skipped.
func (a *Archive) Range(ctx context.Context, from uint64, limit int) ([]*auction.PurchaseRecord, error) {
	if from == 0 {
		from = 1
	}
	latest := a.Latest()
	records := make([]*auction.PurchaseRecord, 0, limit)
	for seq := from; seq <= latest && len(records) < limit; seq++ {
		r, err := a.Get(ctx, seq)
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func getSequence(ctx context.Context, im state.Immutable, key []byte) (uint64, error) {
	v, err := im.GetValue(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != consts.Uint64Len {
		return 0, fmt.Errorf("invalid sequence length %d", len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}
