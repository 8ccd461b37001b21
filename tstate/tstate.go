// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tstate

import (
	"context"
	"sync"

	"github.com/ava-labs/avalanchego/utils/maybe"

	"github.com/ava-labs/dutchvm/state"
)

// TState collects the changes of committed views until they are flushed to
// the underlying database.
type TState struct {
	l           sync.RWMutex
	changedKeys map[string]maybe.Maybe[[]byte]
	ops         int
}

// New returns a new instance of TState.
//
// [changedSize] is an estimate of the number of keys that will be changed.
func New(changedSize int) *TState {
	return &TState{
		changedKeys: make(map[string]maybe.Maybe[[]byte], changedSize),
	}
}

func (ts *TState) getChangedValue(_ context.Context, key string) ([]byte, bool, bool) {
	ts.l.RLock()
	defer ts.l.RUnlock()

	if v, ok := ts.changedKeys[key]; ok {
		if v.IsNothing() {
			return nil, true, false
		}
		return v.Value(), true, true
	}
	return nil, false, false
}

// OpIndex returns the number of operations committed to ts.
func (ts *TState) OpIndex() int {
	ts.l.RLock()
	defer ts.l.RUnlock()

	return ts.ops
}

// PendingChanges returns the number of keys waiting to be flushed.
func (ts *TState) PendingChanges() int {
	ts.l.RLock()
	defer ts.l.RUnlock()

	return len(ts.changedKeys)
}

// Reset discards every committed change that has not been flushed.
func (ts *TState) Reset() {
	ts.l.Lock()
	defer ts.l.Unlock()

	ts.reset()
}

// Assumes [ts.l] is held
func (ts *TState) reset() {
	ts.changedKeys = make(map[string]maybe.Maybe[[]byte], len(ts.changedKeys))
	ts.ops = 0
}

// Flush writes every committed change to [db] and resets ts. If [db]
// implements [state.Batcher] all changes are written in a single batch.
//
// Pending changes are discarded even if the write fails, so a failed flush
// is never replayed by a later one.
func (ts *TState) Flush(ctx context.Context, db state.Mutable) error {
	ts.l.Lock()
	defer ts.l.Unlock()
	defer ts.reset()

	var (
		target = db
		batch  state.Batch
	)
	if b, ok := db.(state.Batcher); ok {
		batch = b.NewBatch()
		target = batch
	}
	for k, v := range ts.changedKeys {
		var err error
		if v.IsNothing() {
			err = target.Remove(ctx, []byte(k))
		} else {
			err = target.Insert(ctx, []byte(k), v.Value())
		}
		if err != nil {
			return err
		}
	}
	if batch != nil {
		return batch.Write()
	}
	return nil
}
