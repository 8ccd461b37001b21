// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tstate

import (
	"context"
	"errors"
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dutchvm/state/statetest"
)

var (
	testKey  = []byte("key")
	testVal  = []byte("value")
	testVal2 = []byte("value2")
	key2     = []byte("key2")
)

func TestGetValue(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()

	db := statetest.NewInMemoryStore()
	require.NoError(db.Insert(ctx, testKey, testVal))

	ts := New(10)
	tsv := ts.NewView(db)
	val, err := tsv.GetValue(ctx, testKey)
	require.NoError(err)
	require.Equal(testVal, val)

	_, err = tsv.GetValue(ctx, key2)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestInsertNew(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()

	db := statetest.NewInMemoryStore()
	ts := New(10)
	tsv := ts.NewView(db)

	require.NoError(tsv.Insert(ctx, testKey, testVal))
	require.Equal(1, tsv.OpIndex())
	require.Equal(1, tsv.PendingChanges())

	val, err := tsv.GetValue(ctx, testKey)
	require.NoError(err)
	require.Equal(testVal, val)

	// Nothing leaks before commit
	_, err = db.GetValue(ctx, testKey)
	require.ErrorIs(err, database.ErrNotFound)
	require.Zero(ts.PendingChanges())
}

func TestRemove(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()

	db := statetest.NewInMemoryStore()
	require.NoError(db.Insert(ctx, testKey, testVal))
	ts := New(10)
	tsv := ts.NewView(db)

	// Removing a missing key is a no-op
	require.NoError(tsv.Remove(ctx, key2))
	require.Zero(tsv.OpIndex())

	require.NoError(tsv.Remove(ctx, testKey))
	require.Equal(1, tsv.OpIndex())
	_, err := tsv.GetValue(ctx, testKey)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestRollback(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()

	db := statetest.NewInMemoryStore()
	require.NoError(db.Insert(ctx, testKey, testVal))
	ts := New(10)
	tsv := ts.NewView(db)

	restorePoint := tsv.OpIndex()
	require.NoError(tsv.Insert(ctx, testKey, testVal2))
	require.NoError(tsv.Insert(ctx, key2, testVal))
	require.NoError(tsv.Remove(ctx, testKey))
	require.Equal(3, tsv.OpIndex())

	tsv.Rollback(ctx, restorePoint)
	require.Zero(tsv.OpIndex())
	require.Zero(tsv.PendingChanges())

	val, err := tsv.GetValue(ctx, testKey)
	require.NoError(err)
	require.Equal(testVal, val)
	_, err = tsv.GetValue(ctx, key2)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestRollbackPartial(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()

	ts := New(10)
	tsv := ts.NewView(statetest.NewInMemoryStore())

	require.NoError(tsv.Insert(ctx, testKey, testVal))
	restorePoint := tsv.OpIndex()
	require.NoError(tsv.Insert(ctx, testKey, testVal2))
	require.NoError(tsv.Remove(ctx, testKey))

	tsv.Rollback(ctx, restorePoint)
	val, err := tsv.GetValue(ctx, testKey)
	require.NoError(err)
	require.Equal(testVal, val)
	require.Equal(restorePoint, tsv.OpIndex())
}

func TestRollbackOverCommitted(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()

	ts := New(10)
	first := ts.NewView(statetest.NewInMemoryStore())
	require.NoError(first.Insert(ctx, testKey, testVal))
	first.Commit()

	second := ts.NewView(statetest.NewInMemoryStore())
	require.NoError(second.Remove(ctx, testKey))
	require.NoError(second.Insert(ctx, testKey, testVal2))
	second.Rollback(ctx, 0)

	val, err := second.GetValue(ctx, testKey)
	require.NoError(err)
	require.Equal(testVal, val)
}

func TestCommitAndFlush(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()

	db := statetest.NewInMemoryStore()
	require.NoError(db.Insert(ctx, key2, testVal))
	ts := New(10)
	tsv := ts.NewView(db)

	require.NoError(tsv.Insert(ctx, testKey, testVal))
	require.NoError(tsv.Remove(ctx, key2))
	tsv.Commit()
	require.Equal(2, ts.OpIndex())
	require.Equal(2, ts.PendingChanges())

	// A new view sees committed changes before they are flushed
	val, err := ts.NewView(db).GetValue(ctx, testKey)
	require.NoError(err)
	require.Equal(testVal, val)

	require.NoError(ts.Flush(ctx, db))
	require.Zero(ts.PendingChanges())
	require.Zero(ts.OpIndex())

	val, err = db.GetValue(ctx, testKey)
	require.NoError(err)
	require.Equal(testVal, val)
	_, err = db.GetValue(ctx, key2)
	require.ErrorIs(err, database.ErrNotFound)
}

type failingStore struct {
	*statetest.InMemoryStore
	err error
}

func (f *failingStore) Insert(context.Context, []byte, []byte) error {
	return f.err
}

func TestFlushFailureDiscardsChanges(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()

	errWrite := errors.New("write failed")
	db := &failingStore{InMemoryStore: statetest.NewInMemoryStore(), err: errWrite}
	ts := New(10)
	tsv := ts.NewView(db)
	require.NoError(tsv.Insert(ctx, testKey, testVal))
	tsv.Commit()

	require.ErrorIs(ts.Flush(ctx, db), errWrite)
	require.Zero(ts.PendingChanges())
	require.Zero(ts.OpIndex())

	// A later view no longer observes the failed change
	_, err := ts.NewView(db).GetValue(ctx, testKey)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestReset(t *testing.T) {
	require := require.New(t)
	ctx := context.TODO()

	db := statetest.NewInMemoryStore()
	ts := New(10)
	tsv := ts.NewView(db)
	require.NoError(tsv.Insert(ctx, testKey, testVal))
	tsv.Commit()
	require.Equal(1, ts.PendingChanges())

	ts.Reset()
	require.Zero(ts.PendingChanges())
	require.NoError(ts.Flush(ctx, db))
	require.Empty(db.Storage)
}
