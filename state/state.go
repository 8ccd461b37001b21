// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import "context"

// Immutable is a read-only key/value view. Missing keys return
// [database.ErrNotFound].
type Immutable interface {
	GetValue(ctx context.Context, key []byte) (value []byte, err error)
}

type Mutable interface {
	Immutable

	Insert(ctx context.Context, key []byte, value []byte) error
	Remove(ctx context.Context, key []byte) error
}

// Journaled is a [Mutable] that records every operation so a caller can undo
// everything it did after a known point.
type Journaled interface {
	Mutable

	// OpIndex returns the number of operations performed so far.
	OpIndex() int
	// Rollback reverts all operations after [restorePoint].
	Rollback(ctx context.Context, restorePoint int)
}

// Batch buffers writes until [Write] applies them atomically.
type Batch interface {
	Mutable

	Write() error
}

// Batcher is implemented by databases that can write several keys atomically.
type Batcher interface {
	NewBatch() Batch
}
