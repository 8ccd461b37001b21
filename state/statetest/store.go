// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statetest

import (
	"context"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/dutchvm/state"
)

var (
	_ state.Mutable   = (*InMemoryStore)(nil)
	_ state.Immutable = (*InMemoryStore)(nil)
)

// InMemoryStore is an in-memory implementation of `state.Mutable`
type InMemoryStore struct {
	Storage map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		Storage: make(map[string][]byte),
	}
}

func (i *InMemoryStore) GetValue(_ context.Context, key []byte) ([]byte, error) {
	val, ok := i.Storage[string(key)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return val, nil
}

func (i *InMemoryStore) Insert(_ context.Context, key []byte, value []byte) error {
	i.Storage[string(key)] = value
	return nil
}

func (i *InMemoryStore) Remove(_ context.Context, key []byte) error {
	delete(i.Storage, string(key))
	return nil
}

// Snapshot returns a copy of the current contents, useful for asserting that
// a failed operation left state untouched.
func (i *InMemoryStore) Snapshot() map[string][]byte {
	s := make(map[string][]byte, len(i.Storage))
	for k, v := range i.Storage {
		s[k] = append([]byte(nil), v...)
	}
	return s
}
