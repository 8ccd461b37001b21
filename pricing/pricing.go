// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pricing

import (
	"fmt"

	smath "github.com/ava-labs/avalanchego/utils/math"
)

// IDs for pricing models
const (
	InvalidModelID uint8 = iota
	LinearDecayID
)

// Model prices one asset base unit at a point in time. Implementations are
// pure: the same [now] always yields the same price.
type Model interface {
	// Price returns the unit price at [now] (unix milliseconds).
	Price(now int64) uint64
	// Total returns [price] * [quantity] or [ErrOverflow].
	Total(price uint64, quantity uint64) (uint64, error)
}

type NewModel func(startPrice uint64, minPrice uint64, startTime int64, endTime int64) (Model, error)

var Models map[uint8]NewModel

func init() {
	Models = make(map[uint8]NewModel)

	// Append any additional pricing models here
	Models[LinearDecayID] = NewLinearDecay
}

// New constructs the model registered under [id].
func New(id uint8, startPrice uint64, minPrice uint64, startTime int64, endTime int64) (Model, error) {
	f, ok := Models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrModelDoesNotExist, id)
	}
	return f(startPrice, minPrice, startTime, endTime)
}

func total(price uint64, quantity uint64) (uint64, error) {
	t, err := smath.Mul(price, quantity)
	if err != nil {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, price, quantity)
	}
	return t, nil
}
