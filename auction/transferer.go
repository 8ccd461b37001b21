// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"context"

	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/state"
)

//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE} -destination=mock_transferer.go . Transferer

// Transferer moves fungible tokens between accounts. A call either moves the
// full [amount] and returns nil or returns an error and moves nothing.
//
// A Transferer may call back into the [Engine] that invoked it. Such calls
// are rejected with [ErrReentrantCall].
type Transferer interface {
	Transfer(
		ctx context.Context,
		mu state.Mutable,
		token codec.Address,
		from codec.Address,
		to codec.Address,
		amount uint64,
	) error
}
