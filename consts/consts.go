// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consts

const (
	// Name is used to register the JSON-RPC service and to namespace metrics.
	Name = "dutchvm"

	IDLen     = 32
	BoolLen   = 1
	Uint16Len = 2
	Uint64Len = 8
	Int64Len  = 8
	MaxUint64 = ^uint64(0)
)

// Address type IDs. The first byte of every address tells how the remaining
// 32 bytes were derived.
const (
	ED25519ID uint8 = iota
	EscrowID
	TokenID
)

// Action IDs are mixed into signed request digests so a signature for one
// action can never be replayed as another.
const (
	BuyID uint8 = iota
	HaltID
)
