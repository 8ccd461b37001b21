// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"

	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/auth"
	"github.com/ava-labs/dutchvm/codec"
)

type Controller interface {
	Logger() logging.Logger
	Tracer() trace.Tracer

	AuctionID() ids.ID
	Config() *auction.Config
	Escrow() codec.Address

	Price() uint64
	Status(ctx context.Context) (*auction.Status, error)
	Balance(ctx context.Context, token codec.Address, owner codec.Address) (uint64, error)
	Allowance(ctx context.Context, token codec.Address, owner codec.Address, spender codec.Address) (uint64, error)
	Records(ctx context.Context, from uint64, limit int) ([]*auction.PurchaseRecord, error)

	BuySigned(ctx context.Context, req *auth.SignedRequest) (*auction.PurchaseRecord, error)
	HaltSigned(ctx context.Context, req *auth.SignedRequest) (bool, error)
}
