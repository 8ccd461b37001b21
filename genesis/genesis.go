// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package genesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
	"gopkg.in/yaml.v2"

	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/consts"
	"github.com/ava-labs/dutchvm/pricing"
	"github.com/ava-labs/dutchvm/state"
	"github.com/ava-labs/dutchvm/token"
)

// Allocation credits [Balance] of [Token] to [Address] in the built-in
// ledger.
type Allocation struct {
	Token   codec.Address `json:"token"   yaml:"token"`
	Address codec.Address `json:"address" yaml:"address"`
	Balance uint64        `json:"balance" yaml:"balance"`
}

// Approval lets the auction escrow spend [Amount] of [Token] on behalf of
// [Owner].
type Approval struct {
	Token  codec.Address `json:"token"  yaml:"token"`
	Owner  codec.Address `json:"owner"  yaml:"owner"`
	Amount uint64        `json:"amount" yaml:"amount"`
}

// StartAtCreation as the auction start time is replaced by the time the
// auction is created. [Parse] uses it when the start time is omitted.
const StartAtCreation int64 = -1

type Genesis struct {
	Auction auction.Config `json:"auction" yaml:"auction"`

	// DepositSupply mints the total supply of the asset token to the escrow.
	DepositSupply bool          `json:"depositSupply" yaml:"depositSupply"`
	Allocations   []*Allocation `json:"allocations"   yaml:"allocations"`
	Approvals     []*Approval   `json:"approvals"     yaml:"approvals"`
}

// Default returns a one hour auction owned by [owner] that starts at [now].
func Default(owner codec.Address, now int64) *Genesis {
	return &Genesis{
		Auction: auction.Config{
			AssetToken:   codec.CreateAddress(consts.TokenID, ids.ID{'a', 's', 's', 'e', 't'}),
			PaymentToken: codec.CreateAddress(consts.TokenID, ids.ID{'p', 'a', 'y'}),
			Owner:        owner,
			PricingModel: pricing.LinearDecayID,
			StartPrice:   1_000,
			MinPrice:     100,
			StartTime:    now,
			EndTime:      now + 60*60*1_000,
			TotalSupply:  1_000_000,
		},
		DepositSupply: true,
	}
}

// Parse decodes JSON or YAML genesis bytes.
func Parse(b []byte) (*Genesis, error) {
	g := &Genesis{
		Auction:       auction.Config{StartTime: StartAtCreation},
		DepositSupply: true,
	}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, g); err != nil {
			return nil, err
		}
		return g, nil
	}
	if err := yaml.UnmarshalStrict(trimmed, g); err != nil {
		return nil, err
	}
	return g, nil
}

func Load(path string) (*Genesis, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Config returns the auction config, using [now] as the start time if it is
// [StartAtCreation], and verifies it.
func (g *Genesis) Config(now int64) (*auction.Config, error) {
	c := g.Auction
	if c.StartTime == StartAtCreation {
		c.StartTime = now
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}
	return &c, nil
}

// InitializeState writes the auction and the ledger balances to [mu].
func (g *Genesis) InitializeState(
	ctx context.Context,
	tracer trace.Tracer,
	mu state.Mutable,
	engine *auction.Engine,
	ledger *token.Ledger,
) error {
	ctx, span := tracer.Start(ctx, "Genesis.InitializeState")
	defer span.End()

	if err := engine.Initialize(ctx, mu); err != nil {
		return err
	}
	config := engine.Config()
	if g.DepositSupply {
		if err := ledger.Mint(ctx, mu, config.AssetToken, engine.Escrow(), config.TotalSupply); err != nil {
			return fmt.Errorf("%w: could not deposit supply", err)
		}
	}
	for _, alloc := range g.Allocations {
		if err := ledger.Mint(ctx, mu, alloc.Token, alloc.Address, alloc.Balance); err != nil {
			return fmt.Errorf("%w: addr=%s, bal=%d", err, alloc.Address, alloc.Balance)
		}
	}
	for _, approval := range g.Approvals {
		if err := ledger.Approve(ctx, mu, approval.Token, approval.Owner, engine.Escrow(), approval.Amount); err != nil {
			return fmt.Errorf("%w: owner=%s, amount=%d", err, approval.Owner, approval.Amount)
		}
	}
	return nil
}

// Marshal encodes the genesis as indented JSON.
func (g *Genesis) Marshal() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}
