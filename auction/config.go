// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/near/borsh-go"

	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/consts"
	"github.com/ava-labs/dutchvm/pricing"
)

// Config is fixed when the auction is created and never changes after.
//
// Prices are in payment base units per asset base unit. Times are unix
// milliseconds.
type Config struct {
	AssetToken   codec.Address `json:"assetToken"   yaml:"assetToken"`
	PaymentToken codec.Address `json:"paymentToken" yaml:"paymentToken"`
	Owner        codec.Address `json:"owner"        yaml:"owner"`

	PricingModel uint8  `json:"pricingModel" yaml:"pricingModel"`
	StartPrice   uint64 `json:"startPrice"   yaml:"startPrice"`
	MinPrice     uint64 `json:"minPrice"     yaml:"minPrice"`
	StartTime    int64  `json:"startTime"    yaml:"startTime"`
	EndTime      int64  `json:"endTime"      yaml:"endTime"`
	TotalSupply  uint64 `json:"totalSupply"  yaml:"totalSupply"`
}

// Verify returns an error wrapping [ErrInvalidConfig] and the violated
// constraint, or nil.
func (c *Config) Verify() error {
	var err error
	switch {
	case c.Owner == codec.EmptyAddress:
		err = ErrMissingOwner
	case c.AssetToken == c.PaymentToken:
		err = ErrIdenticalTokens
	case c.StartPrice < c.MinPrice:
		err = fmt.Errorf("%w: start=%d min=%d", ErrPriceBelowFloor, c.StartPrice, c.MinPrice)
	case c.StartTime < 0:
		err = fmt.Errorf("%w: %d", ErrNegativeStart, c.StartTime)
	case c.EndTime <= c.StartTime:
		err = fmt.Errorf("%w: start=%d end=%d", ErrInvalidTimeRange, c.StartTime, c.EndTime)
	case c.TotalSupply == 0:
		err = ErrZeroSupply
	default:
		_, err = c.Model()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Model builds the pricing model described by c.
func (c *Config) Model() (pricing.Model, error) {
	return pricing.New(c.PricingModel, c.StartPrice, c.MinPrice, c.StartTime, c.EndTime)
}

func (c *Config) Marshal() ([]byte, error) {
	return borsh.Serialize(*c)
}

func UnmarshalConfig(b []byte) (*Config, error) {
	var c Config
	if err := borsh.Deserialize(&c, b); err != nil {
		return nil, err
	}
	return &c, nil
}

// ID is the hash of the encoded config.
func (c *Config) ID() (ids.ID, error) {
	b, err := c.Marshal()
	if err != nil {
		return ids.Empty, err
	}
	return hashing.ComputeHash256Array(b), nil
}

// Escrow returns the account holding the unsold supply and the account
// buyers approve to spend their payment.
func (c *Config) Escrow() (codec.Address, error) {
	id, err := c.ID()
	if err != nil {
		return codec.EmptyAddress, err
	}
	return codec.CreateAddress(consts.EscrowID, id), nil
}
