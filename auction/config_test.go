// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/consts"
	"github.com/ava-labs/dutchvm/pricing"
)

func TestConfigVerify(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:    "missing owner",
			modify:  func(c *Config) { c.Owner = codec.EmptyAddress },
			wantErr: ErrMissingOwner,
		},
		{
			name:    "identical tokens",
			modify:  func(c *Config) { c.PaymentToken = c.AssetToken },
			wantErr: ErrIdenticalTokens,
		},
		{
			name:    "start below floor",
			modify:  func(c *Config) { c.StartPrice = c.MinPrice - 1 },
			wantErr: ErrPriceBelowFloor,
		},
		{
			name:    "end equals start",
			modify:  func(c *Config) { c.EndTime = c.StartTime },
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "end before start",
			modify:  func(c *Config) { c.EndTime = c.StartTime - 1 },
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "negative start",
			modify:  func(c *Config) { c.StartTime = -1 },
			wantErr: ErrNegativeStart,
		},
		{
			name:    "zero supply",
			modify:  func(c *Config) { c.TotalSupply = 0 },
			wantErr: ErrZeroSupply,
		},
		{
			name:    "unknown pricing model",
			modify:  func(c *Config) { c.PricingModel = pricing.InvalidModelID },
			wantErr: pricing.ErrModelDoesNotExist,
		},
		{
			name: "flat price",
			modify: func(c *Config) {
				c.MinPrice = c.StartPrice
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			c := testConfig()
			tt.modify(c)
			err := c.Verify()
			require.ErrorIs(err, tt.wantErr)
			if tt.wantErr != nil {
				require.ErrorIs(err, ErrInvalidConfig)
			}
		})
	}
}

func TestConfigEncoding(t *testing.T) {
	require := require.New(t)

	c := testConfig()
	b, err := c.Marshal()
	require.NoError(err)
	decoded, err := UnmarshalConfig(b)
	require.NoError(err)
	require.Equal(c, decoded)

	j, err := json.Marshal(c)
	require.NoError(err)
	require.Contains(string(j), owner.String())
	var fromJSON Config
	require.NoError(json.Unmarshal(j, &fromJSON))
	require.Equal(c, &fromJSON)
}

func TestConfigEscrow(t *testing.T) {
	require := require.New(t)

	c := testConfig()
	escrow, err := c.Escrow()
	require.NoError(err)
	require.Equal(consts.EscrowID, escrow.TypeID())

	again, err := testConfig().Escrow()
	require.NoError(err)
	require.Equal(escrow, again)

	other := testConfig()
	other.TotalSupply++
	otherEscrow, err := other.Escrow()
	require.NoError(err)
	require.NotEqual(escrow, otherEscrow)
}
