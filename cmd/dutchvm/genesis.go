// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ava-labs/avalanchego/utils/perms"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/genesis"
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Manage auction genesis files",
}

var genesisGenerateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Write a genesis file (.json, .yaml or .yml)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		ownerString, err := flags.GetString("owner")
		if err != nil {
			return err
		}
		var owner codec.Address
		if ownerString == "" {
			factory, err := getFactory(cmd)
			if err != nil {
				return fmt.Errorf("owner not set: %w", err)
			}
			owner = factory.Address()
		} else {
			owner, err = codec.ParseAddress(ownerString)
			if err != nil {
				return fmt.Errorf("failed to parse owner: %w", err)
			}
		}

		g := genesis.Default(owner, 0)
		if g.Auction.StartPrice, err = flags.GetUint64("start-price"); err != nil {
			return err
		}
		if g.Auction.MinPrice, err = flags.GetUint64("min-price"); err != nil {
			return err
		}
		if g.Auction.TotalSupply, err = flags.GetUint64("supply"); err != nil {
			return err
		}
		if g.Auction.StartTime, err = flags.GetInt64("start"); err != nil {
			return err
		}
		duration, err := flags.GetDuration("duration")
		if err != nil {
			return err
		}
		start := g.Auction.StartTime
		if start == genesis.StartAtCreation {
			start = time.Now().UnixMilli()
		}
		g.Auction.EndTime = start + duration.Milliseconds()
		for flag, addr := range map[string]*codec.Address{
			"asset":   &g.Auction.AssetToken,
			"payment": &g.Auction.PaymentToken,
		} {
			s, err := flags.GetString(flag)
			if err != nil {
				return err
			}
			if s == "" {
				continue
			}
			if *addr, err = codec.ParseAddress(s); err != nil {
				return fmt.Errorf("failed to parse %s: %w", flag, err)
			}
		}
		if _, err := g.Config(start); err != nil {
			return err
		}

		path := args[0]
		var b []byte
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			b, err = yaml.Marshal(g)
		default:
			b, err = g.Marshal()
		}
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, b, perms.ReadWrite); err != nil {
			return err
		}
		return printValue(cmd, genesisCmdResponse{Path: path, Owner: owner})
	},
}

type genesisCmdResponse struct {
	Path  string        `json:"path"`
	Owner codec.Address `json:"owner"`
}

func (r genesisCmdResponse) String() string {
	return fmt.Sprintf("wrote genesis owned by %s to %s", r.Owner, r.Path)
}

func init() {
	rootCmd.AddCommand(genesisCmd)
	genesisCmd.AddCommand(genesisGenerateCmd)

	flags := genesisGenerateCmd.Flags()
	flags.String("owner", "", "Owner address (defaults to the configured key)")
	flags.String("asset", "", "Asset token address")
	flags.String("payment", "", "Payment token address")
	flags.Uint64("start-price", 1_000, "Unit price at the start")
	flags.Uint64("min-price", 100, "Unit price floor")
	flags.Uint64("supply", 1_000_000, "Asset base units for sale")
	flags.Int64("start", genesis.StartAtCreation, "Start time in unix ms (-1 starts when the node creates the auction)")
	flags.Duration("duration", time.Hour, "Time from start until the auction ends")
}
