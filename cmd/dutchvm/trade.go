// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/auth"
)

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy asset units at the current price",
	RunE: func(cmd *cobra.Command, _ []string) error {
		quantity, err := cmd.Flags().GetUint64("quantity")
		if err != nil {
			return err
		}
		if quantity == 0 {
			return errors.New("quantity must be positive")
		}
		maxTotal, err := cmd.Flags().GetUint64("max-total")
		if err != nil {
			return err
		}
		factory, err := getFactory(cmd)
		if err != nil {
			return err
		}
		cli, err := getClient(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		auctionID, _, _, err := cli.Genesis(ctx)
		if err != nil {
			return err
		}
		req, err := factory.SignRequest(auth.NewBuyRequest(auctionID, quantity, maxTotal, time.Now().UnixMilli()))
		if err != nil {
			return fmt.Errorf("failed to sign request: %w", err)
		}
		record, err := cli.Buy(ctx, req)
		if err != nil {
			return err
		}
		return printValue(cmd, buyCmdResponse{record})
	},
}

type buyCmdResponse struct {
	*auction.PurchaseRecord
}

func (r buyCmdResponse) String() string {
	return formatRecord(r.PurchaseRecord)
}

var haltCmd = &cobra.Command{
	Use:   "halt",
	Short: "Permanently stop the auction (owner only)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		factory, err := getFactory(cmd)
		if err != nil {
			return err
		}
		cli, err := getClient(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		auctionID, _, _, err := cli.Genesis(ctx)
		if err != nil {
			return err
		}
		req, err := factory.SignRequest(auth.NewHaltRequest(auctionID, time.Now().UnixMilli()))
		if err != nil {
			return fmt.Errorf("failed to sign request: %w", err)
		}
		halted, err := cli.Halt(ctx, req)
		if err != nil {
			return err
		}
		return printValue(cmd, haltCmdResponse{Halted: halted})
	},
}

type haltCmdResponse struct {
	Halted bool `json:"halted"`
}

func (r haltCmdResponse) String() string {
	if r.Halted {
		return "auction halted"
	}
	return "auction was already halted"
}

func init() {
	rootCmd.AddCommand(buyCmd, haltCmd)

	buyCmd.Flags().Uint64("quantity", 0, "Asset base units to buy")
	buyCmd.Flags().Uint64("max-total", 0, "Reject the purchase if it costs more (0 disables)")
	_ = buyCmd.MarkFlagRequired("quantity")
}
