// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"strings"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/spf13/cobra"

	"github.com/ava-labs/dutchvm/auction"
	"github.com/ava-labs/dutchvm/codec"
	"github.com/ava-labs/dutchvm/utils"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the auction configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli, err := getClient(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		auctionID, escrow, config, err := cli.Genesis(ctx)
		if err != nil {
			return err
		}
		return printValue(cmd, infoCmdResponse{
			AuctionID: auctionID,
			Escrow:    escrow,
			Config:    config,
		})
	},
}

type infoCmdResponse struct {
	AuctionID ids.ID          `json:"auctionId"`
	Escrow    codec.Address   `json:"escrow"`
	Config    *auction.Config `json:"config"`
}

func (r infoCmdResponse) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "auction:  %s\n", r.AuctionID)
	fmt.Fprintf(&b, "owner:    %s\n", r.Config.Owner)
	fmt.Fprintf(&b, "escrow:   %s\n", r.Escrow)
	fmt.Fprintf(&b, "asset:    %s\n", r.Config.AssetToken)
	fmt.Fprintf(&b, "payment:  %s\n", r.Config.PaymentToken)
	fmt.Fprintf(&b, "price:    %d -> %d\n", r.Config.StartPrice, r.Config.MinPrice)
	fmt.Fprintf(&b, "start:    %s\n", utils.FormatMilli(r.Config.StartTime))
	fmt.Fprintf(&b, "end:      %s\n", utils.FormatMilli(r.Config.EndTime))
	fmt.Fprintf(&b, "supply:   %d", r.Config.TotalSupply)
	return b.String()
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Print the current unit price",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli, err := getClient(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		price, err := cli.Price(ctx)
		if err != nil {
			return err
		}
		return printValue(cmd, priceCmdResponse{Price: price})
	},
}

type priceCmdResponse struct {
	Price uint64 `json:"price"`
}

func (r priceCmdResponse) String() string {
	return fmt.Sprintf("%d", r.Price)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the auction status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli, err := getClient(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		status, err := cli.Status(ctx)
		if err != nil {
			return err
		}
		return printValue(cmd, statusCmdResponse{status})
	},
}

type statusCmdResponse struct {
	*auction.Status
}

func (r statusCmdResponse) String() string {
	return fmt.Sprintf(
		"price=%d remaining=%d halted=%t ended=%t soldOut=%t",
		r.Price,
		r.Remaining,
		r.Halted,
		r.Ended,
		r.SoldOut,
	)
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print a token balance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		token, addr, err := tokenAndAddress(cmd)
		if err != nil {
			return err
		}
		cli, err := getClient(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		balance, err := cli.Balance(ctx, token, addr)
		if err != nil {
			return err
		}
		return printValue(cmd, amountCmdResponse{Amount: balance})
	},
}

var allowanceCmd = &cobra.Command{
	Use:   "allowance",
	Short: "Print how much the escrow may spend for an address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		token, addr, err := tokenAndAddress(cmd)
		if err != nil {
			return err
		}
		cli, err := getClient(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		_, escrow, _, err := cli.Genesis(ctx)
		if err != nil {
			return err
		}
		allowance, err := cli.Allowance(ctx, token, addr, escrow)
		if err != nil {
			return err
		}
		return printValue(cmd, amountCmdResponse{Amount: allowance})
	},
}

type amountCmdResponse struct {
	Amount uint64 `json:"amount"`
}

func (r amountCmdResponse) String() string {
	return fmt.Sprintf("%d", r.Amount)
}

// tokenAndAddress reads the --token and --address flags. The address
// defaults to the configured key.
func tokenAndAddress(cmd *cobra.Command) (codec.Address, codec.Address, error) {
	tokenString, err := cmd.Flags().GetString("token")
	if err != nil {
		return codec.EmptyAddress, codec.EmptyAddress, err
	}
	token, err := codec.ParseAddress(tokenString)
	if err != nil {
		return codec.EmptyAddress, codec.EmptyAddress, fmt.Errorf("failed to parse token: %w", err)
	}
	addrString, err := cmd.Flags().GetString("address")
	if err != nil {
		return codec.EmptyAddress, codec.EmptyAddress, err
	}
	if addrString == "" {
		factory, err := getFactory(cmd)
		if err != nil {
			return codec.EmptyAddress, codec.EmptyAddress, err
		}
		return token, factory.Address(), nil
	}
	addr, err := codec.ParseAddress(addrString)
	if err != nil {
		return codec.EmptyAddress, codec.EmptyAddress, fmt.Errorf("failed to parse address: %w", err)
	}
	return token, addr, nil
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List archived purchases",
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, err := cmd.Flags().GetUint64("from")
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		cli, err := getClient(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		records, err := cli.Records(ctx, from, limit)
		if err != nil {
			return err
		}
		return printValue(cmd, recordsCmdResponse{Records: records})
	},
}

type recordsCmdResponse struct {
	Records []*auction.PurchaseRecord `json:"records"`
}

func (r recordsCmdResponse) String() string {
	lines := make([]string, 0, len(r.Records))
	for _, record := range r.Records {
		lines = append(lines, formatRecord(record))
	}
	return strings.Join(lines, "\n")
}

func formatRecord(r *auction.PurchaseRecord) string {
	return fmt.Sprintf(
		"#%d %s bought %d at %d (total %d) on %s",
		r.Sequence,
		r.Buyer,
		r.Quantity,
		r.UnitPrice,
		r.Total,
		utils.FormatMilli(r.Timestamp),
	)
}

func init() {
	rootCmd.AddCommand(infoCmd, priceCmd, statusCmd, balanceCmd, allowanceCmd, recordsCmd)

	for _, cmd := range []*cobra.Command{balanceCmd, allowanceCmd} {
		cmd.Flags().String("token", "", "Token address")
		cmd.Flags().String("address", "", "Account address (defaults to the configured key)")
		_ = cmd.MarkFlagRequired("token")
	}

	recordsCmd.Flags().Uint64("from", 1, "First sequence number")
	recordsCmd.Flags().Int("limit", 100, "Maximum number of records")
}
