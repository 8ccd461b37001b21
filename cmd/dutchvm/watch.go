// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ava-labs/dutchvm/stream"
	"github.com/ava-labs/dutchvm/utils"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print purchases as they happen",
	RunE: func(cmd *cobra.Command, _ []string) error {
		endpoint, err := getConfigValue(cmd, "endpoint", true)
		if err != nil {
			return err
		}
		cli, err := stream.NewClient(endpoint)
		if err != nil {
			return err
		}
		defer cli.Close()

		utils.Outf("{{yellow}}watching purchases on %s{{/}}\n", endpoint)
		for {
			record, err := cli.ListenRecord()
			if err != nil {
				return err
			}
			utils.Outf("{{green}}%s{{/}}\n", formatRecord(record))
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
