// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ava-labs/dutchvm/auth"
	"github.com/ava-labs/dutchvm/crypto/ed25519"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage keys",
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new ED25519 key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := ed25519.GeneratePrivateKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		out, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		if out != "" {
			if err := ed25519.SaveKey(out, key); err != nil {
				return fmt.Errorf("failed to save key: %w", err)
			}
		}
		set, err := cmd.Flags().GetBool("set")
		if err != nil {
			return err
		}
		if set {
			if err := setConfigValue("key", key.Hex()); err != nil {
				return fmt.Errorf("failed to update config: %w", err)
			}
		}

		return printValue(cmd, keyCmdResponse{
			Address: auth.NewED25519Address(key.PublicKey()).String(),
			Path:    out,
		})
	},
}

var keySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a key in the CLI config",
	RunE: func(cmd *cobra.Command, _ []string) error {
		keyString, err := getConfigValue(cmd, "key", true)
		if err != nil {
			return err
		}
		key, err := privateKeyFromString(keyString)
		if err != nil {
			return fmt.Errorf("failed to decode key: %w", err)
		}
		if err := setConfigValue("key", key.Hex()); err != nil {
			return fmt.Errorf("failed to update config: %w", err)
		}
		return printValue(cmd, keyCmdResponse{
			Address: auth.NewED25519Address(key.PublicKey()).String(),
		})
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print current key address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		factory, err := getFactory(cmd)
		if err != nil {
			return err
		}
		return printValue(cmd, keyCmdResponse{
			Address: factory.Address().String(),
		})
	},
}

type keyCmdResponse struct {
	Address string `json:"address"`
	Path    string `json:"path,omitempty"`
}

func (r keyCmdResponse) String() string {
	if r.Path == "" {
		return r.Address
	}
	return fmt.Sprintf("%s (saved to %s)", r.Address, r.Path)
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyGenerateCmd, keySetCmd, addressCmd)

	keyGenerateCmd.Flags().String("out", "", "File to write the key to")
	keyGenerateCmd.Flags().Bool("set", false, "Store the key in the CLI config")
}
