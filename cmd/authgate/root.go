// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authgate",
		Short: "ConectaSenior authentication gateway",
		Long: `The authentication gateway for the ConectaSenior platform.
It issues and validates bearer tokens, manages principal credentials,
and enforces role-based access to its administrative surface.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedAdminCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
