package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the storeapi CLI. Without a
// subcommand it serves the API.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storeapi",
		Short: "Store API - accounts, authentication and catalog",
		Long: `storeapi serves the store REST API backed by MongoDB and Redis.
Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCreateAdminCmd())
	cmd.AddCommand(NewEnsureIndexesCmd())

	return cmd
}
