package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	storemongo "github.com/storefront/store-api/internal/infrastructure/db/mongo"
)

// NewEnsureIndexesCmd creates the ensure-indexes subcommand.
func NewEnsureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes",
		Long: `Create the unique email and category name indexes, the product query
indexes and the audit TTL index. Existing indexes are left untouched.`,
		RunE: runEnsureIndexes,
	}
}

func runEnsureIndexes(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}

	client, db, err := connectMongo(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer disconnectMongo(client, log)

	cmd.Println("Ensuring indexes...")
	if err := storemongo.EnsureIndexes(ctx, db); err != nil {
		return oops.Code("INDEXES_FAILED").With("operation", "ensure indexes").Wrap(err)
	}
	cmd.Println("Indexes are in place")
	return nil
}
