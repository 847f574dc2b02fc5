package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the report collection",
	Long: `Create the collection that holds reports, if it does not exist yet:
  - s3:         create the bucket and enable versioning
  - filesystem: create the storage directory
  - sqlite, postgres: create and validate the reports table

serve does the same on startup. Run init ahead of time when the server
runs with credentials that cannot create buckets or tables.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	keys, err := store.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}

	slog.Info("initialization complete", "store", cfg.Store.Type, "reports", len(keys))
	return nil
}
