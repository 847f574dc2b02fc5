package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/config"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge deleted revisions",
	Long: `Permanently remove soft-deleted revisions.

The sqlite and postgres stores only mark revisions as deleted. This command
removes the marked rows to reclaim space. Revision numbers of remaining
revisions are not affected.

The s3 and filesystem stores delete immediately; use a bucket lifecycle
rule to expire noncurrent S3 versions.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
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

	purger, ok := store.(cannedreports.Purger)
	if !ok {
		slog.Info("nothing to clean up, store deletes immediately", "store", cfg.Store.Type)
		return nil
	}

	slog.Info("starting cleanup", "store", cfg.Store.Type)

	purged, err := purger.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	slog.Info("cleanup complete", "revisions_purged", purged)
	return nil
}
