package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/config"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <identifier1> [identifier2] ...",
	Short: "Remove reports from the store",
	Long: `Delete reports directly from the configured store, bypassing the
HTTP server and role checks.

Without --revision the whole report is removed. With --revision only the
selected revision is removed; relative revisions count back from the
current one. The sqlite and postgres stores only mark rows as deleted,
run 'cannedreports cleanup' to reclaim space.

Examples:
  # Remove a report
  cannedreports remove 1b4e28ba-2fa1-11d2-883f-0016d3cca427

  # Remove the previous revision of a report
  cannedreports remove --revision=-1 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var (
	removeRevision string
	removeQuiet    bool
)

func init() {
	removeCmd.Flags().StringVarP(&removeRevision, "revision", "r", "", "remove only this revision (absolute index or negative offset)")
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-report output")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
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

	managerCfg := cfg.Manager()
	managerCfg.EnableAuthorization = false
	manager, err := cannedreports.NewReportsManager(store, nil, managerCfg)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	removed := 0
	notFound := 0

	for _, identifier := range args {
		deleteErr := removeReport(ctx, manager, identifier, removeRevision)
		if errors.Is(deleteErr, cannedreports.ErrNotFound) {
			notFound++
			if !removeQuiet {
				slog.Warn("not found", "identifier", identifier, "revision", removeRevision)
			}
			continue
		}
		if deleteErr != nil {
			return fmt.Errorf("remove %s: %w", identifier, deleteErr)
		}
		removed++
		if !removeQuiet {
			slog.Info("removed", "identifier", identifier, "revision", removeRevision)
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	return nil
}

func removeReport(ctx context.Context, manager *cannedreports.ReportsManager, identifier, revision string) error {
	req, err := cannedreports.NewCanonicalRequest(cannedreports.RequestFields{
		Method:                cannedreports.MethodDelete,
		Identifier:            identifier,
		RevisionSpecification: revision,
	})
	if err != nil {
		return err
	}

	resp := manager.HandleRequest(ctx, req)
	if resp.Result.IsSuccess() {
		return nil
	}
	if resp.Err != nil {
		return resp.Err
	}
	return errors.New(resp.Result.Description())
}
