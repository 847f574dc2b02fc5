package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports/clientcli"
)

var deleteRevision string

var deleteCmd = &cobra.Command{
	Use:   "delete <identifier> [identifier...]",
	Short: "Delete reports or a revision",
	Long: `Delete one or more reports with all their revisions. With --revision
only the selected revision of each report is removed.

Examples:
  cannedreports-cli delete 3f6c1b2e-...
  cannedreports-cli delete --revision -1 3f6c1b2e-...
  cannedreports-cli delete -q id1 id2 id3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVarP(&deleteRevision, "revision", "r", "", "delete only this revision (0, 1, ... or -1, -2, ...)")
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{
		Identifiers: args,
		Revision:    deleteRevision,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	// Return error if any deletes failed
	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}
