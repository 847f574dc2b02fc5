package main

import (
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports",
	Long: `List every report with the metadata of its current revision.

Examples:
  cannedreports-cli list
  cannedreports-cli list --json | jq '.reports[].name'
  cannedreports-cli list -q`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	reports, err := client.List(cmd.Context())
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatList(os.Stdout, reports)
}
