package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports/clientcli"
)

var (
	getOutput string
	getStdout bool
)

var getCmd = &cobra.Command{
	Use:   "get <identifier> [revision]",
	Short: "Download a report revision",
	Long: `Download a report revision. Without a revision the current one is
fetched. The file is named after the report unless --output is given.
Relative revisions start with "-", so pass them after "--".

Examples:
  cannedreports-cli get 3f6c1b2e-...
  cannedreports-cli get 3f6c1b2e-... -- -1
  cannedreports-cli get 3f6c1b2e-... 0 -o first.csv
  cannedreports-cli get --stdout 3f6c1b2e-... | head`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

var infoCmd = &cobra.Command{
	Use:   "info <identifier> [revision]",
	Short: "Show report metadata",
	Long: `Show the metadata of a report revision without downloading it.

Examples:
  cannedreports-cli info 3f6c1b2e-...
  cannedreports-cli info --json 3f6c1b2e-... -- -2`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInfo,
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "output file path")
	getCmd.Flags().BoolVar(&getStdout, "stdout", false, "write to stdout")
}

func revisionArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

func runGet(cmd *cobra.Command, args []string) error {
	localPath := getOutput
	if getStdout {
		localPath = "-"
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, reader, err := client.Get(cmd.Context(), clientcli.GetOptions{
		Identifier: args[0],
		Revision:   revisionArg(args),
		LocalPath:  localPath,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if reader != nil {
		defer func() { _ = reader.Close() }()
		if _, err := io.Copy(os.Stdout, reader); err != nil {
			return err
		}
		// Metadata goes to stderr so stdout stays the report content
		if jsonOutput {
			return getFormatter().FormatGet(os.Stderr, result)
		}
		return nil
	}

	return getFormatter().FormatGet(os.Stdout, result)
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	report, err := client.Info(cmd.Context(), args[0], revisionArg(args))
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatReport(os.Stdout, "Report", report)
}
