package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports/clientcli"
)

var (
	contentName        string
	contentDescription string
	contentType        string
	contentBase64      bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>",
	Short: "Create a new report",
	Long: `Create a new report from a local file ("-" reads stdin).

The server assigns the identifier, which is printed on success. The report
name defaults to the file name.

Examples:
  cannedreports-cli upload ./sales.csv
  cannedreports-cli upload --name "Q3 sales" --description "by region" ./q3.csv
  cannedreports-cli upload --base64 --content-type application/pdf ./report.pdf
  id=$(cannedreports-cli upload -q ./sales.csv)`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var updateCmd = &cobra.Command{
	Use:   "update <identifier> <local-path>",
	Short: "Append a revision to a report",
	Long: `Append a new revision to an existing report.

Name, description and content type not given are carried forward from the
current revision.

Examples:
  cannedreports-cli update 3f6c1b2e-... ./sales-v2.csv
  cannedreports-cli update --description "corrected totals" 3f6c1b2e-... ./sales.csv`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

func init() {
	for _, cmd := range []*cobra.Command{uploadCmd, updateCmd} {
		cmd.Flags().StringVarP(&contentName, "name", "n", "", "report name")
		cmd.Flags().StringVarP(&contentDescription, "description", "d", "", "report description")
		cmd.Flags().StringVar(&contentType, "content-type", "", "override content-type")
		cmd.Flags().BoolVar(&contentBase64, "base64", false, "send the content base64 encoded")
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	report, err := client.Upload(cmd.Context(), clientcli.UploadOptions{
		LocalPath:   args[0],
		Name:        contentName,
		Description: contentDescription,
		ContentType: contentType,
		Base64:      contentBase64,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatReport(os.Stdout, "Uploaded", report)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	report, err := client.Update(cmd.Context(), clientcli.UpdateOptions{
		Identifier:  args[0],
		LocalPath:   args[1],
		Name:        contentName,
		Description: contentDescription,
		ContentType: contentType,
		Base64:      contentBase64,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatReport(os.Stdout, "Updated", report)
}
