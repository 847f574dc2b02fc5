package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "cannedreports",
	Short:   "Versioned report store with role based access",
	Long: `cannedreports serves named, versioned reports over HTTP.

Reports are kept in an S3 bucket with versioning enabled, a local
directory, or a SQLite or PostgreSQL table. Every update appends a
revision, and revisions are addressed by absolute or relative index.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("store-type", "", "store type: s3, filesystem, sqlite, postgres (default: s3, env: CANNEDREPORTS_STORE_TYPE)")
	rootCmd.PersistentFlags().String("bucket", "", "S3 bucket (default: canned-reports, env: CANNEDREPORTS_STORE_BUCKET)")
	rootCmd.PersistentFlags().String("region", "", "S3 region (env: CANNEDREPORTS_STORE_REGION)")
	rootCmd.PersistentFlags().String("endpoint", "", "S3 compatible endpoint, e.g. MinIO (env: CANNEDREPORTS_STORE_ENDPOINT)")
	rootCmd.PersistentFlags().String("storage-path", "", "filesystem store directory (default: ./data, env: CANNEDREPORTS_STORE_PATH)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: CANNEDREPORTS_STORE_DSN)")
	rootCmd.PersistentFlags().String("db-table", "", "database table (default: canned_reports, env: CANNEDREPORTS_STORE_TABLE)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: CANNEDREPORTS_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
