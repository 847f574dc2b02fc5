package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports/config"
)

// loadConfig resolves the configuration for the invoked command, installs
// the logger and stores the config in the command context.
func loadConfig(cmd *cobra.Command, _ []string) error {
	files, err := cmd.Flags().GetStringSlice("config")
	if err != nil {
		return fmt.Errorf("read config flag: %w", err)
	}

	cfg, err := config.Load(files, cmd.Flags())
	if err != nil {
		return err
	}

	setupLogging(cfg)
	cmd.SetContext(config.WithContext(cmd.Context(), cfg))
	return nil
}
