package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports/clientcli"
)

var (
	version = "dev"

	cfgFile    string
	profile    string
	endpoint   string
	token      string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "cannedreports-cli",
	Version: version,
	Short:   "Client for the canned reports server",
	Long: `cannedreports-cli - client for the canned reports server

Reports are versioned documents. Every upload creates a report with a new
identifier and every update appends a revision. Revisions are selected by
absolute index (0, 1, 2, ...) or relative to the current one (-1, -2, ...).

Settings are resolved from the profile file, then the environment
(CANNEDREPORTS_ENDPOINT, CANNEDREPORTS_TOKEN, CANNEDREPORTS_PROFILE),
then flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.cannedreports/config.yaml, env: CANNEDREPORTS_CLI_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile name (default: the default profile)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:5708)")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", "", "bearer token carrying the role claim")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		_ = getFormatter().FormatError(os.Stderr, err)
		os.Exit(1)
	}
}

// getConfigPath returns the profile file from the flag, the environment or
// the default location.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := clientcli.ConfigPathFromEnv(); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges config from the profile file, env vars, and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	explicit := cfgFile != "" || clientcli.ConfigPathFromEnv() != ""
	name := profile
	if name == "" {
		name = clientcli.ProfileFromEnv()
	}

	if configPath := getConfigPath(); configPath != "" {
		file, err := clientcli.LoadConfigFile(configPath)
		switch {
		case err == nil:
			p, profileErr := file.GetProfile(name)
			if profileErr != nil && (name != "" || !errors.Is(profileErr, clientcli.ErrNoProfiles)) {
				return nil, profileErr
			}
			if p != nil {
				configs = append(configs, clientcli.ConfigFromProfile(p))
			}
		case explicit || name != "":
			// Only error if the user asked for a file or profile
			return nil, err
		}
	}

	configs = append(configs,
		clientcli.ConfigFromEnv(),
		&clientcli.Config{Endpoint: endpoint, Token: token},
	)

	return clientcli.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}

// handleError prints err with the active formatter and returns it for
// cobra's exit status.
func handleError(w io.Writer, err error) error {
	_ = getFormatter().FormatError(w, err)
	return &exitError{code: 1, err: err}
}

// exitError is returned when we want to exit with a specific code
// but don't want cobra to print an error message again.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }
