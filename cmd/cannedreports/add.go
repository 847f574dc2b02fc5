package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/config"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <file1> [file2] ...",
	Short: "Import local files as new reports",
	Long: `Import local files directly into the configured store, bypassing
the HTTP server and role checks.

Every file becomes a new report with a single revision. The report name
is the file path relative to the argument it was found under. The new
identifiers are printed, one per line.

Examples:
  # Import a single file
  cannedreports add /path/to/summary.pdf

  # Import a directory recursively into a SQLite store
  cannedreports --store-type sqlite add -r /path/to/reports

  # Attach a description
  cannedreports add --description "Q3 close" q3.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addDescription string
	addRecursive   bool
	addQuiet       bool
)

func init() {
	addCmd.Flags().StringVar(&addDescription, "description", "", "description stored with every imported report")
	addCmd.Flags().BoolVarP(&addRecursive, "recursive", "r", false, "recursively add directories")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(addCmd)
}

// fileEntry is a file to import and the report name it gets.
type fileEntry struct {
	sourcePath string
	name       string
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var files []fileEntry
	for _, arg := range args {
		entries, collectErr := collectFiles(arg, addRecursive)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		files = append(files, entries...)
	}

	if len(files) == 0 {
		slog.Info("no files to add")
		return nil
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	// Local imports are trusted, so role checks are skipped.
	managerCfg := cfg.Manager()
	managerCfg.EnableAuthorization = false
	manager, err := cannedreports.NewReportsManager(store, nil, managerCfg)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	added := 0
	for _, entry := range files {
		doc, addErr := importFile(ctx, manager, entry, addDescription)
		if addErr != nil {
			return fmt.Errorf("add %s: %w", entry.sourcePath, addErr)
		}

		added++
		fmt.Fprintln(cmd.OutOrStdout(), doc.Identifier())
		if !addQuiet {
			slog.Info("added", "identifier", doc.Identifier(), "name", doc.Name(), "content_type", doc.ContentType())
		}
	}

	slog.Info("add complete", "added", added)
	return nil
}

// importFile creates one report from entry through the dispatcher.
func importFile(ctx context.Context, manager *cannedreports.ReportsManager, entry fileEntry, description string) (cannedreports.CanonicalDocument, error) {
	f, err := os.Open(entry.sourcePath)
	if err != nil {
		return cannedreports.CanonicalDocument{}, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return cannedreports.CanonicalDocument{}, err
	}
	size := info.Size()

	// The dispatcher closes the body.
	req, err := cannedreports.NewCanonicalRequest(cannedreports.RequestFields{
		Method:        cannedreports.MethodPost,
		Name:          entry.name,
		Description:   description,
		ContentType:   detectContentType(entry.sourcePath),
		ContentLength: &size,
		Body:          cannedreports.ReaderBody(f),
	})
	if err != nil {
		_ = f.Close()
		return cannedreports.CanonicalDocument{}, err
	}

	resp := manager.HandleRequest(ctx, req)
	if !resp.Result.IsSuccess() {
		if resp.Err != nil {
			return cannedreports.CanonicalDocument{}, resp.Err
		}
		return cannedreports.CanonicalDocument{}, errors.New(resp.Result.Description())
	}

	doc, ok := resp.Report()
	if !ok {
		return cannedreports.CanonicalDocument{}, errors.New("no report in response")
	}
	return doc, nil
}

// collectFiles gathers files from a path, optionally recursively.
func collectFiles(path string, recursive bool) ([]fileEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []fileEntry{{sourcePath: path, name: filepath.Base(path)}}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to add recursively)", path)
	}

	var entries []fileEntry
	walkErr := filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(path, walkPath)
		if relErr != nil {
			return relErr
		}

		entries = append(entries, fileEntry{
			sourcePath: walkPath,
			name:       filepath.ToSlash(relPath),
		})
		return nil
	})

	if walkErr != nil {
		return nil, walkErr
	}

	return entries, nil
}

// detectContentType determines the MIME type from a file's extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}
