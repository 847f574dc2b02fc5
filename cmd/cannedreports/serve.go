package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/cannedreports/config"
	reportshttp "github.com/sagarc03/cannedreports/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the report HTTP server.

The store collection (bucket, directory or table) is created on startup
when it is missing.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port (env: CANNEDREPORTS_SERVER_PORT)")
	serveCmd.Flags().Bool("authorization", false, "require user or manager roles (env: CANNEDREPORTS_AUTHORIZATION_ENABLE_AUTHORIZATION)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	manager, err := newManager(store, cfg)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	handler := reportshttp.NewHandler(cfg.Handler(), manager)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"store", cfg.Store.Type,
		"authorization", cfg.Authorization.EnableAuthorization,
		"max_upload_size", cfg.Server.MaxUploadSize,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
