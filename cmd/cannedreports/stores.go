package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/config"
	"github.com/sagarc03/cannedreports/database"
	"github.com/sagarc03/cannedreports/filesystem"
	"github.com/sagarc03/cannedreports/keybackend"
	"github.com/sagarc03/cannedreports/s3store"
)

// openStore opens the configured report store. The returned cleanup
// function releases its connections or file handles.
func openStore(ctx context.Context, cfg *config.Config) (cannedreports.ReportStore, func(), error) {
	switch cfg.StoreType() {
	case cannedreports.StoreS3:
		store, err := s3store.New(ctx, cfg.S3())
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using s3 store", "bucket", cfg.Store.Bucket, "endpoint", cfg.Store.Endpoint)
		return store, func() {}, nil

	case cannedreports.StoreFilesystem:
		if err := os.MkdirAll(cfg.Store.Path, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create storage directory: %w", err)
		}
		root, err := os.OpenRoot(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage root: %w", err)
		}
		slog.Info("using filesystem store", "path", cfg.Store.Path)
		return filesystem.NewFileStorage(root), func() { _ = root.Close() }, nil

	case cannedreports.StoreSQLite, cannedreports.StorePostgres:
		store, cleanup, err := database.Connect(ctx, cfg.Database())
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		slog.Info("connected to database", "type", cfg.Store.Type, "table", cfg.Store.Table)
		return store, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}
}

// newManager wires the dispatcher to store. Bearer tokens are verified when
// signing keys are configured.
func newManager(store cannedreports.ReportStore, cfg *config.Config) (*cannedreports.ReportsManager, error) {
	keys, err := keybackend.NewKeyStore(cfg.Authorization.Keys)
	if err != nil {
		return nil, fmt.Errorf("load signing keys: %w", err)
	}

	var roles *cannedreports.RoleExtractor
	if keys.Len() > 0 {
		roles = cannedreports.NewRoleExtractor(keys)
	} else {
		if cfg.Authorization.EnableAuthorization {
			slog.Warn("authorization enabled without signing keys, token signatures are not verified")
		}
		roles = cannedreports.NewRoleExtractor(nil)
	}

	return cannedreports.NewReportsManager(store, roles, cfg.Manager())
}
