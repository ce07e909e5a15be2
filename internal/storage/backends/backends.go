// Package backends opens the storage backend named in configuration.
package backends

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/omar16100/parsnip/internal/config"
	"github.com/omar16100/parsnip/internal/storage"
	"github.com/omar16100/parsnip/internal/storage/badgerstore"
	"github.com/omar16100/parsnip/internal/storage/memory"
	"github.com/omar16100/parsnip/internal/storage/sqlite"
)

// File and directory names under the data directory.
const (
	BadgerDir  = "badger"
	SQLiteFile = "parsnip.db"
)

// Open creates, initializes and instruments the configured backend. Metrics
// register with reg; a nil reg leaves them unregistered.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger, reg prometheus.Registerer) (*storage.Instrumented, error) {
	b, err := open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := b.Initialize(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("initialize %s backend: %w", cfg.Backend, err)
	}
	if logger != nil {
		logger.Info("storage ready", "backend", cfg.Backend, "data_dir", cfg.DataDir)
	}
	return storage.Instrument(b, cfg.Backend, reg), nil
}

func open(cfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(logger), nil

	case config.BackendSQLite:
		return sqlite.Open(filepath.Join(cfg.DataDir, SQLiteFile), logger)

	case config.BackendBadger:
		bc := badgerstore.DefaultConfig(filepath.Join(cfg.DataDir, BadgerDir))
		bc.SyncWrites = cfg.SyncWrites
		bc.Logger = logger
		return badgerstore.Open(bc)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
