package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// CurrentSchemaVersion is the on-disk layout version this build writes.
const CurrentSchemaVersion = 1

// Migrator is implemented by persistent backends that track a schema version.
type Migrator interface {
	SchemaVersion(ctx context.Context) (int, error)
	SetSchemaVersion(ctx context.Context, version int) error
	// RunMigration moves the layout from version-1 to version.
	RunMigration(ctx context.Context, version int) error
}

// Migrate brings m forward to CurrentSchemaVersion one step at a time. A store
// written by a newer build is left untouched.
func Migrate(ctx context.Context, m Migrator, logger *slog.Logger) error {
	return MigrateTo(ctx, m, CurrentSchemaVersion, logger)
}

func MigrateTo(ctx context.Context, m Migrator, target int, logger *slog.Logger) error {
	if logger == nil {
		logger = discardLogger
	}
	current, err := m.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch {
	case current == target:
		logger.Debug("schema up to date", "version", current)
		return nil
	case current > target:
		logger.Warn("schema is newer than this build, downgrades are not supported",
			"version", current, "target", target)
		return nil
	}

	logger.Info("migrating schema", "from", current, "to", target)
	for v := current + 1; v <= target; v++ {
		if err := m.RunMigration(ctx, v); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v, err)
		}
		if err := m.SetSchemaVersion(ctx, v); err != nil {
			return fmt.Errorf("record schema v%d: %w", v, err)
		}
		logger.Info("migrated schema", "version", v)
	}
	return nil
}

var discardLogger = slog.New(slog.DiscardHandler)

// Logger returns l, or a logger that drops everything when l is nil.
func Logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return discardLogger
	}
	return l
}
