// Package sqlite is the relational-table backend, built on the pure-Go
// ncruces SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/omar16100/parsnip/internal/models"
	"github.com/omar16100/parsnip/internal/storage"
)

// Store implements storage.Backend on a single SQLite connection. The mutex
// keeps at most one statement or transaction in flight.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ storage.Backend  = (*Store)(nil)
	_ storage.Migrator = (*Store)(nil)
)

// Open opens (or creates) the database file at path. Pass ":memory:" for a
// throwaway database. Call Initialize before use.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := "file::memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storage.Connection("open", fmt.Errorf("create data dir: %w", err))
		}
		dsn = "file:" + path + "?" + pragmas
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storage.Connection("open", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storage.Connection("open", fmt.Errorf("ping: %w", err))
	}
	return &Store{db: db, logger: storage.Logger(logger)}, nil
}

// lock acquires the store lock. The caller must unlock even on error.
func (s *Store) lock() (*sql.DB, error) {
	s.mu.Lock()
	if s.db == nil {
		return nil, storage.ErrClosed
	}
	return s.db, nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	db, err := s.lock()
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return storage.Database(op, err)
	}
	return nil
}

// withTx runs fn in one transaction under the store lock.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	db, err := s.lock()
	defer s.mu.Unlock()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Transaction(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return storage.Database(op, err)
	}
	if err := tx.Commit(); err != nil {
		return storage.Transaction(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryAll decodes the single blob column of every row.
func queryAll[T storage.Record](ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		v, err := storage.Decode[T](data)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// list runs a blob query under the store lock.
func list[T storage.Record](ctx context.Context, s *Store, op, query string, args ...any) ([]T, error) {
	db, err := s.lock()
	defer s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out, err := queryAll[T](ctx, db, query, args...)
	if err != nil {
		return nil, storage.Database(op, err)
	}
	return out, nil
}

// one is list for queries addressing at most one row. No row is (nil, nil).
func one[T storage.Record](ctx context.Context, s *Store, op, query string, args ...any) (*T, error) {
	out, err := list[T](ctx, s, op, query, args...)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

func (s *Store) Initialize(ctx context.Context) error {
	return storage.Migrate(ctx, s, s.logger)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return storage.Database("close", err)
	}
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	db, err := s.lock()
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return storage.Connection("health_check", err)
	}
	return nil
}

// --- schema version ---

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	db, err := s.lock()
	defer s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return 0, storage.Database("schema_version", err)
	}
	return version, nil
}

func (s *Store) SetSchemaVersion(ctx context.Context, version int) error {
	// PRAGMA does not take bound parameters.
	return s.exec(ctx, "set_schema_version", fmt.Sprintf(`PRAGMA user_version = %d`, version))
}

func (s *Store) RunMigration(ctx context.Context, version int) error {
	ddl, ok := migrations[version]
	if !ok {
		return fmt.Errorf("no migration to schema version %d", version)
	}
	return s.withTx(ctx, "migrate", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, ddl)
		return err
	})
}
