package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// readOnlyDSN builds a URI filename that opens path without write access
func readOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=ro"}
	return u.String()
}

// configurePool pins the pool to a single connection. Temporary tables are
// per connection, so every statement of a query must reuse it.
func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
}

// OpenReadOnly opens a graph database for querying and verifies its schema
// before returning, so a foreign or damaged file fails here rather than on
// the first search.
func OpenReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotDatabase, path)
	}

	db, err := sql.Open(DriverName, readOnlyDSN(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(db)

	if err := ProbeSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private writable in-memory database
func OpenMemory(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(DriverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	configurePool(db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return db, nil
}

// OpenWritable opens (creating if needed) a database file with write access.
// It is used by fixtures and exports only.
func OpenWritable(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// ProbeSchema is the cheap post-open check: the file must parse as SQLite,
// carry the core graph tables, and declare a supported schema version.
func ProbeSchema(ctx context.Context, q Querier) error {
	tables, err := ProbeTables(ctx, q)
	if err != nil {
		if IsCorrupt(err) {
			return err
		}
		return fmt.Errorf("failed to probe schema: %w", err)
	}
	if !tables.HasCore() {
		return fmt.Errorf("%w: missing %s or %s table", ErrNotDatabase, TableEntities, TableEdges)
	}
	return CheckSchemaVersion(ctx, q, tables)
}
