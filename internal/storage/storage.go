package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested database or row doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrNotDatabase is returned when a file is not a readable code graph
	ErrNotDatabase = errors.New("not a code graph database")
	// ErrIncompatibleSchema is returned when the graph schema version is unsupported
	ErrIncompatibleSchema = errors.New("incompatible graph schema")
)

// Querier is the read surface shared by *sql.DB, *sql.Conn and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tables records which graph tables exist in an open database
type Tables struct {
	Entities bool
	Edges    bool
	Meta     bool
	AstNodes bool
	Metrics  bool
	Chunks   bool
}

// HasCore reports whether the mandatory entity and edge tables exist
func (t Tables) HasCore() bool {
	return t.Entities && t.Edges
}

// ProbeTables lists the graph tables present in the main schema.
// It is the single existence probe a search performs for optional tables.
func ProbeTables(ctx context.Context, q Querier) (Tables, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM main.sqlite_master WHERE type = 'table'")
	if err != nil {
		return Tables{}, classifyError(err)
	}
	defer func() { _ = rows.Close() }()

	var t Tables
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Tables{}, classifyError(err)
		}
		switch name {
		case TableEntities:
			t.Entities = true
		case TableEdges:
			t.Edges = true
		case TableMeta:
			t.Meta = true
		case TableAstNodes:
			t.AstNodes = true
		case TableMetrics:
			t.Metrics = true
		case TableChunks:
			t.Chunks = true
		}
	}
	if err := rows.Err(); err != nil {
		return Tables{}, classifyError(err)
	}
	return t, nil
}

// classifyError maps driver messages for damaged files onto ErrNotDatabase
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "file is not a database"),
		strings.Contains(msg, "database disk image is malformed"),
		strings.Contains(msg, "file is encrypted"):
		return fmt.Errorf("%w: %v", ErrNotDatabase, err)
	}
	return err
}

// IsCorrupt reports whether err indicates a damaged or foreign file
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrNotDatabase)
}
