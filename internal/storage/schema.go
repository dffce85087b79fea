package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion is the graph schema version this engine reads
	CurrentSchemaVersion = "1.0.0"

	// SupportedSchemaRange is the semver constraint a graph database must satisfy
	SupportedSchemaRange = ">= 1.0.0, < 2.0.0"
)

// Table names of the graph schema
const (
	TableEntities = "graph_entities"
	TableEdges    = "graph_edges"
	TableMeta     = "graph_meta"
	TableAstNodes = "ast_nodes"
	TableMetrics  = "symbol_metrics"
	TableChunks   = "code_chunks"
)

const coreSchema = `
CREATE TABLE IF NOT EXISTS graph_entities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    name TEXT,
    file_path TEXT,
    data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON graph_entities(kind);
CREATE INDEX IF NOT EXISTS idx_entities_name ON graph_entities(name);

CREATE TABLE IF NOT EXISTS graph_edges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    from_id INTEGER NOT NULL,
    to_id INTEGER NOT NULL,
    edge_type TEXT NOT NULL,
    data TEXT
);

CREATE INDEX IF NOT EXISTS idx_edges_from ON graph_edges(from_id, edge_type);
CREATE INDEX IF NOT EXISTS idx_edges_to ON graph_edges(to_id, edge_type);

CREATE TABLE IF NOT EXISTS graph_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const astSchema = `
CREATE TABLE IF NOT EXISTS ast_nodes (
    id INTEGER PRIMARY KEY,
    parent_id INTEGER,
    kind TEXT NOT NULL,
    byte_start INTEGER NOT NULL,
    byte_end INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ast_nodes_parent ON ast_nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_ast_nodes_span ON ast_nodes(byte_start, byte_end);
`

const metricsSchema = `
CREATE TABLE IF NOT EXISTS symbol_metrics (
    symbol_id TEXT PRIMARY KEY,
    fan_in INTEGER,
    fan_out INTEGER,
    cyclomatic_complexity INTEGER
);
`

const chunksSchema = `
CREATE TABLE IF NOT EXISTS code_chunks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT NOT NULL,
    byte_start INTEGER NOT NULL,
    byte_end INTEGER NOT NULL,
    content TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    symbol_name TEXT,
    symbol_kind TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_code_chunks_span ON code_chunks(file_path, byte_start, byte_end);
`

// SchemaOptions selects which optional side tables ApplySchema creates
type SchemaOptions struct {
	AstNodes bool
	Metrics  bool
	Chunks   bool
}

// FullSchema creates every optional table
var FullSchema = SchemaOptions{AstNodes: true, Metrics: true, Chunks: true}

// ApplySchema creates the graph tables on a writable database and records
// the schema version. Only fixtures and snapshot materialization call it;
// the search engine never writes to a primary store.
func ApplySchema(ctx context.Context, db *sql.DB, opts SchemaOptions) error {
	steps := []struct {
		name    string
		ddl     string
		enabled bool
	}{
		{"core", coreSchema, true},
		{TableAstNodes, astSchema, opts.AstNodes},
		{TableMetrics, metricsSchema, opts.Metrics},
		{TableChunks, chunksSchema, opts.Chunks},
	}
	for _, step := range steps {
		if !step.enabled {
			continue
		}
		if _, err := db.ExecContext(ctx, step.ddl); err != nil {
			return fmt.Errorf("failed to create %s schema: %w", step.name, err)
		}
	}

	_, err := db.ExecContext(ctx,
		"INSERT OR REPLACE INTO graph_meta (key, value) VALUES ('schema_version', ?)",
		CurrentSchemaVersion)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// CheckSchemaVersion verifies the recorded schema version, if any, is one
// this engine can read. Databases without graph_meta are accepted as-is.
func CheckSchemaVersion(ctx context.Context, q Querier, tables Tables) error {
	if !tables.Meta {
		return nil
	}

	var raw string
	err := q.QueryRowContext(ctx, "SELECT value FROM graph_meta WHERE key = 'schema_version'").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && raw == "") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	return CheckVersion(raw)
}

// CheckVersion verifies a recorded schema version string against
// SupportedSchemaRange
func CheckVersion(raw string) error {
	version, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("%w: invalid schema version %q", ErrIncompatibleSchema, raw)
	}
	constraint, err := semver.NewConstraint(SupportedSchemaRange)
	if err != nil {
		return fmt.Errorf("invalid schema constraint: %w", err)
	}
	if !constraint.Check(version) {
		return fmt.Errorf("%w: version %s, supported %s", ErrIncompatibleSchema, version, SupportedSchemaRange)
	}
	return nil
}
