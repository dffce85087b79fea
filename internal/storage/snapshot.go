package storage

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/oldnordic/llmgrep/pkg/types"
)

// SnapshotVersion is the native snapshot layout version
const SnapshotVersion uint32 = 1

// EntityRecord is one graph_entities row
type EntityRecord struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Data     string `json:"data"`
}

// EdgeRecord is one graph_edges row
type EdgeRecord struct {
	ID       int64  `json:"id"`
	FromID   int64  `json:"from_id"`
	ToID     int64  `json:"to_id"`
	EdgeType string `json:"edge_type"`
	Data     string `json:"data,omitempty"`
}

// MetricsRecord is one symbol_metrics row
type MetricsRecord struct {
	SymbolID   string `json:"symbol_id"`
	FanIn      *int   `json:"fan_in,omitempty"`
	FanOut     *int   `json:"fan_out,omitempty"`
	Complexity *int   `json:"cyclomatic_complexity,omitempty"`
}

// Snapshot is the native single-file encoding of a code graph:
// SnapshotMagic, a little-endian uint32 version, then a JSON body.
type Snapshot struct {
	SchemaVersion string            `json:"schema_version"`
	Entities      []EntityRecord    `json:"entities"`
	Edges         []EdgeRecord      `json:"edges"`
	HasAstNodes   bool              `json:"has_ast_nodes"`
	AstNodes      []types.AstNode   `json:"ast_nodes,omitempty"`
	HasMetrics    bool              `json:"has_metrics"`
	Metrics       []MetricsRecord   `json:"metrics,omitempty"`
	HasChunks     bool              `json:"has_chunks"`
	Chunks        []types.CodeChunk `json:"chunks,omitempty"`
}

// ReadSnapshot decodes a snapshot, validating its header first
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(SnapshotMagic)+4)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: truncated snapshot header", ErrNotDatabase)
	}
	if !bytes.Equal(header[:len(SnapshotMagic)], SnapshotMagic) {
		return nil, fmt.Errorf("%w: bad snapshot magic", ErrNotDatabase)
	}
	if v := binary.LittleEndian.Uint32(header[len(SnapshotMagic):]); v != SnapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d, supported %d", ErrIncompatibleSchema, v, SnapshotVersion)
	}

	var snap Snapshot
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: corrupt snapshot body: %v", ErrNotDatabase, err)
	}
	return &snap, nil
}

// WriteSnapshot encodes snap with its header
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(SnapshotMagic); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	var version [4]byte
	binary.LittleEndian.PutUint32(version[:], SnapshotVersion)
	if _, err := bw.Write(version[:]); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	if err := json.NewEncoder(bw).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return bw.Flush()
}

// ExportSnapshot reads a whole graph database into a Snapshot
func ExportSnapshot(ctx context.Context, q Querier) (*Snapshot, error) {
	tables, err := ProbeTables(ctx, q)
	if err != nil {
		return nil, err
	}
	if !tables.HasCore() {
		return nil, fmt.Errorf("%w: missing core tables", ErrNotDatabase)
	}

	snap := &Snapshot{
		SchemaVersion: CurrentSchemaVersion,
		HasAstNodes:   tables.AstNodes,
		HasMetrics:    tables.Metrics,
		HasChunks:     tables.Chunks,
	}
	if snap.Entities, err = exportEntities(ctx, q); err != nil {
		return nil, err
	}
	if snap.Edges, err = exportEdges(ctx, q); err != nil {
		return nil, err
	}
	if tables.AstNodes {
		if snap.AstNodes, err = exportAstNodes(ctx, q); err != nil {
			return nil, err
		}
	}
	if tables.Metrics {
		if snap.Metrics, err = exportMetrics(ctx, q); err != nil {
			return nil, err
		}
	}
	if tables.Chunks {
		if snap.Chunks, err = exportChunks(ctx, q); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func exportEntities(ctx context.Context, q Querier) ([]EntityRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, kind, name, file_path, data FROM graph_entities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to export entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entities := make([]EntityRecord, 0)
	for rows.Next() {
		var e EntityRecord
		var name, path sql.NullString
		if err := rows.Scan(&e.ID, &e.Kind, &name, &path, &e.Data); err != nil {
			return nil, fmt.Errorf("failed to export entities: %w", err)
		}
		e.Name = name.String
		e.FilePath = path.String
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func exportEdges(ctx context.Context, q Querier) ([]EdgeRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, from_id, to_id, edge_type, data FROM graph_edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to export edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	edges := make([]EdgeRecord, 0)
	for rows.Next() {
		var e EdgeRecord
		var data sql.NullString
		if err := rows.Scan(&e.ID, &e.FromID, &e.ToID, &e.EdgeType, &data); err != nil {
			return nil, fmt.Errorf("failed to export edges: %w", err)
		}
		e.Data = data.String
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func exportAstNodes(ctx context.Context, q Querier) ([]types.AstNode, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, parent_id, kind, byte_start, byte_end FROM ast_nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to export ast nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	nodes := make([]types.AstNode, 0)
	for rows.Next() {
		var n types.AstNode
		var parent sql.NullInt64
		if err := rows.Scan(&n.ID, &parent, &n.Kind, &n.ByteStart, &n.ByteEnd); err != nil {
			return nil, fmt.Errorf("failed to export ast nodes: %w", err)
		}
		if parent.Valid {
			id := parent.Int64
			n.ParentID = &id
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func exportMetrics(ctx context.Context, q Querier) ([]MetricsRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT symbol_id, fan_in, fan_out, cyclomatic_complexity FROM symbol_metrics ORDER BY symbol_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to export metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	metrics := make([]MetricsRecord, 0)
	for rows.Next() {
		var m MetricsRecord
		var fanIn, fanOut, complexity sql.NullInt64
		if err := rows.Scan(&m.SymbolID, &fanIn, &fanOut, &complexity); err != nil {
			return nil, fmt.Errorf("failed to export metrics: %w", err)
		}
		m.FanIn = NullableInt(fanIn)
		m.FanOut = NullableInt(fanOut)
		m.Complexity = NullableInt(complexity)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

func exportChunks(ctx context.Context, q Querier) ([]types.CodeChunk, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT file_path, byte_start, byte_end, content, content_hash, COALESCE(symbol_kind, '')
		FROM code_chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to export chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]types.CodeChunk, 0)
	for rows.Next() {
		var c types.CodeChunk
		if err := rows.Scan(&c.FilePath, &c.ByteStart, &c.ByteEnd, &c.Content, &c.ContentHash, &c.SymbolKind); err != nil {
			return nil, fmt.Errorf("failed to export chunks: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Load materializes the snapshot into an empty writable database
func (s *Snapshot) Load(ctx context.Context, db *sql.DB) (err error) {
	opts := SchemaOptions{AstNodes: s.HasAstNodes, Metrics: s.HasMetrics, Chunks: s.HasChunks}
	if err := ApplySchema(ctx, db, opts); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot load: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, e := range s.Entities {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO graph_entities (id, kind, name, file_path, data) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.Kind, nullString(e.Name), nullString(e.FilePath), e.Data); err != nil {
			return fmt.Errorf("failed to load entity %d: %w", e.ID, err)
		}
	}
	for _, e := range s.Edges {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO graph_edges (id, from_id, to_id, edge_type, data) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.FromID, e.ToID, e.EdgeType, nullString(e.Data)); err != nil {
			return fmt.Errorf("failed to load edge %d: %w", e.ID, err)
		}
	}
	for _, n := range s.AstNodes {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO ast_nodes (id, parent_id, kind, byte_start, byte_end) VALUES (?, ?, ?, ?, ?)`,
			n.ID, n.ParentID, n.Kind, n.ByteStart, n.ByteEnd); err != nil {
			return fmt.Errorf("failed to load ast node %d: %w", n.ID, err)
		}
	}
	for _, m := range s.Metrics {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO symbol_metrics (symbol_id, fan_in, fan_out, cyclomatic_complexity) VALUES (?, ?, ?, ?)`,
			m.SymbolID, m.FanIn, m.FanOut, m.Complexity); err != nil {
			return fmt.Errorf("failed to load metrics for %s: %w", m.SymbolID, err)
		}
	}
	for _, c := range s.Chunks {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO code_chunks (file_path, byte_start, byte_end, content, content_hash, symbol_kind) VALUES (?, ?, ?, ?, ?, ?)`,
			c.FilePath, c.ByteStart, c.ByteEnd, c.Content, c.ContentHash, nullString(c.SymbolKind)); err != nil {
			return fmt.Errorf("failed to load chunk: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot load: %w", err)
	}
	return nil
}

// NullableInt converts a nullable column into an optional value
func NullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
