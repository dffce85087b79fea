// Package graphtest builds small code graph databases for tests.
package graphtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"

	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// Graph is a writable fixture database under a test's temp dir
type Graph struct {
	t     testing.TB
	DB    *sql.DB
	Path  string
	files map[string]int64
}

// New creates an empty graph with the given optional tables
func New(t testing.TB, opts storage.SchemaOptions) *Graph {
	t.Helper()

	path := filepath.Join(t.TempDir(), "codegraph.db")
	db, err := storage.OpenWritable(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, storage.ApplySchema(context.Background(), db, opts))

	return &Graph{t: t, DB: db, Path: path, files: make(map[string]int64)}
}

// Open returns a read-only handle to the fixture, closed at test cleanup
func (g *Graph) Open() *sql.DB {
	g.t.Helper()
	db, err := storage.OpenReadOnly(context.Background(), g.Path)
	require.NoError(g.t, err)
	g.t.Cleanup(func() { _ = db.Close() })
	return db
}

// Conn returns a pinned read-only connection to the fixture
func (g *Graph) Conn() *sql.Conn {
	g.t.Helper()
	conn, err := g.Open().Conn(context.Background())
	require.NoError(g.t, err)
	g.t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (g *Graph) insertEntity(kind types.EntityKind, name, path string, payload interface{}) int64 {
	g.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(g.t, err)

	res, err := g.DB.Exec(
		"INSERT INTO graph_entities (kind, name, file_path, data) VALUES (?, ?, ?, ?)",
		string(kind), name, path, string(data))
	require.NoError(g.t, err)
	id, err := res.LastInsertId()
	require.NoError(g.t, err)
	return id
}

func (g *Graph) insertEdge(from, to int64, edge types.EdgeType) {
	g.t.Helper()
	_, err := g.DB.Exec(
		"INSERT INTO graph_edges (from_id, to_id, edge_type) VALUES (?, ?, ?)",
		from, to, string(edge))
	require.NoError(g.t, err)
}

// AddFile inserts a File entity once per path and returns its row id
func (g *Graph) AddFile(path string) int64 {
	if id, ok := g.files[path]; ok {
		return id
	}
	id := g.insertEntity(types.EntityFile, path, path, types.FileNode{Path: path})
	g.files[path] = id
	return id
}

// AddSymbol inserts a Symbol entity defined by path. The payload's own
// file_path is left as given so tests can cover the DEFINES lookup.
func (g *Graph) AddSymbol(path string, sym types.SymbolNode) int64 {
	fileID := g.AddFile(path)
	id := g.insertEntity(types.EntitySymbol, sym.Name, "", sym)
	g.insertEdge(fileID, id, types.EdgeDefines)
	return id
}

// AddReference inserts a Reference entity pointing at the target symbol row
func (g *Graph) AddReference(ref types.ReferenceNode, target int64) int64 {
	id := g.insertEntity(types.EntityReference, ref.ReferencedSymbol, ref.File, ref)
	if target != 0 {
		g.insertEdge(id, target, types.EdgeReferences)
	}
	return id
}

// AddCall inserts a Call entity
func (g *Graph) AddCall(call types.CallNode) int64 {
	return g.insertEntity(types.EntityCall, call.Callee, call.File, call)
}

// AddAstNode inserts a structural node. A zero ID lets SQLite assign one.
func (g *Graph) AddAstNode(node types.AstNode) int64 {
	g.t.Helper()
	var id interface{}
	if node.ID != 0 {
		id = node.ID
	}
	res, err := g.DB.Exec(
		"INSERT INTO ast_nodes (id, parent_id, kind, byte_start, byte_end) VALUES (?, ?, ?, ?, ?)",
		id, node.ParentID, node.Kind, node.ByteStart, node.ByteEnd)
	require.NoError(g.t, err)
	rowID, err := res.LastInsertId()
	require.NoError(g.t, err)
	return rowID
}

// AddMetrics records metrics for a symbol id
func (g *Graph) AddMetrics(symbolID string, m types.SymbolMetrics) {
	g.t.Helper()
	_, err := g.DB.Exec(
		"INSERT INTO symbol_metrics (symbol_id, fan_in, fan_out, cyclomatic_complexity) VALUES (?, ?, ?, ?)",
		symbolID, m.FanIn, m.FanOut, m.Complexity)
	require.NoError(g.t, err)
}

// AddChunk records a pre-extracted chunk
func (g *Graph) AddChunk(c types.CodeChunk) {
	g.t.Helper()
	_, err := g.DB.Exec(
		"INSERT INTO code_chunks (file_path, byte_start, byte_end, content, content_hash, symbol_kind) VALUES (?, ?, ?, ?, ?, ?)",
		c.FilePath, c.ByteStart, c.ByteEnd, c.Content, c.ContentHash, c.SymbolKind)
	require.NoError(g.t, err)
}

// SetSchemaVersion overwrites the recorded schema version
func (g *Graph) SetSchemaVersion(version string) {
	g.t.Helper()
	_, err := g.DB.Exec("INSERT OR REPLACE INTO graph_meta (key, value) VALUES ('schema_version', ?)", version)
	require.NoError(g.t, err)
}

// SymbolID derives a fixed-length hex id from a seed
func SymbolID(seed string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(seed))
}

// Symbol returns a function symbol named name occupying [start, end) on line
func Symbol(name string, start, end, line int) types.SymbolNode {
	return types.SymbolNode{
		Name:           name,
		Kind:           "Function",
		KindNormalized: "function",
		FQN:            "crate::" + name,
		DisplayFQN:     "crate::" + name,
		CanonicalFQN:   "crate::" + name,
		SymbolID:       SymbolID(name),
		ByteStart:      start,
		ByteEnd:        end,
		StartLine:      line,
		StartCol:       0,
		EndLine:        line,
		EndCol:         end - start,
	}
}

// Int returns a pointer to v
func Int(v int) *int {
	return &v
}
