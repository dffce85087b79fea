// Package storage provides read access to code graph databases.
//
// A code graph is persisted as entity and edge records with JSON payloads.
// Two optional side tables carry structural (AST) nodes and per-symbol
// metrics; a third holds pre-extracted code chunks.
//
// # Database Schema
//
// Tables:
//   - graph_entities: File, Symbol, Reference and Call records (JSON data)
//   - graph_edges: typed directed links (DEFINES, REFERENCES)
//   - graph_meta: key/value metadata, including schema_version
//   - ast_nodes: byte-addressed syntax tree (optional)
//   - symbol_metrics: fan-in, fan-out and complexity per symbol (optional)
//   - code_chunks: source text keyed by exact byte span (optional)
//
// # Opening a Graph
//
// Graphs are opened read-only and probed before use, so a foreign or
// damaged file fails at open time:
//
//	db, err := storage.OpenReadOnly(ctx, ".codemcp/codegraph.db")
//	if errors.Is(err, storage.ErrNotDatabase) {
//	    // not a code graph
//	}
//	defer db.Close()
//
// The pool is pinned to one connection so temporary tables created during
// a query stay visible to every statement of that query.
//
// # Snapshots
//
// A snapshot is the native single-file encoding of a graph. It starts with
// SnapshotMagic and a little-endian version, followed by a JSON body:
//
//	snap, err := storage.ExportSnapshot(ctx, db)
//	err = storage.WriteSnapshot(f, snap)
//
// Loading a snapshot materializes it into a private in-memory database:
//
//	mem, _ := storage.OpenMemory(ctx)
//	err = snap.Load(ctx, mem)
//
// # Build Modes
//
// The pure-Go driver (modernc.org/sqlite) is the default. Building with the
// sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
package storage
