// Package backend opens a code graph file and routes queries to it.
//
// Two formats are supported and told apart by their leading bytes:
//   - SQLite: the graph database written by the indexer, queried in place
//     through a read-only handle
//   - Native: a single-file snapshot (see storage.WriteSnapshot), loaded
//     into a private in-memory database plus name indexes
//
// Prefix completion and exact fully-qualified-name lookup need the name
// indexes and are only served by the native backend; the SQLite backend
// answers them with an *UnsupportedError naming the command. Use
// ExportFile to turn a SQLite graph into a snapshot.
//
//	b, err := backend.Open(ctx, "codegraph.db", searcher.NewSearcher(nil, logger))
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	resp, err := b.SearchSymbols(ctx, types.SearchOptions{Query: "parse"})
package backend
