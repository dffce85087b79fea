package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/oldnordic/llmgrep/internal/searcher"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// maxSuggestions bounds the names offered after a failed lookup
const maxSuggestions = 3

// nativeBackend serves a snapshot file. The snapshot is materialized into a
// private in-memory database for searches, and indexed by name in memory
// for completion and exact lookup.
type nativeBackend struct {
	path     string
	db       *sql.DB
	searcher *searcher.Searcher
	names    []string // sorted, distinct lookup keys
	byFQN    map[string][]types.SymbolMatch
}

func openNative(ctx context.Context, path string, s *searcher.Searcher) (*nativeBackend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	snap, err := storage.ReadSnapshot(f)
	if err != nil {
		return nil, err
	}
	if snap.SchemaVersion != "" {
		if err := storage.CheckVersion(snap.SchemaVersion); err != nil {
			return nil, err
		}
	}

	db, err := storage.OpenMemory(ctx)
	if err != nil {
		return nil, err
	}
	if err := snap.Load(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load snapshot %s: %w", path, err)
	}

	b := &nativeBackend{path: path, db: db, searcher: s}
	b.index(snap)
	return b, nil
}

// index builds the name tables from the snapshot records
func (b *nativeBackend) index(snap *storage.Snapshot) {
	files := make(map[int64]string)
	for _, e := range snap.Entities {
		if e.Kind != string(types.EntityFile) {
			continue
		}
		path := e.FilePath
		if f, err := storage.DecodeFile(e.Data); err == nil && f.Path != "" {
			path = f.Path
		}
		if path == "" {
			path = e.Name
		}
		files[e.ID] = path
	}

	definedIn := make(map[int64]int64)
	for _, edge := range snap.Edges {
		if edge.EdgeType != string(types.EdgeDefines) {
			continue
		}
		if _, ok := definedIn[edge.ToID]; !ok {
			definedIn[edge.ToID] = edge.FromID
		}
	}

	metrics := make(map[string]storage.MetricsRecord, len(snap.Metrics))
	for _, m := range snap.Metrics {
		metrics[m.SymbolID] = m
	}

	b.byFQN = make(map[string][]types.SymbolMatch)
	for _, e := range snap.Entities {
		if e.Kind != string(types.EntitySymbol) {
			continue
		}
		sym, err := storage.DecodeSymbol(e.Data)
		if err != nil {
			continue
		}

		path, ok := files[definedIn[e.ID]]
		if !ok {
			path = sym.FilePath
		}
		if path == "" {
			path = e.FilePath
		}

		m := searcher.NewSymbolMatch(sym, path)
		if rec, ok := metrics[sym.SymbolID]; ok {
			m.Metrics = types.SymbolMetrics{FanIn: rec.FanIn, FanOut: rec.FanOut, Complexity: rec.Complexity}
		}

		for _, key := range []string{sym.FQN, sym.CanonicalFQN} {
			if key == "" {
				continue
			}
			if _, seen := b.byFQN[key]; !seen {
				b.names = append(b.names, key)
			}
			if !containsMatch(b.byFQN[key], m.MatchID) {
				b.byFQN[key] = append(b.byFQN[key], m)
			}
		}
	}

	sort.Strings(b.names)
	for _, matches := range b.byFQN {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Span.FilePath != matches[j].Span.FilePath {
				return matches[i].Span.FilePath < matches[j].Span.FilePath
			}
			return matches[i].Span.ByteStart < matches[j].Span.ByteStart
		})
	}
}

func containsMatch(matches []types.SymbolMatch, id string) bool {
	for _, m := range matches {
		if m.MatchID == id {
			return true
		}
	}
	return false
}

func (b *nativeBackend) sealed() {}

func (b *nativeBackend) Kind() Kind {
	return KindNative
}

func (b *nativeBackend) Path() string {
	return b.path
}

func (b *nativeBackend) SearchSymbols(ctx context.Context, opts types.SearchOptions) (*types.SymbolResponse, error) {
	if err := searcher.Validate(searcher.KindSymbols, opts); err != nil {
		return nil, err
	}
	if opts.Algorithm.Requested() > 0 {
		return nil, &UnsupportedError{Command: "algorithm filters", Path: b.path, Backend: KindNative}
	}
	resp, err := b.searcher.Symbols(ctx, b.db, b.path, opts)
	if err != nil {
		return nil, wrapQuery("symbol search", b.path, err)
	}
	return resp, nil
}

func (b *nativeBackend) SearchReferences(ctx context.Context, opts types.SearchOptions) (*types.ReferenceResponse, error) {
	if err := searcher.Validate(searcher.KindReferences, opts); err != nil {
		return nil, err
	}
	resp, err := b.searcher.References(ctx, b.db, opts)
	if err != nil {
		return nil, wrapQuery("reference search", b.path, err)
	}
	return resp, nil
}

func (b *nativeBackend) SearchCalls(ctx context.Context, opts types.SearchOptions) (*types.CallResponse, error) {
	if err := searcher.Validate(searcher.KindCalls, opts); err != nil {
		return nil, err
	}
	resp, err := b.searcher.Calls(ctx, b.db, opts)
	if err != nil {
		return nil, wrapQuery("call search", b.path, err)
	}
	return resp, nil
}

func (b *nativeBackend) Complete(ctx context.Context, prefix string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultCompleteLimit
	}

	out := []string{}
	for i := sort.SearchStrings(b.names, prefix); i < len(b.names) && len(out) < limit; i++ {
		if !strings.HasPrefix(b.names[i], prefix) {
			break
		}
		out = append(out, b.names[i])
	}
	return out, nil
}

func (b *nativeBackend) LookupExact(ctx context.Context, fqn string) ([]types.SymbolMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if matches, ok := b.byFQN[fqn]; ok {
		return append([]types.SymbolMatch(nil), matches...), nil
	}
	return nil, &LookupError{FQN: fqn, Suggestions: b.suggest(fqn), Err: storage.ErrNotFound}
}

// suggest returns the known names closest to fqn by edit distance
func (b *nativeBackend) suggest(fqn string) []string {
	threshold := len(fqn) / 4
	if threshold < 2 {
		threshold = 2
	}

	type candidate struct {
		name string
		dist int
	}
	var cands []candidate
	for _, name := range b.names {
		if d := edlib.LevenshteinDistance(fqn, name); d <= threshold {
			cands = append(cands, candidate{name, d})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].name < cands[j].name
	})

	var out []string
	for i := 0; i < len(cands) && i < maxSuggestions; i++ {
		out = append(out, cands[i].name)
	}
	return out
}

func (b *nativeBackend) Close() error {
	return b.db.Close()
}
