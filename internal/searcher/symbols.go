package searcher

import (
	"context"
	"database/sql"
	"sort"

	"github.com/oldnordic/llmgrep/internal/algo"
	"github.com/oldnordic/llmgrep/internal/query"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// Symbols searches symbol definitions. dbPath is passed to the algorithm
// collaborator when an algorithm filter is set.
func (s *Searcher) Symbols(ctx context.Context, db *sql.DB, dbPath string, opts types.SearchOptions) (*types.SymbolResponse, error) {
	opts = opts.Normalized()
	if err := validateSymbols(opts); err != nil {
		return nil, err
	}

	re, err := pattern(opts)
	if err != nil {
		return nil, err
	}

	w := &warnings{}
	_, kindWarnings := query.NormalizeKinds(opts.Kinds)
	for _, kw := range kindWarnings {
		w.add("%s", kw)
	}

	resp := &types.SymbolResponse{Results: []types.SymbolMatch{}}
	groups := opts.Groups

	if req, ok := algo.RequestFor(opts.Algorithm, dbPath); ok {
		if s.resolver == nil {
			return nil, &algo.Error{Kind: req.Kind, Reason: "no algorithm resolver configured"}
		}
		res, err := s.resolver.Resolve(ctx, req)
		if err != nil {
			return nil, err
		}
		resp.Bounded = res.Bounded
		if len(res.IDs) == 0 {
			resp.Warnings = s.report(w)
			return resp, nil
		}
		opts.SymbolSet = res.IDs
		groups = res.Groups
	}

	sr, err := begin(ctx, db, opts, re)
	if err != nil {
		return nil, err
	}
	defer sr.close()

	plan, err := query.BuildSymbols(opts, sr.tables)
	if err != nil {
		return nil, err
	}

	var matches []types.SymbolMatch
	counted, fetched, err := sr.execute(ctx, plan, func(rows *sql.Rows) error {
		var rowID int64
		var data, path string
		var fanIn, fanOut, complexity sql.NullInt64
		if err := rows.Scan(&rowID, &data, &path, &fanIn, &fanOut, &complexity); err != nil {
			return err
		}
		sym, err := storage.DecodeSymbol(data)
		if err != nil {
			w.add("symbol entity %d skipped: %v", rowID, err)
			return nil
		}
		if sr.re != nil && !regexMatchesAny(sr.re, sym.Name, sym.DisplayFQN, sym.FQN) {
			return nil
		}
		if sr.fuzzy() && !containsFoldAny(opts.Query, sym.Name, sym.DisplayFQN, sym.FQN) {
			return nil
		}

		m := NewSymbolMatch(sym, path)
		m.Metrics = types.SymbolMetrics{
			FanIn:      storage.NullableInt(fanIn),
			FanOut:     storage.NullableInt(fanOut),
			Complexity: storage.NullableInt(complexity),
		}
		if opts.Sort == types.SortRelevance {
			score := Score(opts.Query, sym.Name, sym.DisplayFQN, sym.FQN)
			if sr.re != nil {
				score = RegexScore(sr.re, sym.Name, sym.DisplayFQN, sym.FQN)
			}
			m.Score = &score
		}
		matches = append(matches, m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	total, partial := sr.totals(counted, fetched, len(matches))

	if opts.Sort == types.SortRelevance {
		sort.SliceStable(matches, func(i, j int) bool {
			return *matches[i].Score > *matches[j].Score
		})
	}

	e := newEnricher(sr.conn, sr.tables, opts, w)

	if sr.tables.AstNodes && opts.Ast.DepthActive() {
		kept := matches[:0]
		for _, m := range matches {
			if e.keepDepth(ctx, m.Span) {
				kept = append(kept, m)
			}
		}
		total -= len(matches) - len(kept)
		matches = kept
	}

	if len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	for i := range matches {
		m := &matches[i]
		if groups != nil {
			m.Group = groups[m.SymbolID]
		}
		m.Context = e.context(m.Span)
		m.Snippet = e.snippet(ctx, m.Span)
		m.Ast = e.astContext(ctx, m.Span)
	}

	if !opts.HasIdentity() {
		if msg := ambiguityWarning(matches); msg != "" {
			w.add("%s", msg)
		}
	}

	if total < len(matches) {
		total = len(matches)
	}
	if matches != nil {
		resp.Results = matches
	}
	resp.TotalCount = total
	resp.Partial = partial
	resp.Warnings = s.report(w)
	return resp, nil
}

// NewSymbolMatch builds the unscored match for a decoded symbol defined in path
func NewSymbolMatch(sym *types.SymbolNode, path string) types.SymbolMatch {
	return types.SymbolMatch{
		MatchID:      types.MatchID(path, sym.ByteStart, sym.ByteEnd, sym.Name),
		SpanID:       types.SpanID(path, sym.ByteStart, sym.ByteEnd),
		Span:         sym.Span(path),
		Name:         sym.Name,
		Kind:         sym.Kind,
		Language:     query.LanguageForPath(path),
		FQN:          sym.FQN,
		DisplayFQN:   sym.DisplayFQN,
		CanonicalFQN: sym.CanonicalFQN,
		SymbolID:     sym.SymbolID,
	}
}
