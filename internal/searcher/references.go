package searcher

import (
	"context"
	"database/sql"
	"sort"

	"github.com/oldnordic/llmgrep/internal/query"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// References searches reference sites by the referenced name. A symbol
// set restricts the reference target.
func (s *Searcher) References(ctx context.Context, db *sql.DB, opts types.SearchOptions) (*types.ReferenceResponse, error) {
	opts = opts.Normalized()
	if err := validateCommon(opts, false); err != nil {
		return nil, err
	}
	re, err := pattern(opts)
	if err != nil {
		return nil, err
	}

	w := &warnings{}
	sr, err := begin(ctx, db, opts, re)
	if err != nil {
		return nil, err
	}
	defer sr.close()

	plan, err := query.BuildReferences(opts)
	if err != nil {
		return nil, err
	}

	var matches []types.ReferenceMatch
	counted, fetched, err := sr.execute(ctx, plan, func(rows *sql.Rows) error {
		var rowID int64
		var data, path string
		var targetID, targetFQN sql.NullString
		if err := rows.Scan(&rowID, &data, &path, &targetID, &targetFQN); err != nil {
			return err
		}
		ref, err := storage.DecodeReference(data)
		if err != nil {
			w.add("reference entity %d skipped: %v", rowID, err)
			return nil
		}
		if sr.re != nil && !regexMatchesAny(sr.re, ref.ReferencedSymbol) {
			return nil
		}
		if sr.fuzzy() && !containsFoldAny(opts.Query, ref.ReferencedSymbol) {
			return nil
		}

		if ref.File == "" {
			ref.File = path
		}
		span := ref.Span()
		m := types.ReferenceMatch{
			MatchID:          types.MatchID(span.FilePath, span.ByteStart, span.ByteEnd, ref.ReferencedSymbol),
			SpanID:           types.SpanID(span.FilePath, span.ByteStart, span.ByteEnd),
			Span:             span,
			ReferencedSymbol: ref.ReferencedSymbol,
			TargetSymbolID:   targetID.String,
			TargetFQN:        targetFQN.String,
			Language:         query.LanguageForPath(span.FilePath),
		}
		if opts.Sort == types.SortRelevance {
			score := Score(opts.Query, ref.ReferencedSymbol, "", "")
			if sr.re != nil {
				score = RegexScore(sr.re, ref.ReferencedSymbol, "", "")
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
	if len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	e := newEnricher(sr.conn, sr.tables, opts, w)
	for i := range matches {
		m := &matches[i]
		m.Context = e.context(m.Span)
		m.Snippet = e.snippet(ctx, m.Span)
	}

	resp := &types.ReferenceResponse{
		Results:    []types.ReferenceMatch{},
		TotalCount: total,
		Partial:    partial,
		Warnings:   s.report(w),
	}
	if matches != nil {
		resp.Results = matches
	}
	return resp, nil
}
