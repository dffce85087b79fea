package searcher

import (
	"context"
	"database/sql"
	"sort"

	"github.com/oldnordic/llmgrep/internal/query"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// Calls searches call sites by caller or callee name. A symbol set matches
// either end of the call.
func (s *Searcher) Calls(ctx context.Context, db *sql.DB, opts types.SearchOptions) (*types.CallResponse, error) {
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

	plan, err := query.BuildCalls(opts)
	if err != nil {
		return nil, err
	}

	var matches []types.CallMatch
	counted, fetched, err := sr.execute(ctx, plan, func(rows *sql.Rows) error {
		var rowID int64
		var data, path string
		if err := rows.Scan(&rowID, &data, &path); err != nil {
			return err
		}
		call, err := storage.DecodeCall(data)
		if err != nil {
			w.add("call entity %d skipped: %v", rowID, err)
			return nil
		}
		if sr.re != nil && !regexMatchesAny(sr.re, call.Caller, call.Callee) {
			return nil
		}
		if sr.fuzzy() && !containsFoldAny(opts.Query, call.Caller, call.Callee) {
			return nil
		}

		if call.File == "" {
			call.File = path
		}
		span := call.Span()
		m := types.CallMatch{
			MatchID:        types.MatchID(span.FilePath, span.ByteStart, span.ByteEnd, call.Callee),
			SpanID:         types.SpanID(span.FilePath, span.ByteStart, span.ByteEnd),
			Span:           span,
			Caller:         call.Caller,
			Callee:         call.Callee,
			CallerSymbolID: call.CallerSymbolID,
			CalleeSymbolID: call.CalleeSymbolID,
			Language:       query.LanguageForPath(span.FilePath),
		}
		if opts.Sort == types.SortRelevance {
			score := callScore(opts.Query, sr, call)
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

	resp := &types.CallResponse{
		Results:    []types.CallMatch{},
		TotalCount: total,
		Partial:    partial,
		Warnings:   s.report(w),
	}
	if matches != nil {
		resp.Results = matches
	}
	return resp, nil
}

// callScore is the better of the caller and callee scores
func callScore(q string, sr *search, call *types.CallNode) int {
	var caller, callee int
	if sr.re != nil {
		caller = RegexScore(sr.re, call.Caller, "", "")
		callee = RegexScore(sr.re, call.Callee, "", "")
	} else {
		caller = Score(q, call.Caller, "", "")
		callee = Score(q, call.Callee, "", "")
	}
	if caller > callee {
		return caller
	}
	return callee
}
