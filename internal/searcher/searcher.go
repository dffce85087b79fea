package searcher

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"regexp"

	"github.com/oldnordic/llmgrep/internal/algo"
	"github.com/oldnordic/llmgrep/internal/query"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// Searcher runs symbol, reference and call searches against a code graph.
// Each search is synchronous and uses one pinned connection of the handle
// it is given.
type Searcher struct {
	resolver algo.Resolver
	logger   *log.Logger
}

// NewSearcher creates a Searcher. resolver serves algorithm filters and may
// be nil when none are used; warnings go to logger, or nowhere if nil.
func NewSearcher(resolver algo.Resolver, logger *log.Logger) *Searcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Searcher{resolver: resolver, logger: logger}
}

// report forwards warnings to the logger and returns them for the response
func (s *Searcher) report(w *warnings) []string {
	for _, msg := range w.list {
		s.logger.Printf("warning: %s", msg)
	}
	return w.list
}

// search is the state shared by one execution of any search kind
type search struct {
	conn   *sql.Conn
	tables storage.Tables
	opts   types.SearchOptions
	re     *regexp.Regexp // non-nil in regex mode
}

// pattern compiles the regex of a regex-mode request. A bad pattern is
// rejected even when an identity filter makes it unused.
func pattern(opts types.SearchOptions) (*regexp.Regexp, error) {
	if !opts.Regex || opts.Query == "" {
		return nil, nil
	}
	re, err := compilePattern(opts.Query)
	if err != nil {
		return nil, err
	}
	if opts.HasIdentity() {
		return nil, nil
	}
	return re, nil
}

// begin pins a connection and probes the optional tables once
func begin(ctx context.Context, db *sql.DB, opts types.SearchOptions, re *regexp.Regexp) (*search, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	tables, err := storage.ProbeTables(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to probe tables: %w", err)
	}
	return &search{conn: conn, tables: tables, opts: opts, re: re}, nil
}

func (s *search) close() {
	_ = s.conn.Close()
}

// fuzzy reports whether rows must be re-verified against the query text
func (s *search) fuzzy() bool {
	return s.re == nil && s.opts.Query != "" && !s.opts.HasIdentity()
}

// execute materializes the symbol set, runs the COUNT variant unless in
// regex mode, and streams the data rows to scan. The temporary symbol-set
// table is dropped before it returns, whatever the outcome.
func (s *search) execute(ctx context.Context, plan *query.Plan, scan func(*sql.Rows) error) (counted, fetched int, err error) {
	release, err := plan.SymbolSet.Materialize(ctx, s.conn)
	if err != nil {
		return 0, 0, err
	}
	defer release()

	if s.re == nil {
		if err := s.conn.QueryRowContext(ctx, plan.Count.SQL, plan.Count.Args...).Scan(&counted); err != nil {
			return 0, 0, fmt.Errorf("failed to count matches: %w", err)
		}
	}

	rows, err := s.conn.QueryContext(ctx, plan.Select.SQL, plan.Select.Args...)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		fetched++
		if err := scan(rows); err != nil {
			return 0, 0, fmt.Errorf("failed to read match: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("failed to read matches: %w", err)
	}
	return counted, fetched, nil
}

// totals applies the partial-result rules. Without regex the COUNT is
// authoritative. With regex nothing can be counted in SQL, so the total is
// the matches among fetched rows and a full candidate batch reads as
// partial; this under-reports when the regex matches few of many rows.
func (s *search) totals(counted, fetched, matched int) (int, bool) {
	if s.re != nil {
		return matched, fetched == s.opts.Candidates
	}
	return counted, s.opts.Candidates < counted
}
