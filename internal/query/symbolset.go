package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
)

// InlineThreshold is the largest symbol set filtered with an inline IN list
const InlineThreshold = 500

// Strategy is how a symbol-set filter is applied
type Strategy int

const (
	// StrategyNone means no symbol-set filter is active
	StrategyNone Strategy = iota
	// StrategyInline binds every id into an IN (?, ...) list
	StrategyInline
	// StrategyTempTable loads ids into a query-scoped temporary table
	StrategyTempTable
)

func (s Strategy) String() string {
	switch s {
	case StrategyInline:
		return "inline"
	case StrategyTempTable:
		return "temp_table"
	default:
		return "none"
	}
}

// ChooseStrategy picks a strategy from the set size alone
func ChooseStrategy(n int) Strategy {
	switch {
	case n == 0:
		return StrategyNone
	case n <= InlineThreshold:
		return StrategyInline
	default:
		return StrategyTempTable
	}
}

var tempTableSeq atomic.Uint64

// SymbolSet is a symbol-id inclusion filter together with its strategy
type SymbolSet struct {
	Strategy Strategy
	IDs      []string
	Table    string // qualified temp table name, StrategyTempTable only
}

// NewSymbolSet returns the filter for ids. Duplicate ids are dropped.
func NewSymbolSet(ids []string) *SymbolSet {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	set := &SymbolSet{Strategy: ChooseStrategy(len(unique)), IDs: unique}
	if set.Strategy == StrategyTempTable {
		set.Table = fmt.Sprintf("temp.llmgrep_symbol_set_%d", tempTableSeq.Add(1))
	}
	return set
}

// Active reports whether the filter restricts anything
func (s *SymbolSet) Active() bool {
	return s != nil && s.Strategy != StrategyNone
}

// Predicate returns the membership test for column
func (s *SymbolSet) Predicate(column string) (string, []interface{}) {
	switch s.Strategy {
	case StrategyInline:
		args := make([]interface{}, len(s.IDs))
		for i, id := range s.IDs {
			args[i] = id
		}
		return fmt.Sprintf("%s IN (%s)", column, placeholders(len(s.IDs))), args
	case StrategyTempTable:
		return fmt.Sprintf("%s IN (SELECT symbol_id FROM %s)", column, s.Table), nil
	default:
		return "1 = 1", nil
	}
}

// Materialize creates and fills the temporary table on conn. The returned
// release function drops it and must be called once the query is done;
// on error the table is already gone.
func (s *SymbolSet) Materialize(ctx context.Context, conn *sql.Conn) (func(), error) {
	if s.Strategy != StrategyTempTable {
		return func() {}, nil
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+s.Table)
	}

	if err := s.fill(ctx, conn); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

func (s *SymbolSet) fill(ctx context.Context, conn *sql.Conn) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin symbol set load: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TEMP TABLE %s (symbol_id TEXT PRIMARY KEY)", strings.TrimPrefix(s.Table, "temp."))); err != nil {
		return fmt.Errorf("failed to create symbol set table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT OR IGNORE INTO %s (symbol_id) VALUES (?)", s.Table))
	if err != nil {
		return fmt.Errorf("failed to prepare symbol set insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range s.IDs {
		if _, err = stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to load symbol set: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit symbol set: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
