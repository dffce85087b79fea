package query

import (
	"fmt"
	"strings"

	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// Statement is a parameterized SQL statement
type Statement struct {
	SQL  string
	Args []interface{}
}

// Plan is everything an executor needs to run one search: the data
// statement, its unlimited COUNT variant and the symbol-set filter.
type Plan struct {
	Select    Statement
	Count     Statement
	SymbolSet *SymbolSet
}

// tieBreak makes ordering total so identical inputs give identical output
const tieBreak = "file_path, start_line, start_col, byte_start, byte_end, row_id"

// whereClause accumulates conjunctive predicates and their arguments
type whereClause struct {
	parts []string
	args  []interface{}
}

func (w *whereClause) add(pred string, args ...interface{}) {
	w.parts = append(w.parts, pred)
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.parts) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.parts, "\n  AND ")
}

// likeAny matches pattern against any of columns
func likeAny(pattern string, columns ...string) (string, []interface{}) {
	preds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, c := range columns {
		preds[i] = fmt.Sprintf("%s LIKE ? ESCAPE '%s'", c, LikeEscape)
		args[i] = pattern
	}
	if len(preds) == 1 {
		return preds[0], args
	}
	return "(" + strings.Join(preds, " OR ") + ")", args
}

func addPathFilters(w *whereClause, opts types.SearchOptions, column string) error {
	if opts.PathPrefix != "" {
		pred, args := likeAny(prefixPattern(opts.PathPrefix), column)
		w.add(pred, args...)
	}
	if opts.Language != "" {
		exts, ok := LanguageExtensions(opts.Language)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrUnknownLanguage, opts.Language)
		}
		preds := make([]string, len(exts))
		args := make([]interface{}, len(exts))
		for i, ext := range exts {
			preds[i] = fmt.Sprintf("%s LIKE ? ESCAPE '%s'", column, LikeEscape)
			args[i] = suffixPattern(ext)
		}
		w.add("("+strings.Join(preds, " OR ")+")", args...)
	}
	return nil
}

const symbolCTE = `WITH sym AS (
  SELECT e.id AS row_id,
         e.data AS data,
         json_extract(e.data, '$.name') AS name,
         json_extract(e.data, '$.display_fqn') AS display_fqn,
         json_extract(e.data, '$.fqn') AS fqn,
         json_extract(e.data, '$.canonical_fqn') AS canonical_fqn,
         json_extract(e.data, '$.symbol_id') AS symbol_id,
         lower(COALESCE(json_extract(e.data, '$.kind_normalized'), json_extract(e.data, '$.kind'))) AS kind_normalized,
         CAST(json_extract(e.data, '$.byte_start') AS INTEGER) AS byte_start,
         CAST(json_extract(e.data, '$.byte_end') AS INTEGER) AS byte_end,
         CAST(json_extract(e.data, '$.start_line') AS INTEGER) AS start_line,
         CAST(json_extract(e.data, '$.start_col') AS INTEGER) AS start_col,
         COALESCE(
           (SELECT COALESCE(json_extract(f.data, '$.path'), f.file_path)
              FROM graph_edges d
              JOIN graph_entities f ON f.id = d.from_id
             WHERE d.to_id = e.id AND d.edge_type = 'DEFINES' AND f.kind = 'File'
             ORDER BY d.id LIMIT 1),
           json_extract(e.data, '$.file_path'),
           e.file_path,
           ''
         ) AS file_path
    FROM graph_entities e
   WHERE e.kind = 'Symbol'
)`

// metricSortColumn maps metric sort modes to symbol_metrics columns
var metricSortColumn = map[types.SortMode]string{
	types.SortFanIn:      "m.fan_in",
	types.SortFanOut:     "m.fan_out",
	types.SortComplexity: "m.cyclomatic_complexity",
}

// BuildSymbols plans a symbol search. Filters on tables that don't exist
// are dropped; the statement still filters by name, path and kind.
func BuildSymbols(opts types.SearchOptions, tables storage.Tables) (*Plan, error) {
	opts = opts.Normalized()
	w := &whereClause{}

	switch {
	case opts.HasIdentity():
		if opts.SymbolID != "" {
			w.add("sym.symbol_id = ?", opts.SymbolID)
		}
		if opts.FQN != "" {
			w.add("(sym.fqn = ? OR sym.canonical_fqn = ?)", opts.FQN, opts.FQN)
		}
	case !opts.Regex && opts.Query != "":
		pred, args := likeAny(containsPattern(opts.Query), "sym.name", "sym.display_fqn", "sym.fqn")
		w.add(pred, args...)
	}

	if err := addPathFilters(w, opts, "sym.file_path"); err != nil {
		return nil, err
	}

	if kinds, _ := NormalizeKinds(opts.Kinds); len(kinds) > 0 {
		args := make([]interface{}, len(kinds))
		for i, k := range kinds {
			args[i] = k
		}
		w.add(fmt.Sprintf("sym.kind_normalized IN (%s)", placeholders(len(kinds))), args...)
	}

	if tables.AstNodes && opts.Ast.Active() {
		addAstFilters(w, opts.Ast)
	}
	if tables.Metrics && opts.Metrics.Active() {
		addMetricFilters(w, opts.Metrics)
	}

	set := NewSymbolSet(opts.SymbolSet)
	if set.Active() {
		pred, args := set.Predicate("sym.symbol_id")
		w.add(pred, args...)
	}

	metricCols := "NULL AS fan_in, NULL AS fan_out, NULL AS cyclomatic_complexity"
	join := ""
	if tables.Metrics {
		metricCols = "m.fan_in, m.fan_out, m.cyclomatic_complexity"
		join = "LEFT JOIN symbol_metrics m ON m.symbol_id = sym.symbol_id"
	}

	order, orderArgs := symbolOrder(opts, tables)

	selectSQL := fmt.Sprintf(`%s
SELECT sym.row_id, sym.data, sym.file_path, %s
  FROM sym
  %s
%s
ORDER BY %s
LIMIT ?`, symbolCTE, metricCols, join, w, order)

	countSQL := fmt.Sprintf(`%s
SELECT COUNT(*)
  FROM sym
  %s
%s`, symbolCTE, join, w)

	selectArgs := append(append(append([]interface{}{}, w.args...), orderArgs...), opts.Candidates)

	return &Plan{
		Select:    Statement{SQL: selectSQL, Args: selectArgs},
		Count:     Statement{SQL: countSQL, Args: append([]interface{}{}, w.args...)},
		SymbolSet: set,
	}, nil
}

// anchorExpr selects the id of a symbol's anchor node in the order
// astctx.FindAnchor uses: an overlapping node of a preferred kind (covering
// nodes, then smaller spans first), else the smallest enclosing node, which
// is the exact-span node when one exists.
func anchorExpr(preferred []string) (string, []interface{}) {
	enclosing := `(SELECT an.id FROM ast_nodes an
       WHERE an.byte_start <= sym.byte_start AND an.byte_end >= sym.byte_end
       ORDER BY (an.byte_end - an.byte_start), an.id LIMIT 1)`
	if len(preferred) == 0 {
		return enclosing, nil
	}

	args := make([]interface{}, len(preferred))
	for i, k := range preferred {
		args[i] = k
	}
	return fmt.Sprintf(`COALESCE((SELECT an.id FROM ast_nodes an
       WHERE an.byte_start < sym.byte_end AND an.byte_end > sym.byte_start
         AND an.kind IN (%s)
       ORDER BY (an.byte_start <= sym.byte_start AND an.byte_end >= sym.byte_end) DESC,
                (an.byte_end - an.byte_start), an.id LIMIT 1),
     %s)`, placeholders(len(preferred)), enclosing), args
}

func addAstFilters(w *whereClause, f types.AstFilter) {
	if len(f.Kinds) > 0 {
		args := make([]interface{}, len(f.Kinds))
		for i, k := range f.Kinds {
			args[i] = k
		}
		w.add(fmt.Sprintf(`EXISTS (SELECT 1 FROM ast_nodes a
     WHERE a.byte_start < sym.byte_end AND a.byte_end > sym.byte_start
       AND a.kind IN (%s))`, placeholders(len(f.Kinds))), args...)
	}
	if f.Inside != "" {
		anchor, args := anchorExpr(f.Kinds)
		w.add(fmt.Sprintf(`? = (SELECT p.kind FROM ast_nodes a
     JOIN ast_nodes p ON p.id = a.parent_id
     WHERE a.id = %s)`, anchor), append([]interface{}{f.Inside}, args...)...)
	}
	if f.Contains != "" {
		anchor, args := anchorExpr(f.Kinds)
		w.add(fmt.Sprintf(`EXISTS (SELECT 1 FROM ast_nodes c
     WHERE c.parent_id = %s AND c.kind = ?)`, anchor), append(args, f.Contains)...)
	}
}

func addMetricFilters(w *whereClause, b types.MetricBounds) {
	bounds := []struct {
		column string
		op     string
		value  *int
	}{
		{"m.fan_in", ">=", b.MinFanIn},
		{"m.fan_in", "<=", b.MaxFanIn},
		{"m.fan_out", ">=", b.MinFanOut},
		{"m.fan_out", "<=", b.MaxFanOut},
		{"m.cyclomatic_complexity", ">=", b.MinComplexity},
		{"m.cyclomatic_complexity", "<=", b.MaxComplexity},
	}
	for _, bound := range bounds {
		if bound.value != nil {
			w.add(fmt.Sprintf("%s %s ?", bound.column, bound.op), *bound.value)
		}
	}
}

func symbolOrder(opts types.SearchOptions, tables storage.Tables) (string, []interface{}) {
	switch {
	case opts.Sort.IsMetric():
		if !tables.Metrics {
			return tieBreak, nil
		}
		col := metricSortColumn[opts.Sort]
		return fmt.Sprintf("(%s IS NULL), %s DESC, %s", col, col, tieBreak), nil
	case opts.Sort == types.SortRelevance && !opts.Regex && opts.Query != "":
		expr, args := relevanceExpr(opts.Query, "sym.name", "sym.display_fqn", "sym.fqn")
		return expr + " DESC, " + tieBreak, args
	default:
		return tieBreak, nil
	}
}

// relevanceExpr ranks rows in SQL the same way scoring does in memory, so
// the candidate cap keeps the best rows. Columns are name, display, fqn;
// missing ones are skipped.
func relevanceExpr(q string, name, display, fqn string) (string, []interface{}) {
	type check struct {
		column string
		test   string
		score  int
	}
	checks := []check{
		{name, "exact", 100}, {display, "exact", 95}, {fqn, "exact", 90},
		{name, "prefix", 80}, {display, "prefix", 70},
		{name, "contains", 60}, {display, "contains", 50}, {fqn, "contains", 40},
	}

	var b strings.Builder
	var args []interface{}
	b.WriteString("CASE")
	for _, c := range checks {
		if c.column == "" {
			continue
		}
		switch c.test {
		case "exact":
			fmt.Fprintf(&b, " WHEN %s = ? THEN %d", c.column, c.score)
			args = append(args, q)
		case "prefix":
			fmt.Fprintf(&b, " WHEN substr(%s, 1, length(?)) = ? THEN %d", c.column, c.score)
			args = append(args, q, q)
		case "contains":
			fmt.Fprintf(&b, " WHEN instr(%s, ?) > 0 THEN %d", c.column, c.score)
			args = append(args, q)
		}
	}
	b.WriteString(" ELSE 0 END")
	return b.String(), args
}

const referenceCTE = `WITH ref AS (
  SELECT e.id AS row_id,
         e.data AS data,
         json_extract(e.data, '$.referenced_symbol') AS referenced_symbol,
         COALESCE(json_extract(e.data, '$.file'), e.file_path, '') AS file_path,
         CAST(json_extract(e.data, '$.byte_start') AS INTEGER) AS byte_start,
         CAST(json_extract(e.data, '$.byte_end') AS INTEGER) AS byte_end,
         CAST(json_extract(e.data, '$.start_line') AS INTEGER) AS start_line,
         CAST(json_extract(e.data, '$.start_col') AS INTEGER) AS start_col,
         (SELECT json_extract(s.data, '$.symbol_id')
            FROM graph_edges r JOIN graph_entities s ON s.id = r.to_id
           WHERE r.from_id = e.id AND r.edge_type = 'REFERENCES' AND s.kind = 'Symbol'
           ORDER BY r.id LIMIT 1) AS target_symbol_id,
         (SELECT json_extract(s.data, '$.fqn')
            FROM graph_edges r JOIN graph_entities s ON s.id = r.to_id
           WHERE r.from_id = e.id AND r.edge_type = 'REFERENCES' AND s.kind = 'Symbol'
           ORDER BY r.id LIMIT 1) AS target_fqn
    FROM graph_entities e
   WHERE e.kind = 'Reference'
)`

// BuildReferences plans a reference search. The query matches the
// referenced name; the symbol set matches the reference target.
func BuildReferences(opts types.SearchOptions) (*Plan, error) {
	opts = opts.Normalized()
	w := &whereClause{}

	if !opts.Regex && opts.Query != "" {
		pred, args := likeAny(containsPattern(opts.Query), "ref.referenced_symbol")
		w.add(pred, args...)
	}
	if err := addPathFilters(w, opts, "ref.file_path"); err != nil {
		return nil, err
	}

	set := NewSymbolSet(opts.SymbolSet)
	if set.Active() {
		pred, args := set.Predicate("ref.target_symbol_id")
		w.add(pred, args...)
	}

	order, orderArgs := tieBreak, []interface{}(nil)
	if opts.Sort == types.SortRelevance && !opts.Regex && opts.Query != "" {
		expr, args := relevanceExpr(opts.Query, "ref.referenced_symbol", "", "")
		order, orderArgs = expr+" DESC, "+tieBreak, args
	}

	return finishPlan(referenceCTE, "ref",
		"ref.row_id, ref.data, ref.file_path, ref.target_symbol_id, ref.target_fqn",
		w, order, orderArgs, opts.Candidates, set), nil
}

const callCTE = `WITH calls AS (
  SELECT e.id AS row_id,
         e.data AS data,
         json_extract(e.data, '$.caller') AS caller,
         json_extract(e.data, '$.callee') AS callee,
         json_extract(e.data, '$.caller_symbol_id') AS caller_symbol_id,
         json_extract(e.data, '$.callee_symbol_id') AS callee_symbol_id,
         COALESCE(json_extract(e.data, '$.file'), e.file_path, '') AS file_path,
         CAST(json_extract(e.data, '$.byte_start') AS INTEGER) AS byte_start,
         CAST(json_extract(e.data, '$.byte_end') AS INTEGER) AS byte_end,
         CAST(json_extract(e.data, '$.start_line') AS INTEGER) AS start_line,
         CAST(json_extract(e.data, '$.start_col') AS INTEGER) AS start_col
    FROM graph_entities e
   WHERE e.kind = 'Call'
)`

// BuildCalls plans a call search. The query and the symbol set each match
// either end of the call.
func BuildCalls(opts types.SearchOptions) (*Plan, error) {
	opts = opts.Normalized()
	w := &whereClause{}

	if !opts.Regex && opts.Query != "" {
		pred, args := likeAny(containsPattern(opts.Query), "calls.caller", "calls.callee")
		w.add(pred, args...)
	}
	if err := addPathFilters(w, opts, "calls.file_path"); err != nil {
		return nil, err
	}

	set := NewSymbolSet(opts.SymbolSet)
	if set.Active() {
		callerPred, callerArgs := set.Predicate("calls.caller_symbol_id")
		calleePred, calleeArgs := set.Predicate("calls.callee_symbol_id")
		w.add("("+callerPred+" OR "+calleePred+")", append(callerArgs, calleeArgs...)...)
	}

	order, orderArgs := tieBreak, []interface{}(nil)
	if opts.Sort == types.SortRelevance && !opts.Regex && opts.Query != "" {
		callerExpr, callerArgs := relevanceExpr(opts.Query, "calls.caller", "", "")
		calleeExpr, calleeArgs := relevanceExpr(opts.Query, "calls.callee", "", "")
		order = fmt.Sprintf("max(%s, %s) DESC, %s", callerExpr, calleeExpr, tieBreak)
		orderArgs = append(callerArgs, calleeArgs...)
	}

	return finishPlan(callCTE, "calls", "calls.row_id, calls.data, calls.file_path",
		w, order, orderArgs, opts.Candidates, set), nil
}

func finishPlan(cte, alias, columns string, w *whereClause, order string, orderArgs []interface{}, candidates int, set *SymbolSet) *Plan {
	selectSQL := fmt.Sprintf(`%s
SELECT %s
  FROM %s
%s
ORDER BY %s
LIMIT ?`, cte, columns, alias, w, order)

	countSQL := fmt.Sprintf(`%s
SELECT COUNT(*)
  FROM %s
%s`, cte, alias, w)

	selectArgs := append(append(append([]interface{}{}, w.args...), orderArgs...), candidates)
	return &Plan{
		Select:    Statement{SQL: selectSQL, Args: selectArgs},
		Count:     Statement{SQL: countSQL, Args: append([]interface{}{}, w.args...)},
		SymbolSet: set,
	}
}
