package searcher

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldnordic/llmgrep/internal/algo"
	"github.com/oldnordic/llmgrep/internal/graphtest"
	"github.com/oldnordic/llmgrep/internal/query"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// mockResolver implements algo.Resolver for testing
type mockResolver struct {
	resolveFunc func(ctx context.Context, req algo.Request) (*algo.Result, error)
	requests    []algo.Request
}

func (m *mockResolver) Resolve(ctx context.Context, req algo.Request) (*algo.Result, error) {
	m.requests = append(m.requests, req)
	return m.resolveFunc(ctx, req)
}

func names(results []types.SymbolMatch) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}

func byName(t *testing.T, results []types.SymbolMatch, name string) types.SymbolMatch {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result named %q", name)
	return types.SymbolMatch{}
}

// seedItems adds item_00..item_29 then other_0..other_4, one per line
func seedItems(t *testing.T) *sql.DB {
	g := graphtest.New(t, storage.SchemaOptions{})
	line := 1
	for i := 0; i < 30; i++ {
		g.AddSymbol("src/items.rs", graphtest.Symbol(fmt.Sprintf("item_%02d", i), line*10, line*10+5, line))
		line++
	}
	for i := 0; i < 5; i++ {
		g.AddSymbol("src/items.rs", graphtest.Symbol(fmt.Sprintf("other_%d", i), line*10, line*10+5, line))
		line++
	}
	return g.Open()
}

func TestSymbolsRankingScenario(t *testing.T) {
	g := graphtest.New(t, storage.SchemaOptions{})
	g.AddSymbol("src/lib.rs", graphtest.Symbol("test_func", 0, 30, 1))
	st := graphtest.Symbol("TestStruct", 40, 90, 3)
	st.Kind, st.KindNormalized = "Struct", "struct"
	g.AddSymbol("src/lib.rs", st)
	g.AddSymbol("src/lib.rs", graphtest.Symbol("helper", 100, 140, 8))

	s := NewSearcher(nil, nil)
	resp, err := s.Symbols(context.Background(), g.Open(), g.Path, types.SearchOptions{Query: "test"})
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, []string{"test_func", "TestStruct"}, names(resp.Results))
	require.NotNil(t, resp.Results[0].Score)
	require.NotNil(t, resp.Results[1].Score)
	assert.Equal(t, 80, *resp.Results[0].Score)
	assert.Equal(t, 0, *resp.Results[1].Score)
	assert.Equal(t, 2, resp.TotalCount)
	assert.False(t, resp.Partial)
	assert.Equal(t, "rust", resp.Results[0].Language)
	assert.Equal(t, "src/lib.rs", resp.Results[0].Span.FilePath)
}

func TestSymbolsCountAndPartial(t *testing.T) {
	db := seedItems(t)
	s := NewSearcher(nil, nil)
	ctx := context.Background()

	tests := []struct {
		candidates  int
		wantResults int
		wantPartial bool
	}{
		{10, 10, true},
		{29, 29, true},
		{30, 30, false},
		{100, 30, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("candidates=%d", tt.candidates), func(t *testing.T) {
			resp, err := s.Symbols(ctx, db, "", types.SearchOptions{Query: "item", Candidates: tt.candidates})
			require.NoError(t, err)
			assert.Equal(t, 30, resp.TotalCount)
			assert.Len(t, resp.Results, tt.wantResults)
			assert.Equal(t, tt.wantPartial, resp.Partial)
			assert.GreaterOrEqual(t, resp.TotalCount, len(resp.Results))
		})
	}

	resp, err := s.Symbols(ctx, db, "", types.SearchOptions{Query: "item", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 5)
	assert.Equal(t, 30, resp.TotalCount)
	assert.False(t, resp.Partial)
}

func TestSymbolsRegexPartial(t *testing.T) {
	db := seedItems(t)
	s := NewSearcher(nil, nil)
	ctx := context.Background()

	// First 20 rows are item_00..item_19; ten of them match
	resp, err := s.Symbols(ctx, db, "", types.SearchOptions{Query: "^item_0", Regex: true, Candidates: 20})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 10)
	assert.Equal(t, 10, resp.TotalCount)
	assert.True(t, resp.Partial)
	for _, r := range resp.Results {
		require.NotNil(t, r.Score)
		assert.Equal(t, 70, *r.Score)
	}

	resp, err = s.Symbols(ctx, db, "", types.SearchOptions{Query: "^item_0", Regex: true, Candidates: 100})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.TotalCount)
	assert.False(t, resp.Partial)

	// Known approximation: no regex match among a full batch still reads as partial
	resp, err = s.Symbols(ctx, db, "", types.SearchOptions{Query: "^other", Regex: true, Candidates: 20})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.TotalCount)
	assert.True(t, resp.Partial)

	resp, err = s.Symbols(ctx, db, "", types.SearchOptions{Query: "_", Regex: true, Candidates: 7, Limit: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), 3)
	assert.True(t, resp.Partial)
}

func TestSymbolsDeterministic(t *testing.T) {
	db := seedItems(t)
	s := NewSearcher(nil, nil)
	ctx := context.Background()
	opts := types.SearchOptions{Query: "_", Candidates: 12, Limit: 8}

	first, err := s.Symbols(ctx, db, "", opts)
	require.NoError(t, err)
	second, err := s.Symbols(ctx, db, "", opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, r := range first.Results {
		assert.Equal(t, types.MatchID(r.Span.FilePath, r.Span.ByteStart, r.Span.ByteEnd, r.Name), r.MatchID)
		assert.Equal(t, types.SpanID(r.Span.FilePath, r.Span.ByteStart, r.Span.ByteEnd), r.SpanID)
		assert.Len(t, r.MatchID, 16)
	}
}

func TestSymbolsMetrics(t *testing.T) {
	g := graphtest.New(t, storage.SchemaOptions{Metrics: true})
	for i, c := range []int{5, 15, 25} {
		sym := graphtest.Symbol(fmt.Sprintf("cx%d", c), i*10, i*10+5, i+1)
		g.AddSymbol("src/lib.rs", sym)
		g.AddMetrics(sym.SymbolID, types.SymbolMetrics{Complexity: graphtest.Int(c), FanIn: graphtest.Int(i)})
	}
	g.AddSymbol("src/lib.rs", graphtest.Symbol("unmeasured", 100, 105, 20))
	db := g.Open()
	s := NewSearcher(nil, nil)
	ctx := context.Background()

	resp, err := s.Symbols(ctx, db, "", types.SearchOptions{
		Metrics: types.MetricBounds{MinComplexity: graphtest.Int(10)},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cx15", "cx25"}, names(resp.Results))
	assert.Equal(t, 2, resp.TotalCount)

	resp, err = s.Symbols(ctx, db, "", types.SearchOptions{Sort: types.SortComplexity})
	require.NoError(t, err)
	assert.Equal(t, []string{"cx25", "cx15", "cx5", "unmeasured"}, names(resp.Results))
	for _, r := range resp.Results {
		assert.Nil(t, r.Score, "metric sort reports no score")
	}
	unmeasured := byName(t, resp.Results, "unmeasured")
	assert.True(t, unmeasured.Metrics.IsZero())
	assert.Equal(t, 25, *byName(t, resp.Results, "cx25").Metrics.Complexity)

	resp, err = s.Symbols(ctx, db, "", types.SearchOptions{Sort: types.SortPosition})
	require.NoError(t, err)
	assert.Equal(t, []string{"cx5", "cx15", "cx25", "unmeasured"}, names(resp.Results))
	for _, r := range resp.Results {
		assert.Nil(t, r.Score)
	}
}

func TestSymbolsMissingOptionalTables(t *testing.T) {
	g := graphtest.New(t, storage.SchemaOptions{})
	g.AddSymbol("src/lib.rs", graphtest.Symbol("alpha", 0, 5, 1))
	s := NewSearcher(nil, nil)

	resp, err := s.Symbols(context.Background(), g.Open(), "", types.SearchOptions{
		Query:          "alpha",
		Metrics:        types.MetricBounds{MinFanIn: graphtest.Int(3)},
		Ast:            types.AstFilter{Inside: "impl_item", MinDepth: graphtest.Int(2)},
		Sort:           types.SortFanIn,
		WithAstContext: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Nil(t, resp.Results[0].Ast)
	assert.True(t, resp.Results[0].Metrics.IsZero())
}

func TestSymbolsEmptySymbolSet(t *testing.T) {
	db := seedItems(t)
	s := NewSearcher(nil, nil)
	ctx := context.Background()

	without, err := s.Symbols(ctx, db, "", types.SearchOptions{Query: "other"})
	require.NoError(t, err)
	with, err := s.Symbols(ctx, db, "", types.SearchOptions{Query: "other", SymbolSet: []string{}})
	require.NoError(t, err)
	assert.Equal(t, without, with)
	assert.Len(t, with.Results, 5)
}

func TestSymbolsSymbolSetStrategies(t *testing.T) {
	db := seedItems(t)
	s := NewSearcher(nil, nil)
	ctx := context.Background()

	wanted := []string{graphtest.SymbolID("item_03"), graphtest.SymbolID("item_17"), graphtest.SymbolID("other_2")}
	padded := append([]string{}, wanted...)
	for i := 0; len(padded) <= 600; i++ {
		padded = append(padded, graphtest.SymbolID(fmt.Sprintf("absent_%d", i)))
	}

	inline, err := s.Symbols(ctx, db, "", types.SearchOptions{SymbolSet: wanted, Groups: map[string]string{wanted[0]: "g"}})
	require.NoError(t, err)
	temp, err := s.Symbols(ctx, db, "", types.SearchOptions{SymbolSet: padded, Groups: map[string]string{wanted[0]: "g"}})
	require.NoError(t, err)

	assert.Equal(t, inline, temp)
	assert.Equal(t, []string{"item_03", "item_17", "other_2"}, names(temp.Results))
	assert.Equal(t, "g", byName(t, temp.Results, "item_03").Group)
}

func TestSymbolsValidation(t *testing.T) {
	s := NewSearcher(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		opts types.SearchOptions
		want error
	}{
		{"two algorithms", types.SearchOptions{Algorithm: types.AlgorithmFilter{ReachableFrom: "a", InCycle: true}}, types.ErrConflictingInput},
		{"algorithm and symbol set", types.SearchOptions{Algorithm: types.AlgorithmFilter{DeadCodeFrom: "a"}, SymbolSet: []string{"b"}}, types.ErrConflictingInput},
		{"bad regex", types.SearchOptions{Query: "([", Regex: true}, types.ErrInvalidPattern},
		{"huge regex", types.SearchOptions{Query: string(bytes.Repeat([]byte("a"), MaxPatternBytes+1)), Regex: true}, types.ErrInvalidPattern},
		{"regex program too large", types.SearchOptions{Query: "(abcdefghijklmnopqrstuvwxyz){999}", Regex: true}, types.ErrInvalidPattern},
		{"min above max", types.SearchOptions{Metrics: types.MetricBounds{MinFanIn: graphtest.Int(5), MaxFanIn: graphtest.Int(2)}}, types.ErrInvalidBounds},
		{"depth min above max", types.SearchOptions{Ast: types.AstFilter{MinDepth: graphtest.Int(3), MaxDepth: graphtest.Int(1)}}, types.ErrInvalidBounds},
		{"unknown sort", types.SearchOptions{Sort: "alphabetical"}, types.ErrInvalidSortMode},
		{"unknown language", types.SearchOptions{Language: "cobol"}, types.ErrUnknownLanguage},
		{"bad slice direction", types.SearchOptions{Algorithm: types.AlgorithmFilter{SliceFrom: "a", SliceDirection: "sideways"}}, types.ErrInvalidDirection},
		{"bad regex with identity", types.SearchOptions{Query: "([", Regex: true, SymbolID: "abc"}, types.ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A nil handle proves validation happens before any I/O
			_, err := s.Symbols(ctx, nil, "", tt.opts)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := s.References(ctx, nil, types.SearchOptions{Sort: types.SortFanIn})
	assert.ErrorIs(t, err, types.ErrInvalidSortMode)
	_, err = s.Calls(ctx, nil, types.SearchOptions{Sort: types.SortComplexity})
	assert.ErrorIs(t, err, types.ErrInvalidSortMode)
	_, err = s.Calls(ctx, nil, types.SearchOptions{Query: "(", Regex: true})
	assert.ErrorIs(t, err, types.ErrInvalidPattern)
}

func TestRegexProgramSizeLimit(t *testing.T) {
	s := NewSearcher(nil, nil)

	// Short source, large compiled program
	pattern := strings.Repeat("[a-z]{999}", 12)
	require.Less(t, len(pattern), MaxPatternBytes)

	_, err := s.Symbols(context.Background(), nil, "", types.SearchOptions{Query: pattern, Regex: true})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, types.ErrInvalidPattern)
	assert.Contains(t, verr.Reason, "compiled program")

	_, err = s.References(context.Background(), nil, types.SearchOptions{Query: pattern, Regex: true})
	assert.ErrorIs(t, err, types.ErrInvalidPattern)

	// Just under the ceiling still compiles
	_, err = compilePattern(strings.Repeat("[a-z]{999}", 9))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(KindSymbols, types.SearchOptions{Query: "parse", Sort: types.SortComplexity}))
	assert.NoError(t, Validate(KindCalls, types.SearchOptions{WithContext: true, ContextLines: graphtest.Int(0)}))

	err := Validate(KindReferences, types.SearchOptions{Sort: types.SortFanIn})
	assert.ErrorIs(t, err, types.ErrInvalidSortMode)

	err = Validate(KindSymbols, types.SearchOptions{Algorithm: types.AlgorithmFilter{ReachableFrom: "a", InCycle: true}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "filters", verr.Field)

	err = Validate(KindCalls, types.SearchOptions{Query: "[", Regex: true, FQN: "crate::x"})
	assert.ErrorIs(t, err, types.ErrInvalidPattern)

	err = Validate(KindSymbols, types.SearchOptions{WithContext: true, ContextLines: graphtest.Int(-2)})
	assert.ErrorIs(t, err, types.ErrInvalidBounds)

	assert.Error(t, Validate(Kind("files"), types.SearchOptions{}))
}

// leftoverSymbolSets counts the temporary symbol-set tables visible on conn
func leftoverSymbolSets(t *testing.T, conn *sql.Conn) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM temp.sqlite_master WHERE type = 'table' AND name LIKE 'llmgrep_symbol_set_%'`).Scan(&n))
	return n
}

func TestSymbolSetDroppedOnError(t *testing.T) {
	db := seedItems(t)
	ctx := context.Background()

	ids := make([]string, 0, 600)
	for i := 0; i < 600; i++ {
		ids = append(ids, graphtest.SymbolID(fmt.Sprintf("id_%d", i)))
	}

	tests := []struct {
		name   string
		plan   func(set *query.SymbolSet) *query.Plan
		scan   func(*sql.Rows) error
		errMsg string
	}{
		{
			name: "select fails",
			plan: func(set *query.SymbolSet) *query.Plan {
				pred, _ := set.Predicate("symbol_id")
				return &query.Plan{
					Count:     query.Statement{SQL: "SELECT COUNT(*) FROM " + set.Table},
					Select:    query.Statement{SQL: "SELECT symbol_id FROM nowhere WHERE " + pred},
					SymbolSet: set,
				}
			},
			scan:   func(*sql.Rows) error { return nil },
			errMsg: "nowhere",
		},
		{
			name: "scan fails",
			plan: func(set *query.SymbolSet) *query.Plan {
				return &query.Plan{
					Count:     query.Statement{SQL: "SELECT COUNT(*) FROM " + set.Table},
					Select:    query.Statement{SQL: "SELECT symbol_id FROM " + set.Table},
					SymbolSet: set,
				}
			},
			scan:   func(*sql.Rows) error { return errors.New("decode failed") },
			errMsg: "decode failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := types.SearchOptions{SymbolSet: ids}.Normalized()
			sr, err := begin(ctx, db, opts, nil)
			require.NoError(t, err)
			defer sr.close()

			set := query.NewSymbolSet(ids)
			require.Equal(t, query.StrategyTempTable, set.Strategy)

			_, _, err = sr.execute(ctx, tt.plan(set), tt.scan)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Zero(t, leftoverSymbolSets(t, sr.conn))
		})
	}
}

func TestSymbolsAlgorithmFilter(t *testing.T) {
	db := seedItems(t)
	ctx := context.Background()

	t.Run("restricts to resolved set", func(t *testing.T) {
		resolver := &mockResolver{resolveFunc: func(ctx context.Context, req algo.Request) (*algo.Result, error) {
			return &algo.Result{
				IDs:     []string{graphtest.SymbolID("item_01"), graphtest.SymbolID("other_4")},
				Groups:  map[string]string{graphtest.SymbolID("other_4"): "scc-1"},
				Bounded: true,
			}, nil
		}}
		s := NewSearcher(resolver, nil)

		resp, err := s.Symbols(ctx, db, "graph.db", types.SearchOptions{
			Algorithm: types.AlgorithmFilter{ReachableFrom: "main-id"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"item_01", "other_4"}, names(resp.Results))
		assert.True(t, resp.Bounded)
		assert.Equal(t, "scc-1", byName(t, resp.Results, "other_4").Group)
		assert.Empty(t, byName(t, resp.Results, "item_01").Group)

		require.Len(t, resolver.requests, 1)
		assert.Equal(t, algo.Request{Kind: algo.KindReachable, DBPath: "graph.db", SymbolID: "main-id"}, resolver.requests[0])
	})

	t.Run("empty resolved set matches nothing", func(t *testing.T) {
		s := NewSearcher(&mockResolver{resolveFunc: func(ctx context.Context, req algo.Request) (*algo.Result, error) {
			return &algo.Result{}, nil
		}}, nil)
		resp, err := s.Symbols(ctx, db, "graph.db", types.SearchOptions{Algorithm: types.AlgorithmFilter{InCycle: true}})
		require.NoError(t, err)
		assert.Empty(t, resp.Results)
		assert.Equal(t, 0, resp.TotalCount)
	})

	t.Run("collaborator failure", func(t *testing.T) {
		s := NewSearcher(&mockResolver{resolveFunc: func(ctx context.Context, req algo.Request) (*algo.Result, error) {
			return nil, &algo.Error{Kind: req.Kind, Reason: "symbol not found"}
		}}, nil)
		_, err := s.Symbols(ctx, db, "graph.db", types.SearchOptions{Algorithm: types.AlgorithmFilter{SliceFrom: "x"}})
		var algoErr *algo.Error
		require.ErrorAs(t, err, &algoErr)
		assert.Equal(t, "symbol not found", algoErr.Reason)
	})

	t.Run("no resolver", func(t *testing.T) {
		_, err := NewSearcher(nil, nil).Symbols(ctx, db, "graph.db", types.SearchOptions{Algorithm: types.AlgorithmFilter{InCycle: true}})
		var algoErr *algo.Error
		assert.True(t, errors.As(err, &algoErr))
	})
}

func TestSymbolsAmbiguity(t *testing.T) {
	g := graphtest.New(t, storage.SchemaOptions{})
	a := graphtest.Symbol("parse", 0, 10, 1)
	a.FQN, a.DisplayFQN, a.SymbolID = "crate::a::parse", "a::parse", graphtest.SymbolID("a::parse")
	b := graphtest.Symbol("parse", 0, 10, 1)
	b.FQN, b.DisplayFQN, b.SymbolID = "crate::b::parse", "b::parse", graphtest.SymbolID("b::parse")
	g.AddSymbol("src/a.rs", a)
	g.AddSymbol("src/b.rs", b)
	g.AddSymbol("src/c.rs", graphtest.Symbol("parse_all", 0, 10, 1))
	db := g.Open()
	ctx := context.Background()

	var logs bytes.Buffer
	s := NewSearcher(nil, log.New(&logs, "", 0))

	resp, err := s.Symbols(ctx, db, "", types.SearchOptions{Query: "parse"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "ambiguous name 'parse' matches 2 symbols")
	assert.Contains(t, resp.Warnings[0], "crate::a::parse ("+a.SymbolID+")")
	assert.Contains(t, resp.Warnings[0], "crate::b::parse ("+b.SymbolID+")")
	assert.Contains(t, logs.String(), "warning: ambiguous name 'parse'")

	resp, err = s.Symbols(ctx, db, "", types.SearchOptions{Query: "parse", FQN: "crate::a::parse"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, a.SymbolID, resp.Results[0].SymbolID)
	assert.Empty(t, resp.Warnings)
	require.NotNil(t, resp.Results[0].Score)
	assert.Equal(t, 100, *resp.Results[0].Score)
}

func TestSymbolsDepthFilter(t *testing.T) {
	g := graphtest.New(t, storage.SchemaOptions{AstNodes: true})
	g.AddSymbol("src/lib.rs", graphtest.Symbol("flat", 0, 50, 1))
	g.AddSymbol("src/lib.rs", graphtest.Symbol("nested", 100, 120, 10))
	g.AddSymbol("src/lib.rs", graphtest.Symbol("orphan", 500, 510, 40))

	root := g.AddAstNode(types.AstNode{Kind: "source_file", ByteStart: 0, ByteEnd: 400})
	g.AddAstNode(types.AstNode{ParentID: &root, Kind: "function_item", ByteStart: 0, ByteEnd: 50})
	fn := g.AddAstNode(types.AstNode{ParentID: &root, Kind: "function_item", ByteStart: 60, ByteEnd: 300})
	loop := g.AddAstNode(types.AstNode{ParentID: &fn, Kind: "for_expression", ByteStart: 90, ByteEnd: 200})
	g.AddAstNode(types.AstNode{ParentID: &loop, Kind: "if_expression", ByteStart: 100, ByteEnd: 120})
	db := g.Open()
	s := NewSearcher(nil, nil)
	ctx := context.Background()

	resp, err := s.Symbols(ctx, db, "", types.SearchOptions{Ast: types.AstFilter{MinDepth: graphtest.Int(1)}, Sort: types.SortPosition})
	require.NoError(t, err)
	assert.Equal(t, []string{"nested", "orphan"}, names(resp.Results))
	assert.Equal(t, 2, resp.TotalCount)

	resp, err = s.Symbols(ctx, db, "", types.SearchOptions{Ast: types.AstFilter{MaxDepth: graphtest.Int(0)}, Sort: types.SortPosition})
	require.NoError(t, err)
	assert.Equal(t, []string{"flat", "orphan"}, names(resp.Results))

	resp, err = s.Symbols(ctx, db, "", types.SearchOptions{Query: "nested", WithAstContext: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	ast := resp.Results[0].Ast
	require.NotNil(t, ast)
	assert.Equal(t, "if_expression", ast.Kind)
	require.NotNil(t, ast.DecisionDepth)
	assert.Equal(t, 2, *ast.DecisionDepth)
	require.NotNil(t, ast.Depth)
	assert.Equal(t, 3, *ast.Depth)
	require.NotNil(t, ast.ParentKind)
	assert.Equal(t, "for_expression", *ast.ParentKind)
}

func TestSymbolsEnrichment(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "lib.rs"),
		[]byte("fn alpha() {}\nfn beta() {}\nfn gamma() {}\n"), 0o644))

	g := graphtest.New(t, storage.FullSchema)
	g.AddSymbol("src/lib.rs", graphtest.Symbol("alpha", 0, 13, 1))
	g.AddSymbol("src/lib.rs", graphtest.Symbol("beta", 14, 26, 2))
	g.AddSymbol("missing.rs", graphtest.Symbol("ghost", 0, 10, 1))
	g.AddChunk(types.CodeChunk{FilePath: "src/lib.rs", ByteStart: 14, ByteEnd: 26, Content: "fn beta() {}", ContentHash: "h-beta"})
	file := g.AddAstNode(types.AstNode{Kind: "source_file", ByteStart: 0, ByteEnd: 41})
	g.AddAstNode(types.AstNode{ParentID: &file, Kind: "function_item", ByteStart: 0, ByteEnd: 13})
	db := g.Open()
	s := NewSearcher(nil, nil)

	resp, err := s.Symbols(context.Background(), db, "", types.SearchOptions{
		Root:           root,
		Sort:           types.SortPosition,
		WithContext:    true,
		ContextLines:   graphtest.Int(1),
		WithSnippet:    true,
		WithAstContext: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	alpha := byName(t, resp.Results, "alpha")
	require.NotNil(t, alpha.Context)
	assert.Empty(t, alpha.Context.Before)
	assert.Equal(t, []string{"fn alpha() {}"}, alpha.Context.Lines)
	assert.Equal(t, []string{"fn beta() {}"}, alpha.Context.After)
	assert.True(t, alpha.Context.Truncated)
	require.NotNil(t, alpha.Snippet)
	assert.Equal(t, "fn alpha() {}", alpha.Snippet.Content)
	assert.Equal(t, "file", alpha.Snippet.Source)
	require.NotNil(t, alpha.Ast)
	assert.Equal(t, "function_item", alpha.Ast.Kind)
	require.NotNil(t, alpha.Ast.ParentKind)
	assert.Equal(t, "source_file", *alpha.Ast.ParentKind)

	beta := byName(t, resp.Results, "beta")
	require.NotNil(t, beta.Snippet)
	assert.Equal(t, "chunk", beta.Snippet.Source)
	assert.Equal(t, "h-beta", beta.Snippet.ContentHash)
	require.NotNil(t, beta.Context)
	assert.Equal(t, []string{"fn alpha() {}"}, beta.Context.Before)
	assert.False(t, beta.Context.Truncated)

	ghost := byName(t, resp.Results, "ghost")
	assert.Nil(t, ghost.Context)
	assert.Nil(t, ghost.Snippet)
	assert.Contains(t, resp.Warnings, "cannot read missing.rs; context and snippets omitted")

	resp, err = s.Symbols(context.Background(), db, "", types.SearchOptions{
		Query: "alpha", Root: root, WithSnippet: true, MaxSnippetBytes: 5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "fn al", resp.Results[0].Snippet.Content)
	assert.True(t, resp.Results[0].Snippet.Truncated)
}

func TestSymbolsKindWarnings(t *testing.T) {
	db := seedItems(t)
	var logs bytes.Buffer
	s := NewSearcher(nil, log.New(&logs, "", 0))

	resp, err := s.Symbols(context.Background(), db, "", types.SearchOptions{Kinds: []string{"fnction"}})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, []string{"unknown kind 'fnction' (did you mean 'function'?)"}, resp.Warnings)
	assert.Contains(t, logs.String(), "warning: unknown kind 'fnction'")
}

func seedCallGraph(t *testing.T) *sql.DB {
	g := graphtest.New(t, storage.SchemaOptions{})
	parse := graphtest.Symbol("parse", 0, 50, 1)
	parseID := g.AddSymbol("src/lib.rs", parse)
	g.AddReference(types.ReferenceNode{File: "src/main.rs", ReferencedSymbol: "parse_all", ByteStart: 5, ByteEnd: 14, StartLine: 1}, 0)
	g.AddReference(types.ReferenceNode{File: "src/main.rs", ReferencedSymbol: "parse", ByteStart: 30, ByteEnd: 35, StartLine: 3}, parseID)
	g.AddReference(types.ReferenceNode{File: "src/main.rs", ReferencedSymbol: "other", ByteStart: 50, ByteEnd: 55, StartLine: 5}, 0)
	g.AddCall(types.CallNode{File: "src/main.rs", Caller: "main", Callee: "reparse", ByteStart: 5, ByteEnd: 14, StartLine: 1})
	g.AddCall(types.CallNode{File: "src/main.rs", Caller: "main", Callee: "parse", CalleeSymbolID: parse.SymbolID, ByteStart: 30, ByteEnd: 37, StartLine: 3})
	g.AddCall(types.CallNode{File: "src/main.rs", Caller: "run", Callee: "exit", ByteStart: 60, ByteEnd: 66, StartLine: 7})
	return g.Open()
}

func TestReferences(t *testing.T) {
	db := seedCallGraph(t)
	s := NewSearcher(nil, nil)
	ctx := context.Background()

	resp, err := s.References(ctx, db, types.SearchOptions{Query: "parse"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "parse", resp.Results[0].ReferencedSymbol)
	assert.Equal(t, 100, *resp.Results[0].Score)
	assert.Equal(t, graphtest.SymbolID("parse"), resp.Results[0].TargetSymbolID)
	assert.Equal(t, "crate::parse", resp.Results[0].TargetFQN)
	assert.Equal(t, "parse_all", resp.Results[1].ReferencedSymbol)
	assert.Equal(t, 80, *resp.Results[1].Score)
	assert.Equal(t, 2, resp.TotalCount)
	assert.False(t, resp.Partial)

	resp, err = s.References(ctx, db, types.SearchOptions{SymbolSet: []string{graphtest.SymbolID("parse")}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 30, resp.Results[0].Span.ByteStart)

	resp, err = s.References(ctx, db, types.SearchOptions{Query: "^p", Regex: true, Candidates: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
	assert.True(t, resp.Partial)

	resp, err = s.References(ctx, db, types.SearchOptions{Query: "parse", Candidates: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, 2, resp.TotalCount)
	assert.True(t, resp.Partial)
}

func TestCalls(t *testing.T) {
	db := seedCallGraph(t)
	s := NewSearcher(nil, nil)
	ctx := context.Background()

	resp, err := s.Calls(ctx, db, types.SearchOptions{Query: "parse"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "parse", resp.Results[0].Callee)
	assert.Equal(t, 100, *resp.Results[0].Score)
	assert.Equal(t, "reparse", resp.Results[1].Callee)
	assert.Equal(t, 60, *resp.Results[1].Score)

	resp, err = s.Calls(ctx, db, types.SearchOptions{Query: "main", Sort: types.SortPosition})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Nil(t, resp.Results[0].Score)
	assert.Equal(t, "reparse", resp.Results[0].Callee)

	resp, err = s.Calls(ctx, db, types.SearchOptions{SymbolSet: []string{graphtest.SymbolID("parse")}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "main", resp.Results[0].Caller)

	resp, err = s.Calls(ctx, db, types.SearchOptions{Query: "zzz"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}
