package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldnordic/llmgrep/internal/backend"
	"github.com/oldnordic/llmgrep/internal/config"
	"github.com/oldnordic/llmgrep/internal/graphtest"
	"github.com/oldnordic/llmgrep/internal/searcher"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

func fixture(t *testing.T) string {
	t.Helper()
	g := graphtest.New(t, storage.FullSchema)
	parse := graphtest.Symbol("parse", 0, 40, 1)
	id := g.AddSymbol("src/lib.rs", parse)
	g.AddSymbol("src/lib.rs", graphtest.Symbol("render", 50, 90, 5))
	g.AddReference(types.ReferenceNode{File: "src/main.rs", ReferencedSymbol: "parse", ByteStart: 3, ByteEnd: 8, StartLine: 1}, id)
	g.AddMetrics(parse.SymbolID, types.SymbolMetrics{Complexity: graphtest.Int(12)})
	return g.Path
}

// run executes the CLI and returns what it wrote to stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, env := range []string{config.EnvConfig, config.EnvDatabase, config.EnvRoot} {
		t.Setenv(env, "")
	}
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"llmgrep"}, args...))
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	db := fixture(t)

	out, err := run(t, "--db", db, "search", "--kind", "function", "--min-complexity", "10", "parse")
	require.NoError(t, err)

	var resp types.SymbolResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.TotalCount)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "parse", resp.Results[0].Name)
}

func TestRefsCommand(t *testing.T) {
	db := fixture(t)

	out, err := run(t, "--db", db, "refs", "parse")
	require.NoError(t, err)

	var resp types.ReferenceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "src/main.rs", resp.Results[0].Span.FilePath)
}

func TestExportThenComplete(t *testing.T) {
	db := fixture(t)
	snap := filepath.Join(t.TempDir(), "graph.snap")

	_, err := run(t, "--db", db, "export", snap)
	require.NoError(t, err)

	out, err := run(t, "--db", snap, "complete", "crate::")
	require.NoError(t, err)
	var resp struct {
		Names []string `json:"names"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"crate::parse", "crate::render"}, resp.Names)
}

func TestLookupOnSQLite(t *testing.T) {
	db := fixture(t)

	_, err := run(t, "--db", db, "lookup", "crate::parse")
	var unsupported *backend.UnsupportedError
	assert.ErrorAs(t, err, &unsupported)
}

func TestMissingDatabase(t *testing.T) {
	_, err := run(t, "search", "parse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database given")
}

func TestInvalidOptions(t *testing.T) {
	db := fixture(t)

	_, err := run(t, "--db", db, "search", "--regex", "(")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidPattern)
}

func TestValidationBeforeOpen(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")

	_, err := run(t, "--db", missing, "search", "--reachable-from", "a", "--in-cycle")
	var invalid *searcher.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, types.ErrConflictingInput)
	assert.NotErrorIs(t, err, storage.ErrNotFound)

	_, err = run(t, "--db", missing, "calls", "--regex", "(")
	assert.ErrorIs(t, err, types.ErrInvalidPattern)
}
