package searcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/oldnordic/llmgrep/internal/astctx"
	"github.com/oldnordic/llmgrep/internal/source"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// enricher fills the optional fields of matches for one query. Every
// failure degrades a single field to absent and is recorded as a warning.
type enricher struct {
	q        storage.Querier
	tables   storage.Tables
	opts     types.SearchOptions
	files    *source.FileCache
	ast      *astctx.Enricher
	warnings *warnings
	badFiles map[string]bool
}

func newEnricher(q storage.Querier, tables storage.Tables, opts types.SearchOptions, w *warnings) *enricher {
	e := &enricher{
		q:        q,
		tables:   tables,
		opts:     opts,
		files:    source.NewFileCache(opts.Root, source.DefaultCacheSize),
		warnings: w,
		badFiles: make(map[string]bool),
	}
	if tables.AstNodes {
		e.ast = astctx.New(q)
	}
	return e
}

func (e *enricher) unreadable(path string) {
	if e.badFiles[path] {
		return
	}
	e.badFiles[path] = true
	e.warnings.add("cannot read %s; context and snippets omitted", path)
}

func (e *enricher) context(span types.Span) *types.ContextLines {
	if !e.opts.WithContext {
		return nil
	}
	lines, ok := e.files.Lines(span.FilePath)
	if !ok {
		e.unreadable(span.FilePath)
		return nil
	}
	n := types.DefaultContextLines
	if e.opts.ContextLines != nil {
		n = *e.opts.ContextLines
	}
	return source.ContextWindow(lines, span.StartLine, span.EndLine, n)
}

func (e *enricher) snippet(ctx context.Context, span types.Span) *types.Snippet {
	if !e.opts.WithSnippet {
		return nil
	}

	if e.tables.Chunks {
		chunk, err := storage.LookupChunk(ctx, e.q, span.FilePath, span.ByteStart, span.ByteEnd)
		switch {
		case err == nil:
			return source.SnippetFromChunk(chunk, e.opts.MaxSnippetBytes)
		case !errors.Is(err, storage.ErrNotFound):
			e.warnings.add("chunk lookup for %s failed: %v", span.FilePath, err)
		}
	}

	data, ok := e.files.Bytes(span.FilePath)
	if !ok {
		e.unreadable(span.FilePath)
		return nil
	}
	snippet, err := source.SnippetFromFile(data, span.ByteStart, span.ByteEnd, e.opts.MaxSnippetBytes)
	if err != nil {
		e.warnings.add("snippet for %s [%d, %d) unavailable: %v", span.FilePath, span.ByteStart, span.ByteEnd, err)
		return nil
	}
	return snippet
}

// anchor finds the AST node for a span, preferring the requested kinds so
// AST-kind filtering and enrichment agree. It returns nil without an ast
// table or an anchor.
func (e *enricher) anchor(ctx context.Context, span types.Span) *types.AstNode {
	if e.ast == nil {
		return nil
	}
	node, err := e.ast.FindAnchor(ctx, span.ByteStart, span.ByteEnd, e.opts.Ast.Kinds)
	if err != nil {
		e.warnings.add("ast lookup for %s [%d, %d) failed: %v", span.FilePath, span.ByteStart, span.ByteEnd, err)
		return nil
	}
	return node
}

func (e *enricher) astContext(ctx context.Context, span types.Span) *types.AstContext {
	if !e.opts.WithAstContext {
		return nil
	}
	node := e.anchor(ctx, span)
	if node == nil {
		return nil
	}
	out, warns := e.ast.Enrich(ctx, node, astctx.AllFields)
	for _, w := range warns {
		e.warnings.add("%s", w)
	}
	return out
}

// keepDepth applies the decision-depth bounds. Matches without an anchor,
// or whose depth can't be computed, are kept.
func (e *enricher) keepDepth(ctx context.Context, span types.Span) bool {
	node := e.anchor(ctx, span)
	if node == nil {
		return true
	}
	walk, warning, err := e.ast.Ancestors(ctx, node)
	if warning != "" {
		e.warnings.add("%s", warning)
	}
	if err != nil {
		e.warnings.add("decision depth for %s [%d, %d) unavailable: %v", span.FilePath, span.ByteStart, span.ByteEnd, err)
		return true
	}
	f := e.opts.Ast
	if f.MinDepth != nil && walk.DecisionDepth < *f.MinDepth {
		return false
	}
	if f.MaxDepth != nil && walk.DecisionDepth > *f.MaxDepth {
		return false
	}
	return true
}

// warnings collects non-fatal advisories for a response
type warnings struct {
	list []string
	seen map[string]bool
}

func (w *warnings) add(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.seen == nil {
		w.seen = make(map[string]bool)
	}
	if w.seen[msg] {
		return
	}
	w.seen[msg] = true
	w.list = append(w.list, msg)
}
