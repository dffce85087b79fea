package backend

import (
	"context"
	"database/sql"

	"github.com/oldnordic/llmgrep/internal/searcher"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// sqliteBackend queries a graph database file in place
type sqliteBackend struct {
	path     string
	db       *sql.DB
	searcher *searcher.Searcher
}

func openSQLite(ctx context.Context, path string, s *searcher.Searcher) (*sqliteBackend, error) {
	db, err := storage.OpenReadOnly(ctx, path)
	if err != nil {
		return nil, err
	}
	return &sqliteBackend{path: path, db: db, searcher: s}, nil
}

func (b *sqliteBackend) sealed() {}

func (b *sqliteBackend) Kind() Kind {
	return KindSQLite
}

func (b *sqliteBackend) Path() string {
	return b.path
}

func (b *sqliteBackend) SearchSymbols(ctx context.Context, opts types.SearchOptions) (*types.SymbolResponse, error) {
	if err := searcher.Validate(searcher.KindSymbols, opts); err != nil {
		return nil, err
	}
	resp, err := b.searcher.Symbols(ctx, b.db, b.path, opts)
	if err != nil {
		return nil, wrapQuery("symbol search", b.path, err)
	}
	return resp, nil
}

func (b *sqliteBackend) SearchReferences(ctx context.Context, opts types.SearchOptions) (*types.ReferenceResponse, error) {
	if err := searcher.Validate(searcher.KindReferences, opts); err != nil {
		return nil, err
	}
	resp, err := b.searcher.References(ctx, b.db, opts)
	if err != nil {
		return nil, wrapQuery("reference search", b.path, err)
	}
	return resp, nil
}

func (b *sqliteBackend) SearchCalls(ctx context.Context, opts types.SearchOptions) (*types.CallResponse, error) {
	if err := searcher.Validate(searcher.KindCalls, opts); err != nil {
		return nil, err
	}
	resp, err := b.searcher.Calls(ctx, b.db, opts)
	if err != nil {
		return nil, wrapQuery("call search", b.path, err)
	}
	return resp, nil
}

func (b *sqliteBackend) Complete(ctx context.Context, prefix string, limit int) ([]string, error) {
	return nil, &UnsupportedError{Command: "complete", Path: b.path, Backend: KindSQLite}
}

func (b *sqliteBackend) LookupExact(ctx context.Context, fqn string) ([]types.SymbolMatch, error) {
	return nil, &UnsupportedError{Command: "lookup", Path: b.path, Backend: KindSQLite}
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
