package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/oldnordic/llmgrep/internal/algo"
	"github.com/oldnordic/llmgrep/internal/searcher"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// Kind names a storage backend
type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindNative Kind = "native"
)

// DefaultCompleteLimit caps Complete when no limit is given
const DefaultCompleteLimit = 20

// Backend is an opened code graph. The set of implementations is closed:
// Open returns either the SQLite or the native variant and never
// re-detects afterwards.
type Backend interface {
	// Kind reports which variant was opened
	Kind() Kind

	// Path is the file the backend was opened from
	Path() string

	// SearchSymbols runs a symbol search
	SearchSymbols(ctx context.Context, opts types.SearchOptions) (*types.SymbolResponse, error)

	// SearchReferences runs a reference search
	SearchReferences(ctx context.Context, opts types.SearchOptions) (*types.ReferenceResponse, error)

	// SearchCalls runs a call search
	SearchCalls(ctx context.Context, opts types.SearchOptions) (*types.CallResponse, error)

	// Complete returns up to limit fully-qualified names starting with prefix
	Complete(ctx context.Context, prefix string, limit int) ([]string, error)

	// LookupExact returns every symbol whose fully-qualified or canonical
	// name equals fqn
	LookupExact(ctx context.Context, fqn string) ([]types.SymbolMatch, error)

	// Close releases the underlying database
	Close() error

	sealed()
}

// Open detects the format of the graph at path and opens it read-only.
// The searcher runs every query of the returned backend.
func Open(ctx context.Context, path string, s *searcher.Searcher) (Backend, error) {
	format, err := storage.DetectFormat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case storage.FormatSQLite:
		return openSQLite(ctx, path, s)
	case storage.FormatNative:
		return openNative(ctx, path, s)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", storage.ErrNotDatabase, format)
	}
}

// wrapQuery marks storage-level failures as QueryError. Rejected requests
// and collaborator failures pass through unchanged.
func wrapQuery(op, path string, err error) error {
	var verr *searcher.ValidationError
	var aerr *algo.Error
	if errors.As(err, &verr) || errors.As(err, &aerr) {
		return err
	}
	return &QueryError{Op: op, Path: path, Err: err}
}
