package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oldnordic/llmgrep/pkg/types"
)

// LookupChunk returns the pre-extracted chunk stored for exactly
// (path, byteStart, byteEnd), or ErrNotFound.
func LookupChunk(ctx context.Context, q Querier, path string, byteStart, byteEnd int) (*types.CodeChunk, error) {
	query := `
		SELECT file_path, byte_start, byte_end, content,
		       COALESCE(content_hash, ''), COALESCE(symbol_kind, '')
		FROM code_chunks
		WHERE file_path = ? AND byte_start = ? AND byte_end = ?
		LIMIT 1
	`
	var chunk types.CodeChunk
	err := q.QueryRowContext(ctx, query, path, byteStart, byteEnd).Scan(
		&chunk.FilePath, &chunk.ByteStart, &chunk.ByteEnd, &chunk.Content,
		&chunk.ContentHash, &chunk.SymbolKind,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up chunk: %w", err)
	}
	return &chunk, nil
}
