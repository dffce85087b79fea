package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies the physical encoding of a graph file
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatNative Format = "native"
)

var (
	sqliteMagic = []byte("SQLite format 3\x00")

	// SnapshotMagic opens every native snapshot file
	SnapshotMagic = []byte("LLMGSNAP")
)

// nativeExtensions hint that a file is probably a snapshot
var nativeExtensions = map[string]bool{
	".snap": true,
	".llmg": true,
}

// DetectFormat identifies a graph file by its leading bytes. The extension
// only decides which signature is checked first.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, len(sqliteMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	header = header[:n]

	probes := []struct {
		format Format
		magic  []byte
	}{
		{FormatSQLite, sqliteMagic},
		{FormatNative, SnapshotMagic},
	}
	if nativeExtensions[strings.ToLower(filepath.Ext(path))] {
		probes[0], probes[1] = probes[1], probes[0]
	}
	for _, p := range probes {
		if bytes.HasPrefix(header, p.magic) {
			return p.format, nil
		}
	}
	return "", fmt.Errorf("%w: %s has an unrecognized header", ErrNotDatabase, path)
}
