package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oldnordic/llmgrep/internal/storage"
)

// WriteSnapshot serializes the SQLite graph at src into the native format.
// The source is only ever opened read-only.
func WriteSnapshot(ctx context.Context, src string, w io.Writer) error {
	db, err := storage.OpenReadOnly(ctx, src)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	snap, err := storage.ExportSnapshot(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", src, err)
	}
	return storage.WriteSnapshot(w, snap)
}

// ExportFile writes a snapshot of src to dst. The snapshot is written to a
// temporary file next to dst and renamed into place, so dst is either the
// complete snapshot or untouched.
func ExportFile(ctx context.Context, src, dst string) (err error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("failed to resolve destination path: %w", err)
	}
	if absSrc == absDst {
		return fmt.Errorf("refusing to overwrite source database %s", src)
	}

	tmp, err := os.CreateTemp(filepath.Dir(absDst), ".llmgrep-export-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = WriteSnapshot(ctx, absSrc, tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err = os.Rename(tmp.Name(), absDst); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}
