package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabasePatterns(t *testing.T) {
	assert.Equal(t,
		[]string{"codegraph.db", "codegraph.db-journal", "codegraph.db-wal"},
		DatabasePatterns("/data/project/codegraph.db"))
}

func TestOptionsMatches(t *testing.T) {
	opts := Options{Patterns: []string{"codegraph.db", "**/*.snap"}}

	tests := []struct {
		rel  string
		want bool
	}{
		{"codegraph.db", true},
		{"codegraph.db-wal", false},
		{"graphs/nightly.snap", true},
		{"nightly.snap", true},
		{"notes.txt", false},
		{filepath.Join("deep", "er", "x.snap"), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, opts.Matches(tt.rel), tt.rel)
	}
}

// recorder collects the batches passed to a ChangeFunc
type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) onChange(ctx context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changed)
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func startWatch(t *testing.T, opts Options, fn ChangeFunc) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts, fn) }()
	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop")
			return nil
		}
	}
}

func TestRunDebouncesMatchingChanges(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "codegraph.db")
	require.NoError(t, os.WriteFile(db, []byte("v0"), 0o644))

	rec := &recorder{}
	stop := startWatch(t, Options{Dir: dir, Patterns: DatabasePatterns(db), Debounce: 100 * time.Millisecond}, rec.onChange)

	// Initial run
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, rec.snapshot()[0])

	// Give the watcher a moment, then write a burst plus an unrelated file
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(db, []byte{byte('a' + i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(db+"-wal", []byte("wal"), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 2 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	batches := rec.snapshot()
	require.Len(t, batches, 2, "one re-run per burst")
	assert.Equal(t, []string{"codegraph.db", "codegraph.db-wal"}, batches[1])

	assert.NoError(t, stop())
}

func TestRunIgnoresUnmatchedFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	stop := startWatch(t, Options{Dir: dir, Patterns: []string{"codegraph.db"}, Debounce: 20 * time.Millisecond}, rec.onChange)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.db"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Len(t, rec.snapshot(), 1)
	assert.NoError(t, stop())
}

func TestRunStopsOnCallbackError(t *testing.T) {
	boom := errors.New("search failed")
	err := Run(context.Background(), Options{Dir: t.TempDir(), Patterns: []string{"*.db"}},
		func(ctx context.Context, changed []string) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRunRejectsBadOptions(t *testing.T) {
	noop := func(ctx context.Context, changed []string) error { return nil }

	err := Run(context.Background(), Options{Dir: t.TempDir()}, noop)
	assert.ErrorContains(t, err, "no watch patterns")

	err = Run(context.Background(), Options{Dir: t.TempDir(), Patterns: []string{"[unclosed"}}, noop)
	assert.ErrorContains(t, err, "invalid watch pattern")

	err = Run(context.Background(), Options{Dir: filepath.Join(t.TempDir(), "absent"), Patterns: []string{"*"}}, noop)
	assert.Error(t, err)
}
