package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is used when Options.Debounce is not positive
const DefaultDebounce = 250 * time.Millisecond

// Options configures a watch
type Options struct {
	Dir      string        // directory to watch, recursively
	Patterns []string      // globs matched against slash-separated paths relative to Dir
	Debounce time.Duration // quiet period before a burst of changes triggers a run
}

// DatabasePatterns returns the trigger globs for a graph file: the file
// itself plus its SQLite journal and WAL companions
func DatabasePatterns(dbPath string) []string {
	base := filepath.Base(dbPath)
	return []string{base, base + "-journal", base + "-wal"}
}

// Matches reports whether rel, relative to Dir, matches a trigger pattern
func (o Options) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range o.Patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// ChangeFunc is called once at start with no paths, and then once per
// debounced burst with the sorted relative paths that changed
type ChangeFunc func(ctx context.Context, changed []string) error

// Run watches opts.Dir until ctx is done. Calls to onChange never overlap;
// changes arriving during a call are batched into the next one. Run returns
// nil when ctx is cancelled, and otherwise the first watcher or onChange
// error.
func Run(ctx context.Context, opts Options, onChange ChangeFunc) error {
	if len(opts.Patterns) == 0 {
		return fmt.Errorf("no watch patterns for %s", opts.Dir)
	}
	for _, pattern := range opts.Patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid watch pattern %q", pattern)
		}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve watch directory: %w", err)
	}
	opts.Dir = filepath.Clean(dir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := addRecursive(watcher, opts.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", opts.Dir, err)
	}

	triggers := make(chan []string)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(triggers)
		return debounce(gctx, watcher, opts, triggers)
	})

	g.Go(func() error {
		if err := onChange(gctx, nil); err != nil {
			return err
		}
		for changed := range triggers {
			if err := onChange(gctx, changed); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// debounce turns raw events into batches, sending each batch once the
// directory has been quiet for opts.Debounce
func debounce(ctx context.Context, watcher *fsnotify.Watcher, opts Options, out chan<- []string) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					_ = addRecursive(watcher, path)
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			rel, err := filepath.Rel(opts.Dir, path)
			if err != nil || !opts.Matches(rel) {
				continue
			}
			pending[filepath.ToSlash(rel)] = true
			timer.Reset(opts.Debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pending = map[string]bool{}

			select {
			case out <- changed:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
