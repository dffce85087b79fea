package source

import (
	"bytes"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds how many files one query keeps in memory
const DefaultCacheSize = 256

type cachedFile struct {
	data  []byte
	lines []string
	ok    bool
}

// FileCache memoizes file contents for the lifetime of one query. It is
// owned by a single search and never shared. Unreadable files are cached
// as absent so they are tried only once.
type FileCache struct {
	root  string
	files *lru.Cache[string, *cachedFile]
}

// NewFileCache creates a cache resolving relative paths against root
func NewFileCache(root string, size int) *FileCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	files, _ := lru.New[string, *cachedFile](size)
	return &FileCache{root: root, files: files}
}

func (c *FileCache) resolve(path string) string {
	if filepath.IsAbs(path) || c.root == "" {
		return path
	}
	return filepath.Join(c.root, path)
}

func (c *FileCache) load(path string) *cachedFile {
	if f, ok := c.files.Get(path); ok {
		return f
	}

	f := &cachedFile{}
	data, err := os.ReadFile(c.resolve(path))
	if err == nil {
		f.data = data
		f.ok = true
	}
	c.files.Add(path, f)
	return f
}

// Bytes returns the raw contents of path, or false if it can't be read
func (c *FileCache) Bytes(path string) ([]byte, bool) {
	f := c.load(path)
	return f.data, f.ok
}

// Lines returns path split into lines without terminators
func (c *FileCache) Lines(path string) ([]string, bool) {
	f := c.load(path)
	if !f.ok {
		return nil, false
	}
	if f.lines == nil {
		f.lines = splitLines(f.data)
	}
	return f.lines, true
}

func splitLines(data []byte) []string {
	data = bytes.TrimSuffix(data, []byte("\n"))
	if len(data) == 0 {
		return []string{}
	}
	raw := bytes.Split(data, []byte("\n"))
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(bytes.TrimSuffix(l, []byte("\r")))
	}
	return lines
}
