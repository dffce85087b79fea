package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/oldnordic/llmgrep/internal/algo"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// Environment variables read by Load
const (
	EnvConfig      = "LLMGREP_CONFIG"
	EnvDatabase    = "LLMGREP_DB"
	EnvRoot        = "LLMGREP_ROOT"
	EnvAlgoBinary  = "LLMGREP_ALGO_BIN"
	EnvAlgoTimeout = "LLMGREP_ALGO_TIMEOUT"
)

const (
	// DefaultFile is read from the working directory when no config path is given
	DefaultFile = "llmgrep.toml"

	// DefaultAlgoBinary is the graph tool invoked for algorithm filters
	DefaultAlgoBinary = "magellan"

	// DefaultDebounce is how long watch waits for changes to settle
	DefaultDebounce = 500 * time.Millisecond
)

// ErrInvalidConfig is returned when a loaded configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds llmgrep settings
type Config struct {
	Database string `toml:"database"`
	Root     string `toml:"root"`
	Search   Search `toml:"search"`
	Algo     Algo   `toml:"algo"`
	Watch    Watch  `toml:"watch"`
}

// Search holds defaults applied to every search request
type Search struct {
	Limit           int `toml:"limit"`
	Candidates      int `toml:"candidates"`
	ContextLines    int `toml:"context_lines"`
	MaxSnippetBytes int `toml:"max_snippet_bytes"`
}

// Algo configures the external graph-algorithm tool
type Algo struct {
	Binary  string   `toml:"binary"`
	Timeout Duration `toml:"timeout"`
}

// Watch configures the watch command
type Watch struct {
	Debounce Duration `toml:"debounce"`
	Patterns []string `toml:"patterns"` // globs, relative to the database directory
}

// Duration is a time.Duration written as a string such as "30s"
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Search: Search{
			Limit:           types.DefaultLimit,
			Candidates:      types.DefaultCandidates,
			ContextLines:    types.DefaultContextLines,
			MaxSnippetBytes: types.DefaultMaxSnippetBytes,
		},
		Algo: Algo{
			Binary:  DefaultAlgoBinary,
			Timeout: Duration{algo.DefaultTimeout},
		},
		Watch: Watch{
			Debounce: Duration{DefaultDebounce},
		},
	}
}

// Load builds the configuration from defaults, then a TOML file, then the
// environment. path names the file; when empty, LLMGREP_CONFIG is used, and
// failing that llmgrep.toml in the working directory if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path, explicit = DefaultFile, false
	}

	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvRoot); v != "" {
		c.Root = v
	}
	if v := os.Getenv(EnvAlgoBinary); v != "" {
		c.Algo.Binary = v
	}
	if v := os.Getenv(EnvAlgoTimeout); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvAlgoTimeout, v, err)
		}
		c.Algo.Timeout = Duration{d}
	}
	return nil
}

// parseTimeout accepts a Go duration or a bare number of seconds
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"search.limit must be positive", c.Search.Limit > 0},
		{"search.candidates must be positive", c.Search.Candidates > 0},
		{"search.context_lines must be between 0 and " + strconv.Itoa(types.MaxContextLines),
			c.Search.ContextLines >= 0 && c.Search.ContextLines <= types.MaxContextLines},
		{"search.max_snippet_bytes must be positive", c.Search.MaxSnippetBytes > 0},
		{"algo.timeout must be positive", c.Algo.Timeout.Duration > 0},
		{"watch.debounce must not be negative", c.Watch.Debounce.Duration >= 0},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, check.name)
		}
	}
	return nil
}

// Apply fills the unset fields of opts from the configured defaults
func (c *Config) Apply(opts types.SearchOptions) types.SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = c.Search.Limit
	}
	if opts.Candidates <= 0 {
		opts.Candidates = c.Search.Candidates
	}
	if opts.WithContext && opts.ContextLines == nil {
		n := c.Search.ContextLines
		opts.ContextLines = &n
	}
	if opts.WithSnippet && opts.MaxSnippetBytes <= 0 {
		opts.MaxSnippetBytes = c.Search.MaxSnippetBytes
	}
	if opts.Root == "" {
		opts.Root = c.Root
	}
	return opts
}

// Resolver returns the algorithm collaborator described by the config
func (c *Config) Resolver() *algo.ExecResolver {
	return algo.NewExecResolver(c.Algo.Binary, c.Algo.Timeout.Duration)
}
