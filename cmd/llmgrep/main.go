package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/oldnordic/llmgrep/internal/backend"
	"github.com/oldnordic/llmgrep/internal/config"
	"github.com/oldnordic/llmgrep/internal/searcher"
	"github.com/oldnordic/llmgrep/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// stdout carries results and the MCP protocol
	log.SetOutput(os.Stderr)
	log.SetPrefix("llmgrep: ")
	log.SetFlags(0)

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "llmgrep %s\n", c.App.Version)
		fmt.Fprintf(c.App.Writer, "Build Time: %s\n", buildTime)
		fmt.Fprintf(c.App.Writer, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(c.App.Writer, "SQLite Driver: %s\n", storage.DriverName)
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "llmgrep",
		Usage:                  "Query a code graph for symbols, references and calls",
		Version:                version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: $LLMGREP_CONFIG or ./llmgrep.toml)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Code graph database or native snapshot (overrides config and $LLMGREP_DB)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Directory that relative file paths in the graph resolve against",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log enrichment warnings to stderr",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Indent JSON output",
			},
		},
		Commands: []*cli.Command{
			searchCommand(),
			refsCommand(),
			callsCommand(),
			completeCommand(),
			lookupCommand(),
			exportCommand(),
			serveCommand(),
			watchCommand(),
		},
	}
}

// loadConfig loads configuration and applies global flag overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if db := c.String("db"); db != "" {
		cfg.Database = db
	}
	if root := c.String("root"); root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
		}
		cfg.Root = abs
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("no database given: use --db, %s or the config file", config.EnvDatabase)
	}
	return cfg, nil
}

// newSearcher builds the engine. Warnings reach stderr only with --verbose.
func newSearcher(c *cli.Context, cfg *config.Config) *searcher.Searcher {
	var logger *log.Logger
	if c.Bool("verbose") {
		logger = log.New(os.Stderr, "llmgrep: warning: ", 0)
	}
	return searcher.NewSearcher(cfg.Resolver(), logger)
}

// openBackend loads the config and opens the graph it names
func openBackend(c *cli.Context) (backend.Backend, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	b, err := backend.Open(c.Context, cfg.Database, newSearcher(c, cfg))
	if err != nil {
		return nil, nil, err
	}
	return b, cfg, nil
}

// withBackend runs fn against the configured graph and closes it afterwards
func withBackend(c *cli.Context, fn func(ctx context.Context, b backend.Backend, cfg *config.Config) (interface{}, error)) error {
	b, cfg, err := openBackend(c)
	if err != nil {
		return err
	}
	defer b.Close()

	out, err := fn(c.Context, b, cfg)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, out, c.Bool("pretty"))
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
