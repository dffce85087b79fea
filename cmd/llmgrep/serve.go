package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/oldnordic/llmgrep/internal/backend"
	"github.com/oldnordic/llmgrep/internal/mcp"
	"github.com/oldnordic/llmgrep/internal/searcher"
	"github.com/oldnordic/llmgrep/internal/watch"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the SQLite graph as a native snapshot",
		ArgsUsage: "<output>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("export takes exactly one output path", 2)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			dst := c.Args().First()
			if err := backend.ExportFile(c.Context, cfg.Database, dst); err != nil {
				return err
			}
			log.Printf("exported %s to %s", cfg.Database, dst)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Answer MCP tool calls on stdin/stdout",
		Action: func(c *cli.Context) error {
			b, cfg, err := openBackend(c)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Printf("MCP server ready on stdio (%s backend: %s)", b.Kind(), b.Path())
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return mcp.NewServer(b, cfg).Serve(ctx)
			})
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("server error: %w", err)
			}
			log.Println("server stopped")
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-run a symbol search whenever the graph changes",
		ArgsUsage: "[query]",
		Flags:     symbolFlags(),
		Action: func(c *cli.Context) error {
			query := symbolOptions(c)
			if err := searcher.Validate(searcher.KindSymbols, query); err != nil {
				return err
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			dbPath, err := filepath.Abs(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to resolve database path: %w", err)
			}

			opts := watch.Options{
				Dir:      filepath.Dir(dbPath),
				Patterns: cfg.Watch.Patterns,
				Debounce: cfg.Watch.Debounce.Duration,
			}
			if len(opts.Patterns) == 0 {
				opts.Patterns = watch.DatabasePatterns(dbPath)
			}
			search := cfg.Apply(query)
			s := newSearcher(c, cfg)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Printf("watching %s", dbPath)
			return watch.Run(ctx, opts, func(ctx context.Context, changed []string) error {
				if len(changed) > 0 {
					log.Printf("change detected: %v", changed)
				}
				// The graph may be rewritten between runs, so every run opens it afresh
				b, err := backend.Open(ctx, dbPath, s)
				if err != nil {
					log.Printf("skipping run: %v", err)
					return nil
				}
				defer b.Close()

				resp, err := b.SearchSymbols(ctx, search)
				if err != nil {
					log.Printf("search failed: %v", err)
					return nil
				}
				return writeJSON(c.App.Writer, resp, c.Bool("pretty"))
			})
		},
	}
}
