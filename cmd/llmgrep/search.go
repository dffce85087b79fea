package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/oldnordic/llmgrep/internal/backend"
	"github.com/oldnordic/llmgrep/internal/config"
	"github.com/oldnordic/llmgrep/internal/searcher"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// commonFlags are accepted by search, refs and calls
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "regex", Aliases: []string{"e"}, Usage: "Treat the query as a regular expression"},
		&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Only match files under this path prefix"},
		&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Usage: "Only match files of this language"},
		&cli.StringSliceFlag{Name: "symbol-set", Usage: "Restrict to these symbol ids"},
		&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Usage: "relevance, position, fan_in, fan_out or complexity", Value: string(types.SortRelevance)},
		&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results returned (default from config)"},
		&cli.IntFlag{Name: "candidates", Usage: "Maximum rows fetched before filtering (default from config)"},
		&cli.BoolFlag{Name: "context", Aliases: []string{"C"}, Usage: "Include surrounding source lines"},
		&cli.IntFlag{Name: "context-lines", Usage: "Lines of context on each side (0 for the matched lines only)"},
		&cli.BoolFlag{Name: "snippet", Usage: "Include the source text of each match"},
		&cli.IntFlag{Name: "max-snippet-bytes", Usage: "Snippet size cap"},
	}
}

// commonOptions reads the flags from commonFlags plus the query argument
func commonOptions(c *cli.Context) types.SearchOptions {
	return types.SearchOptions{
		Query:           c.Args().First(),
		Regex:           c.Bool("regex"),
		PathPrefix:      c.String("path"),
		Language:        c.String("language"),
		SymbolSet:       c.StringSlice("symbol-set"),
		Sort:            types.SortMode(c.String("sort")),
		Limit:           c.Int("limit"),
		Candidates:      c.Int("candidates"),
		WithContext:     c.Bool("context"),
		ContextLines:    optionalInt(c, "context-lines"),
		WithSnippet:     c.Bool("snippet"),
		MaxSnippetBytes: c.Int("max-snippet-bytes"),
	}
}

// optionalInt returns nil when the flag was not given
func optionalInt(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

func symbolFlags() []cli.Flag {
	flags := commonFlags()
	return append(flags,
		&cli.StringFlag{Name: "symbol-id", Usage: "Match one symbol by its id"},
		&cli.StringFlag{Name: "fqn", Usage: "Match symbols by exact fully-qualified name"},
		&cli.StringSliceFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Only these symbol kinds (function, struct, ...)"},
		&cli.StringSliceFlag{Name: "ast-kind", Usage: "Only symbols anchored on these AST node kinds"},
		&cli.StringFlag{Name: "inside", Usage: "AST kind of the anchor's parent"},
		&cli.StringFlag{Name: "contains", Usage: "AST kind of one of the anchor's children"},
		&cli.IntFlag{Name: "min-depth", Usage: "Minimum decision nesting depth"},
		&cli.IntFlag{Name: "max-depth", Usage: "Maximum decision nesting depth"},
		&cli.IntFlag{Name: "min-fan-in"},
		&cli.IntFlag{Name: "max-fan-in"},
		&cli.IntFlag{Name: "min-fan-out"},
		&cli.IntFlag{Name: "max-fan-out"},
		&cli.IntFlag{Name: "min-complexity"},
		&cli.IntFlag{Name: "max-complexity"},
		&cli.StringFlag{Name: "reachable-from", Usage: "Symbols reachable from this symbol id"},
		&cli.StringFlag{Name: "dead-code-from", Usage: "Symbols unreachable from this entry symbol id"},
		&cli.BoolFlag{Name: "in-cycle", Usage: "Symbols that take part in a call cycle"},
		&cli.StringFlag{Name: "slice-from", Usage: "Program slice from this symbol id"},
		&cli.StringFlag{Name: "slice-direction", Usage: "backward or forward", Value: "backward"},
		&cli.BoolFlag{Name: "ast-context", Usage: "Include the enclosing AST node of each match"},
	)
}

func symbolOptions(c *cli.Context) types.SearchOptions {
	opts := commonOptions(c)
	opts.SymbolID = c.String("symbol-id")
	opts.FQN = c.String("fqn")
	opts.Kinds = c.StringSlice("kind")
	opts.Ast = types.AstFilter{
		Kinds:    c.StringSlice("ast-kind"),
		Inside:   c.String("inside"),
		Contains: c.String("contains"),
		MinDepth: optionalInt(c, "min-depth"),
		MaxDepth: optionalInt(c, "max-depth"),
	}
	opts.Metrics = types.MetricBounds{
		MinFanIn:      optionalInt(c, "min-fan-in"),
		MaxFanIn:      optionalInt(c, "max-fan-in"),
		MinFanOut:     optionalInt(c, "min-fan-out"),
		MaxFanOut:     optionalInt(c, "max-fan-out"),
		MinComplexity: optionalInt(c, "min-complexity"),
		MaxComplexity: optionalInt(c, "max-complexity"),
	}
	opts.Algorithm = types.AlgorithmFilter{
		ReachableFrom: c.String("reachable-from"),
		DeadCodeFrom:  c.String("dead-code-from"),
		InCycle:       c.Bool("in-cycle"),
		SliceFrom:     c.String("slice-from"),
	}
	if opts.Algorithm.SliceFrom != "" {
		opts.Algorithm.SliceDirection = c.String("slice-direction")
	}
	opts.WithAstContext = c.Bool("ast-context")
	return opts
}

// searchAction validates the request before the database is located or
// opened, then runs it with the configured defaults applied
func searchAction(kind searcher.Kind, build func(*cli.Context) types.SearchOptions,
	run func(context.Context, backend.Backend, types.SearchOptions) (interface{}, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		opts := build(c)
		if err := searcher.Validate(kind, opts); err != nil {
			return err
		}
		return withBackend(c, func(ctx context.Context, b backend.Backend, cfg *config.Config) (interface{}, error) {
			return run(ctx, b, cfg.Apply(opts))
		})
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search symbol definitions",
		ArgsUsage: "[query]",
		Flags:     symbolFlags(),
		Action: searchAction(searcher.KindSymbols, symbolOptions, func(ctx context.Context, b backend.Backend, opts types.SearchOptions) (interface{}, error) {
			return b.SearchSymbols(ctx, opts)
		}),
	}
}

func refsCommand() *cli.Command {
	return &cli.Command{
		Name:      "refs",
		Usage:     "Search reference sites",
		ArgsUsage: "[query]",
		Flags:     commonFlags(),
		Action: searchAction(searcher.KindReferences, commonOptions, func(ctx context.Context, b backend.Backend, opts types.SearchOptions) (interface{}, error) {
			return b.SearchReferences(ctx, opts)
		}),
	}
}

func callsCommand() *cli.Command {
	return &cli.Command{
		Name:      "calls",
		Usage:     "Search call sites",
		ArgsUsage: "[query]",
		Flags:     commonFlags(),
		Action: searchAction(searcher.KindCalls, commonOptions, func(ctx context.Context, b backend.Backend, opts types.SearchOptions) (interface{}, error) {
			return b.SearchCalls(ctx, opts)
		}),
	}
}

func completeCommand() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Complete a fully-qualified name prefix (native snapshots only)",
		ArgsUsage: "<prefix>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: backend.DefaultCompleteLimit},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("complete takes exactly one prefix", 2)
			}
			return withBackend(c, func(ctx context.Context, b backend.Backend, _ *config.Config) (interface{}, error) {
				names, err := b.Complete(ctx, c.Args().First(), c.Int("limit"))
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"prefix": c.Args().First(), "names": names}, nil
			})
		},
	}
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Look up symbols by exact fully-qualified name (native snapshots only)",
		ArgsUsage: "<fqn>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 || c.Args().First() == "" {
				return cli.Exit("lookup takes exactly one fully-qualified name", 2)
			}
			return withBackend(c, func(ctx context.Context, b backend.Backend, _ *config.Config) (interface{}, error) {
				matches, err := b.LookupExact(ctx, c.Args().First())
				if err != nil {
					return nil, fmt.Errorf("lookup failed: %w", err)
				}
				return map[string]interface{}{"fqn": c.Args().First(), "results": matches}, nil
			})
		},
	}
}
