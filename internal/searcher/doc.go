// Package searcher runs symbol, reference and call searches against a
// read-only code graph.
//
// Each search validates its options before touching storage, pins one
// connection of the handle, runs the COUNT and data statements planned by
// package query, scores and orders the rows in memory and finally enriches
// the returned page.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(algo.NewExecResolver("magellan"), logger)
//
//	resp, err := s.Symbols(ctx, db, "/path/to/codegraph.db", types.SearchOptions{
//	    Query:       "parse",
//	    Kinds:       []string{"function"},
//	    Limit:       20,
//	    WithSnippet: true,
//	})
//
//	for _, m := range resp.Results {
//	    fmt.Printf("%s %s:%d\n", m.Name, m.Span.FilePath, m.Span.StartLine)
//	}
//
// # Relevance Scoring
//
// In relevance mode each row gets the first matching score, comparing the
// query case-sensitively against the name, display name and fully-qualified
// name:
//   - 100: name equals the query
//   - 95: display name equals the query
//   - 90: fully-qualified name equals the query
//   - 80: name starts with the query
//   - 70: display name starts with the query
//   - 60, 50, 40: name, display name or fully-qualified name contains it
//
// Regex mode scores 70, 60 or 50 by the first projection the pattern
// matches. Position and metric sorts leave Score unset.
//
// # Totals and Partial Results
//
// Without a regex the COUNT statement gives the exact total and a result is
// partial when the candidate cap is below it. A regex can't be evaluated in
// SQL, so the total is the number of matching fetched rows and a result is
// partial whenever the full candidate batch was fetched.
//
// # Warnings
//
// Enrichment never fails a search. An unreadable file, a broken AST chain
// or a failed chunk lookup drops the affected field and adds a warning to
// the response, which is also written to the logger.
package searcher
