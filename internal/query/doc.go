// Package query builds parameterized SQL for symbol, reference and call
// searches over a code graph.
//
// Builders are pure: they take SearchOptions and the set of tables present
// and return a Plan holding the data statement, an unlimited COUNT variant
// and the symbol-set filter. All user text is bound as parameters and LIKE
// literals are escaped with EscapeLike.
//
// Symbol sets of up to InlineThreshold ids are bound inline. Larger sets
// are loaded into a temporary table that exists for one query:
//
//	plan, err := query.BuildSymbols(opts, tables)
//	release, err := plan.SymbolSet.Materialize(ctx, conn)
//	if err != nil {
//	    return err
//	}
//	defer release()
//	rows, err := conn.QueryContext(ctx, plan.Select.SQL, plan.Select.Args...)
package query
