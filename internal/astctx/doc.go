// Package astctx derives structural context for symbols from the
// ast_nodes table: nesting depth, decision depth, parent kind, child kinds
// and decision-point descendants.
//
// Parent chains are walked iteratively in Go with a step ceiling and a
// visited set, never with recursive SQL, so malformed or cyclic trees
// yield partial values and a warning instead of hanging.
package astctx
