// Package types provides shared type definitions for llmgrep.
//
// This package defines the decoded entity payloads read from a code graph,
// the immutable per-search configuration, and the typed result rows returned
// by the search executors.
//
// # Entities
//
// The graph stores File, Symbol, Reference and Call entities with JSON
// payloads. Payloads are decoded exactly once, at row materialization, into
// the typed structs of this package:
//
//	sym := &types.SymbolNode{
//	    Name:       "parse_file",
//	    Kind:       "Function",
//	    DisplayFQN: "parser::parse_file",
//	    SymbolID:   "3f2a9c0d11e4b7a8",
//	}
//
// # Search Options
//
// SearchOptions carries every filter of a search. Normalized applies
// defaults and returns a copy; the original is never modified:
//
//	opts := types.SearchOptions{
//	    Query: "parse",
//	    Kinds: []string{"function"},
//	    Limit: 20,
//	}.Normalized()
//
// # Identifiers
//
// Match and span identifiers are xxhash digests of the file path, byte range
// and name. They are stable across runs and independent of storage row ids:
//
//	id := types.MatchID("src/lib.rs", 120, 180, "parse_file")
//
// # Scores
//
// Relevance scores are integers in [0, 100]. Position and metric sorts leave
// Score nil.
package types
