// Package algo obtains symbol sets from graph algorithms (reachability,
// dead code, cycles, slices) run by an external collaborator.
//
// The search engine consumes only the resulting set of symbol ids, an
// optional id-to-group map and a flag telling whether the collaborator hit
// its own enumeration bound.
package algo
