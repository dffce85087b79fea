// Package watch re-runs a callback when files matching a set of globs
// change.
//
// It sits outside the search engine: each search stays a single synchronous
// call, and watch only decides when to make the next one. Events are
// debounced so that an indexer rewriting the graph database produces one
// re-run rather than one per write.
package watch
