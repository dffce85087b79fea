// Package source reads match text from source files.
//
// SafeSlice cuts byte ranges that may not fall on UTF-8 boundaries.
// FileCache memoizes file bytes and lines for one query, and ContextWindow
// and the snippet helpers build the optional enrichment fields of a match.
package source
