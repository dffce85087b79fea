// Package mcp exposes llmgrep queries as Model Context Protocol tools.
//
// One server answers queries against a single code graph opened through
// package backend. Five tools are registered:
//   - search_symbols: symbol definitions with metric, AST and algorithm filters
//   - search_references: reference sites
//   - search_calls: call sites
//   - complete: fully-qualified name completion (native snapshots only)
//   - lookup: exact fully-qualified name lookup (native snapshots only)
//
// # Basic Usage
//
// The server is started by the serve command and speaks JSON-RPC 2.0 on
// stdin and stdout:
//
//	llmgrep --db codegraph.db serve
//
// # Tool: search_symbols
//
//	Request:
//	{
//	  "name": "search_symbols",
//	  "arguments": {
//	    "query": "parse",
//	    "kinds": ["function"],
//	    "min_complexity": 5,
//	    "limit": 10,
//	    "with_snippet": true
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "match_id": "3f1c9a0b7d2e4c11",
//	      "span": {"file_path": "src/parser.rs", "start_line": 12, ...},
//	      "name": "parse",
//	      "kind": "function",
//	      "score": 100,
//	      "metrics": {"fan_in": 4, "fan_out": 2, "complexity": 7},
//	      "snippet": {"content": "pub fn parse(...)", "source": "chunk", "truncated": false}
//	    }
//	  ],
//	  "total_count": 3,
//	  "partial": false,
//	  "bounded": false
//	}
//
// search_references and search_calls accept the same common arguments and
// answer with the same envelope of results, total_count and partial.
//
// # Error Handling
//
// Failures are returned as *MCPError values carrying a JSON-RPC code and a
// data object:
//   - -32602: invalid params (bad regex, unknown sort mode, negative bound)
//   - -32603: internal error (database or filesystem)
//   - -32001: lookup found no symbol; data.suggestions lists close names
//   - -32002: command not supported by the open backend
//   - -32003: the graph-algorithm collaborator failed
//
// Unset limits fall back to the [search] section of the loaded config.
package mcp
