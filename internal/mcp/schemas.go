package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description, "default": false}
}

func intProp(description string, minimum int) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description, "minimum": minimum}
}

func stringListProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       map[string]interface{}{"type": "string"},
	}
}

// commonProperties are shared by every search tool
func commonProperties(sortModes []string) map[string]interface{} {
	return map[string]interface{}{
		"query":        stringProp("Text to match; substring match unless regex is true. Empty matches everything"),
		"regex":        boolProp("Treat query as a regular expression"),
		"path_prefix":  stringProp("Only match files whose path starts with this prefix"),
		"language":     stringProp("Only match files of this language (c, cpp, go, java, javascript, python, rust, typescript)"),
		"symbol_set":   stringListProp("Only match these symbol ids"),
		"candidates":   intProp("Maximum rows fetched before ranking", 1),
		"limit":        intProp("Maximum results returned", 1),
		"with_context": boolProp("Include surrounding source lines"),
		"context_lines": map[string]interface{}{
			"type":        "integer",
			"description": "Lines of context on each side",
			"minimum":     0,
			"maximum":     100,
		},
		"with_snippet":      boolProp("Include the matched source text"),
		"max_snippet_bytes": intProp("Cap on snippet length in bytes", 1),
		"sort": map[string]interface{}{
			"type":        "string",
			"description": "Result ordering",
			"enum":        sortModes,
			"default":     "relevance",
		},
	}
}

// searchSymbolsTool returns the tool definition for search_symbols
func searchSymbolsTool() mcp.Tool {
	props := commonProperties([]string{"relevance", "position", "fan_in", "fan_out", "complexity"})
	for k, v := range map[string]interface{}{
		"symbol_id":        stringProp("Exact symbol id; replaces fuzzy matching"),
		"fqn":              stringProp("Exact fully-qualified or canonical name; replaces fuzzy matching"),
		"kinds":            stringListProp("Symbol kinds to include (function, method, struct, ...)"),
		"ast_kinds":        stringListProp("Structural node kinds the symbol must overlap"),
		"inside":           stringProp("Node kind of the symbol's direct structural parent"),
		"contains":         stringProp("Node kind of at least one direct structural child"),
		"min_depth":        intProp("Minimum decision depth", 0),
		"max_depth":        intProp("Maximum decision depth", 0),
		"min_fan_in":       intProp("Minimum fan-in", 0),
		"max_fan_in":       intProp("Maximum fan-in", 0),
		"min_fan_out":      intProp("Minimum fan-out", 0),
		"max_fan_out":      intProp("Maximum fan-out", 0),
		"min_complexity":   intProp("Minimum cyclomatic complexity", 0),
		"max_complexity":   intProp("Maximum cyclomatic complexity", 0),
		"reachable_from":   stringProp("Only symbols reachable from this symbol id"),
		"dead_code_from":   stringProp("Only symbols unreachable from this entry-point symbol id"),
		"in_cycle":         boolProp("Only symbols that are part of a call cycle"),
		"slice_from":       stringProp("Only symbols in the program slice of this symbol id"),
		"slice_direction":  map[string]interface{}{"type": "string", "enum": []string{"backward", "forward"}, "default": "backward"},
		"with_ast_context": boolProp("Include structural context (parent, depth, children, decision points)"),
	} {
		props[k] = v
	}

	return mcp.Tool{
		Name:        "search_symbols",
		Description: "Search symbol definitions in the code graph by name, location, kind, structure and metrics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
		},
	}
}

// searchReferencesTool returns the tool definition for search_references
func searchReferencesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_references",
		Description: "Search reference sites by the referenced name; symbol_set restricts the reference target",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: commonProperties([]string{"relevance", "position"}),
		},
	}
}

// searchCallsTool returns the tool definition for search_calls
func searchCallsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_calls",
		Description: "Search call sites by caller or callee name; symbol_set matches either end",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: commonProperties([]string{"relevance", "position"}),
		},
	}
}

// completeTool returns the tool definition for complete
func completeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "complete",
		Description: "List fully-qualified names starting with a prefix (native snapshots only)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prefix": stringProp("Name prefix"),
				"limit":  intProp("Maximum names returned", 1),
			},
			Required: []string{"prefix"},
		},
	}
}

// lookupTool returns the tool definition for lookup
func lookupTool() mcp.Tool {
	return mcp.Tool{
		Name:        "lookup",
		Description: "Find symbols by exact fully-qualified name (native snapshots only)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"fqn": stringProp("Fully-qualified or canonical name"),
			},
			Required: []string{"fqn"},
		},
	}
}
