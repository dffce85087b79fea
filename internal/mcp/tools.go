package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oldnordic/llmgrep/internal/algo"
	"github.com/oldnordic/llmgrep/internal/backend"
	"github.com/oldnordic/llmgrep/internal/searcher"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound        = -32001 // Exact lookup found nothing
	ErrorCodeUnsupported     = -32002 // Command not available on this backend
	ErrorCodeAlgorithmFailed = -32003 // Graph-algorithm collaborator failed
)

// handleSearchSymbols handles the search_symbols tool invocation
func (s *Server) handleSearchSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	opts, err := commonOptions(args)
	if err != nil {
		return nil, err
	}
	opts.SymbolID = getStringDefault(args, "symbol_id", "")
	opts.FQN = getStringDefault(args, "fqn", "")
	opts.Kinds = getStringSlice(args, "kinds")
	opts.Ast = types.AstFilter{
		Kinds:    getStringSlice(args, "ast_kinds"),
		Inside:   getStringDefault(args, "inside", ""),
		Contains: getStringDefault(args, "contains", ""),
		MinDepth: getOptionalInt(args, "min_depth"),
		MaxDepth: getOptionalInt(args, "max_depth"),
	}
	opts.Metrics = types.MetricBounds{
		MinFanIn:      getOptionalInt(args, "min_fan_in"),
		MaxFanIn:      getOptionalInt(args, "max_fan_in"),
		MinFanOut:     getOptionalInt(args, "min_fan_out"),
		MaxFanOut:     getOptionalInt(args, "max_fan_out"),
		MinComplexity: getOptionalInt(args, "min_complexity"),
		MaxComplexity: getOptionalInt(args, "max_complexity"),
	}
	opts.Algorithm = types.AlgorithmFilter{
		ReachableFrom:  getStringDefault(args, "reachable_from", ""),
		DeadCodeFrom:   getStringDefault(args, "dead_code_from", ""),
		InCycle:        getBoolDefault(args, "in_cycle", false),
		SliceFrom:      getStringDefault(args, "slice_from", ""),
		SliceDirection: getStringDefault(args, "slice_direction", ""),
	}
	opts.WithAstContext = getBoolDefault(args, "with_ast_context", false)

	resp, err := s.backend.SearchSymbols(ctx, s.config.Apply(opts))
	if err != nil {
		return nil, toolError("symbol search failed", err)
	}
	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleSearchReferences handles the search_references tool invocation
func (s *Server) handleSearchReferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	opts, err := commonOptions(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.backend.SearchReferences(ctx, s.config.Apply(opts))
	if err != nil {
		return nil, toolError("reference search failed", err)
	}
	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleSearchCalls handles the search_calls tool invocation
func (s *Server) handleSearchCalls(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	opts, err := commonOptions(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.backend.SearchCalls(ctx, s.config.Apply(opts))
	if err != nil {
		return nil, toolError("call search failed", err)
	}
	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleComplete handles the complete tool invocation
func (s *Server) handleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	prefix, ok := args["prefix"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "prefix parameter is required", map[string]interface{}{
			"param":  "prefix",
			"reason": "missing",
		})
	}
	limit := getIntDefault(args, "limit", backend.DefaultCompleteLimit)
	if limit < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be positive", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	names, err := s.backend.Complete(ctx, prefix, limit)
	if err != nil {
		return nil, toolError("completion failed", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"prefix": prefix,
		"names":  names,
	})), nil
}

// handleLookup handles the lookup tool invocation
func (s *Server) handleLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	fqn, ok := args["fqn"].(string)
	if !ok || fqn == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "fqn parameter is required", map[string]interface{}{
			"param":  "fqn",
			"reason": "missing or empty",
		})
	}

	matches, err := s.backend.LookupExact(ctx, fqn)
	if err != nil {
		return nil, toolError("lookup failed", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"fqn":     fqn,
		"results": matches,
	})), nil
}

// commonOptions reads the arguments shared by every search tool
func commonOptions(args map[string]interface{}) (types.SearchOptions, error) {
	opts := types.SearchOptions{
		Query:           getStringDefault(args, "query", ""),
		Regex:           getBoolDefault(args, "regex", false),
		PathPrefix:      getStringDefault(args, "path_prefix", ""),
		Language:        getStringDefault(args, "language", ""),
		SymbolSet:       getStringSlice(args, "symbol_set"),
		Sort:            types.SortMode(getStringDefault(args, "sort", "")),
		Candidates:      getIntDefault(args, "candidates", 0),
		Limit:           getIntDefault(args, "limit", 0),
		WithContext:     getBoolDefault(args, "with_context", false),
		ContextLines:    getOptionalInt(args, "context_lines"),
		WithSnippet:     getBoolDefault(args, "with_snippet", false),
		MaxSnippetBytes: getIntDefault(args, "max_snippet_bytes", 0),
	}

	for _, p := range []struct {
		name  string
		value int
	}{
		{"candidates", opts.Candidates},
		{"limit", opts.Limit},
		{"max_snippet_bytes", opts.MaxSnippetBytes},
	} {
		if p.value < 0 {
			return opts, newMCPError(ErrorCodeInvalidParams, p.name+" must not be negative", map[string]interface{}{
				"param": p.name,
				"value": p.value,
			})
		}
	}
	return opts, nil
}

// toolError maps engine errors onto MCP error codes
func toolError(message string, err error) error {
	var (
		validation  *searcher.ValidationError
		unsupported *backend.UnsupportedError
		lookup      *backend.LookupError
		algoErr     *algo.Error
	)
	switch {
	case errors.As(err, &validation):
		return newMCPError(ErrorCodeInvalidParams, validation.Error(), map[string]interface{}{
			"param":  validation.Field,
			"reason": validation.Reason,
		})
	case errors.As(err, &unsupported):
		return newMCPError(ErrorCodeUnsupported, unsupported.Error(), map[string]interface{}{
			"command": unsupported.Command,
			"backend": string(unsupported.Backend),
		})
	case errors.As(err, &lookup):
		return newMCPError(ErrorCodeNotFound, lookup.Error(), map[string]interface{}{
			"fqn":         lookup.FQN,
			"suggestions": lookup.Suggestions,
		})
	case errors.As(err, &algoErr):
		return newMCPError(ErrorCodeAlgorithmFailed, message, map[string]interface{}{
			"algorithm": string(algoErr.Kind),
			"reason":    algoErr.Reason,
		})
	case errors.Is(err, storage.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, message, map[string]interface{}{
			"error": err.Error(),
		})
	}
	return newMCPError(ErrorCodeInternalError, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getOptionalInt extracts an integer parameter, or nil when absent
func getOptionalInt(args map[string]interface{}, key string) *int {
	if _, present := args[key]; !present {
		return nil
	}
	switch args[key].(type) {
	case float64, int:
		v := getIntDefault(args, key, 0)
		return &v
	}
	return nil
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter. A single string is
// treated as a one-element list.
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if val != "" {
			return []string{val}
		}
	}
	return nil
}
