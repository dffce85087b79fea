package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/suite"

	"github.com/oldnordic/llmgrep/internal/backend"
	"github.com/oldnordic/llmgrep/internal/config"
	"github.com/oldnordic/llmgrep/internal/graphtest"
	"github.com/oldnordic/llmgrep/internal/searcher"
	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

// ServerTestSuite drives the tool handlers against a native snapshot and
// the SQLite database it was exported from
type ServerTestSuite struct {
	suite.Suite
	ctx      context.Context
	dbPath   string
	snapPath string
	native   *Server
	sqlite   *Server
}

// SetupSuite builds the fixture graph once
func (s *ServerTestSuite) SetupSuite() {
	s.ctx = context.Background()

	g := graphtest.New(s.T(), storage.FullSchema)
	parse := graphtest.Symbol("parse", 0, 40, 1)
	parseID := g.AddSymbol("src/lib.rs", parse)
	g.AddSymbol("src/lib.rs", graphtest.Symbol("parse_all", 50, 90, 5))
	g.AddSymbol("src/lib.rs", graphtest.Symbol("render", 100, 140, 10))
	g.AddReference(types.ReferenceNode{File: "src/main.rs", ReferencedSymbol: "parse", ByteStart: 10, ByteEnd: 15, StartLine: 2}, parseID)
	g.AddCall(types.CallNode{File: "src/main.rs", Caller: "main", Callee: "parse", CalleeSymbolID: parse.SymbolID, ByteStart: 10, ByteEnd: 17, StartLine: 2})
	g.AddMetrics(parse.SymbolID, types.SymbolMetrics{FanIn: graphtest.Int(3)})

	s.dbPath = g.Path
	s.snapPath = filepath.Join(s.T().TempDir(), "codegraph.snap")
	s.Require().NoError(backend.ExportFile(s.ctx, s.dbPath, s.snapPath))
}

// SetupTest opens fresh backends for each test
func (s *ServerTestSuite) SetupTest() {
	s.native = s.newServer(s.snapPath)
	s.sqlite = s.newServer(s.dbPath)
}

func (s *ServerTestSuite) newServer(path string) *Server {
	b, err := backend.Open(s.ctx, path, searcher.NewSearcher(nil, nil))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = b.Close() })

	cfg := config.Default()
	cfg.Search.Limit = 10
	return NewServer(b, cfg)
}

func call(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// decode unmarshals the single text block of a tool result into v
func (s *ServerTestSuite) decode(result *mcp.CallToolResult, v interface{}) {
	s.Require().NotNil(result)
	s.Require().Len(result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	s.Require().True(ok, "expected text content")
	s.Require().NoError(json.Unmarshal([]byte(text.Text), v))
}

func (s *ServerTestSuite) requireCode(err error, code int) *MCPError {
	s.Require().Error(err)
	mcpErr, ok := err.(*MCPError)
	s.Require().True(ok, "expected *MCPError, got %T", err)
	s.Equal(code, mcpErr.Code)
	return mcpErr
}

func (s *ServerTestSuite) TestToolRegistration() {
	var names []string
	for _, tool := range s.native.tools() {
		names = append(names, tool.Tool.Name)
		s.NotEmpty(tool.Tool.Description)
		s.Equal("object", tool.Tool.InputSchema.Type)
	}
	s.Equal([]string{"search_symbols", "search_references", "search_calls", "complete", "lookup"}, names)
}

func (s *ServerTestSuite) TestSearchSymbols() {
	result, err := s.native.handleSearchSymbols(s.ctx, call("search_symbols", map[string]interface{}{
		"query": "parse",
		"limit": float64(1),
	}))
	s.Require().NoError(err)

	var resp types.SymbolResponse
	s.decode(result, &resp)
	s.Equal(2, resp.TotalCount)
	s.False(resp.Partial)
	s.Require().Len(resp.Results, 1)
	s.Equal("parse", resp.Results[0].Name)
	s.Require().NotNil(resp.Results[0].Score)
	s.Equal(100, *resp.Results[0].Score)
}

func (s *ServerTestSuite) TestSearchSymbolsFilters() {
	result, err := s.sqlite.handleSearchSymbols(s.ctx, call("search_symbols", map[string]interface{}{
		"kinds":       []interface{}{"function"},
		"sort":        "fan_in",
		"min_fan_in":  float64(1),
		"path_prefix": "src/",
	}))
	s.Require().NoError(err)

	var resp types.SymbolResponse
	s.decode(result, &resp)
	s.Require().Len(resp.Results, 1)
	s.Equal("parse", resp.Results[0].Name)
	s.Require().NotNil(resp.Results[0].Metrics.FanIn)
	s.Equal(3, *resp.Results[0].Metrics.FanIn)
}

func (s *ServerTestSuite) TestSearchReferencesAndCalls() {
	result, err := s.native.handleSearchReferences(s.ctx, call("search_references", map[string]interface{}{
		"query": "parse",
	}))
	s.Require().NoError(err)
	var refs types.ReferenceResponse
	s.decode(result, &refs)
	s.Require().Len(refs.Results, 1)
	s.Equal("src/main.rs", refs.Results[0].Span.FilePath)

	result, err = s.native.handleSearchCalls(s.ctx, call("search_calls", map[string]interface{}{
		"query": "parse",
	}))
	s.Require().NoError(err)
	var calls types.CallResponse
	s.decode(result, &calls)
	s.Require().Len(calls.Results, 1)
	s.Equal("main", calls.Results[0].Caller)
	s.Equal("parse", calls.Results[0].Callee)
}

func (s *ServerTestSuite) TestComplete() {
	result, err := s.native.handleComplete(s.ctx, call("complete", map[string]interface{}{
		"prefix": "crate::pa",
	}))
	s.Require().NoError(err)

	var resp struct {
		Prefix string   `json:"prefix"`
		Names  []string `json:"names"`
	}
	s.decode(result, &resp)
	s.Equal("crate::pa", resp.Prefix)
	s.Equal([]string{"crate::parse", "crate::parse_all"}, resp.Names)

	_, err = s.native.handleComplete(s.ctx, call("complete", map[string]interface{}{}))
	s.requireCode(err, ErrorCodeInvalidParams)

	_, err = s.native.handleComplete(s.ctx, call("complete", map[string]interface{}{
		"prefix": "crate::",
		"limit":  float64(0),
	}))
	s.requireCode(err, ErrorCodeInvalidParams)
}

func (s *ServerTestSuite) TestLookup() {
	result, err := s.native.handleLookup(s.ctx, call("lookup", map[string]interface{}{
		"fqn": "crate::render",
	}))
	s.Require().NoError(err)

	var resp struct {
		FQN     string              `json:"fqn"`
		Results []types.SymbolMatch `json:"results"`
	}
	s.decode(result, &resp)
	s.Require().Len(resp.Results, 1)
	s.Equal("render", resp.Results[0].Name)

	_, err = s.native.handleLookup(s.ctx, call("lookup", map[string]interface{}{
		"fqn": "crate::rendr",
	}))
	mcpErr := s.requireCode(err, ErrorCodeNotFound)
	data, ok := mcpErr.Data.(map[string]interface{})
	s.Require().True(ok)
	s.Equal([]string{"crate::render"}, data["suggestions"])

	_, err = s.native.handleLookup(s.ctx, call("lookup", map[string]interface{}{"fqn": ""}))
	s.requireCode(err, ErrorCodeInvalidParams)
}

func (s *ServerTestSuite) TestErrorMapping() {
	tests := []struct {
		name    string
		server  func() *Server
		handler func(*Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
		code    int
	}{
		{
			name:    "invalid regex",
			server:  func() *Server { return s.native },
			handler: func(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return srv.handleSearchSymbols },
			args:    map[string]interface{}{"query": "(", "regex": true},
			code:    ErrorCodeInvalidParams,
		},
		{
			name:    "unknown sort mode",
			server:  func() *Server { return s.native },
			handler: func(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return srv.handleSearchCalls },
			args:    map[string]interface{}{"query": "parse", "sort": "alphabetical"},
			code:    ErrorCodeInvalidParams,
		},
		{
			name:    "negative limit",
			server:  func() *Server { return s.native },
			handler: func(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return srv.handleSearchReferences },
			args:    map[string]interface{}{"limit": float64(-1)},
			code:    ErrorCodeInvalidParams,
		},
		{
			name:    "algorithm filter on snapshot",
			server:  func() *Server { return s.native },
			handler: func(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return srv.handleSearchSymbols },
			args:    map[string]interface{}{"in_cycle": true},
			code:    ErrorCodeUnsupported,
		},
		{
			name:    "complete on sqlite",
			server:  func() *Server { return s.sqlite },
			handler: func(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return srv.handleComplete },
			args:    map[string]interface{}{"prefix": "crate::"},
			code:    ErrorCodeUnsupported,
		},
		{
			name:    "lookup on sqlite",
			server:  func() *Server { return s.sqlite },
			handler: func(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return srv.handleLookup },
			args:    map[string]interface{}{"fqn": "crate::parse"},
			code:    ErrorCodeUnsupported,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			result, err := tt.handler(tt.server())(s.ctx, call("", tt.args))
			s.Nil(result)
			s.requireCode(err, tt.code)
		})
	}
}

func (s *ServerTestSuite) TestInvalidArguments() {
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "search_symbols", Arguments: "not an object"}}
	_, err := s.native.handleSearchSymbols(s.ctx, req)
	s.requireCode(err, ErrorCodeInvalidParams)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
