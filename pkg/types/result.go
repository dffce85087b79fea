package types

// AstContext describes the structural node anchoring a symbol.
// Optional fields are nil when not requested or when their computation failed.
type AstContext struct {
	NodeID         int64          `json:"ast_id"`
	Kind           string         `json:"kind"`
	ByteStart      int            `json:"byte_start"`
	ByteEnd        int            `json:"byte_end"`
	ParentKind     *string        `json:"parent_kind,omitempty"`
	Depth          *int           `json:"depth,omitempty"`
	DecisionDepth  *int           `json:"decision_depth,omitempty"`
	Children       map[string]int `json:"children,omitempty"`
	DecisionPoints *int           `json:"decision_points,omitempty"`
}

// ContextLines is a window of source lines around a match
type ContextLines struct {
	Before    []string `json:"before"`
	Lines     []string `json:"lines"`
	After     []string `json:"after"`
	Truncated bool     `json:"truncated"`
}

// Snippet is the source text of a match, possibly capped
type Snippet struct {
	Content     string `json:"content"`
	ContentHash string `json:"content_hash,omitempty"`
	Source      string `json:"source"` // "chunk" or "file"
	Truncated   bool   `json:"truncated"`
}

// SymbolMatch is one row of a symbol search
type SymbolMatch struct {
	MatchID      string        `json:"match_id"`
	SpanID       string        `json:"span_id"`
	Span         Span          `json:"span"`
	Name         string        `json:"name"`
	Kind         string        `json:"kind"`
	Language     string        `json:"language,omitempty"`
	FQN          string        `json:"fqn,omitempty"`
	DisplayFQN   string        `json:"display_fqn,omitempty"`
	CanonicalFQN string        `json:"canonical_fqn,omitempty"`
	SymbolID     string        `json:"symbol_id,omitempty"`
	Score        *int          `json:"score,omitempty"`
	Metrics      SymbolMetrics `json:"metrics"`
	Group        string        `json:"group,omitempty"`
	Context      *ContextLines `json:"context,omitempty"`
	Snippet      *Snippet      `json:"snippet,omitempty"`
	Ast          *AstContext   `json:"ast_context,omitempty"`
}

// ReferenceMatch is one row of a reference search
type ReferenceMatch struct {
	MatchID          string        `json:"match_id"`
	SpanID           string        `json:"span_id"`
	Span             Span          `json:"span"`
	ReferencedSymbol string        `json:"referenced_symbol"`
	TargetSymbolID   string        `json:"target_symbol_id,omitempty"`
	TargetFQN        string        `json:"target_fqn,omitempty"`
	Language         string        `json:"language,omitempty"`
	Score            *int          `json:"score,omitempty"`
	Context          *ContextLines `json:"context,omitempty"`
	Snippet          *Snippet      `json:"snippet,omitempty"`
}

// CallMatch is one row of a call search
type CallMatch struct {
	MatchID        string        `json:"match_id"`
	SpanID         string        `json:"span_id"`
	Span           Span          `json:"span"`
	Caller         string        `json:"caller"`
	Callee         string        `json:"callee"`
	CallerSymbolID string        `json:"caller_symbol_id,omitempty"`
	CalleeSymbolID string        `json:"callee_symbol_id,omitempty"`
	Language       string        `json:"language,omitempty"`
	Score          *int          `json:"score,omitempty"`
	Context        *ContextLines `json:"context,omitempty"`
	Snippet        *Snippet      `json:"snippet,omitempty"`
}

// SymbolResponse is the result of a symbol search
type SymbolResponse struct {
	Results    []SymbolMatch `json:"results"`
	TotalCount int           `json:"total_count"`
	Partial    bool          `json:"partial"`
	Bounded    bool          `json:"bounded"` // the algorithm collaborator hit its enumeration bound
	Warnings   []string      `json:"warnings,omitempty"`
}

// ReferenceResponse is the result of a reference search
type ReferenceResponse struct {
	Results    []ReferenceMatch `json:"results"`
	TotalCount int              `json:"total_count"`
	Partial    bool             `json:"partial"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// CallResponse is the result of a call search
type CallResponse struct {
	Results    []CallMatch `json:"results"`
	TotalCount int         `json:"total_count"`
	Partial    bool        `json:"partial"`
	Warnings   []string    `json:"warnings,omitempty"`
}
