package types

// EntityKind is the kind tag stored on every graph entity
type EntityKind string

const (
	EntityFile      EntityKind = "File"
	EntitySymbol    EntityKind = "Symbol"
	EntityReference EntityKind = "Reference"
	EntityCall      EntityKind = "Call"
)

// EdgeType is the label of a directed graph edge
type EdgeType string

const (
	EdgeDefines    EdgeType = "DEFINES"    // File -> Symbol
	EdgeReferences EdgeType = "REFERENCES" // Reference -> Symbol
)

// Span locates a byte range inside a source file.
// Lines and columns are 1-based, bytes are 0-based and end-exclusive.
type Span struct {
	FilePath  string `json:"file_path"`
	ByteStart int    `json:"byte_start"`
	ByteEnd   int    `json:"byte_end"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// SymbolNode is the decoded payload of a Symbol entity
type SymbolNode struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	KindNormalized string `json:"kind_normalized,omitempty"`
	FQN            string `json:"fqn,omitempty"`
	DisplayFQN     string `json:"display_fqn,omitempty"`
	CanonicalFQN   string `json:"canonical_fqn,omitempty"`
	SymbolID       string `json:"symbol_id,omitempty"`
	FilePath       string `json:"file_path,omitempty"`
	ByteStart      int    `json:"byte_start"`
	ByteEnd        int    `json:"byte_end"`
	StartLine      int    `json:"start_line"`
	StartCol       int    `json:"start_col"`
	EndLine        int    `json:"end_line"`
	EndCol         int    `json:"end_col"`
}

// Span returns the symbol location, using path for the file component
func (s *SymbolNode) Span(path string) Span {
	return Span{
		FilePath:  path,
		ByteStart: s.ByteStart,
		ByteEnd:   s.ByteEnd,
		StartLine: s.StartLine,
		StartCol:  s.StartCol,
		EndLine:   s.EndLine,
		EndCol:    s.EndCol,
	}
}

// FileNode is the decoded payload of a File entity
type FileNode struct {
	Path string `json:"path"`
}

// ReferenceNode is the decoded payload of a Reference entity
type ReferenceNode struct {
	File             string `json:"file"`
	ReferencedSymbol string `json:"referenced_symbol"`
	ByteStart        int    `json:"byte_start"`
	ByteEnd          int    `json:"byte_end"`
	StartLine        int    `json:"start_line"`
	StartCol         int    `json:"start_col"`
	EndLine          int    `json:"end_line"`
	EndCol           int    `json:"end_col"`
}

// Span returns the reference location
func (r *ReferenceNode) Span() Span {
	return Span{
		FilePath:  r.File,
		ByteStart: r.ByteStart,
		ByteEnd:   r.ByteEnd,
		StartLine: r.StartLine,
		StartCol:  r.StartCol,
		EndLine:   r.EndLine,
		EndCol:    r.EndCol,
	}
}

// CallNode is the decoded payload of a Call entity
type CallNode struct {
	File           string `json:"file"`
	Caller         string `json:"caller"`
	Callee         string `json:"callee"`
	CallerSymbolID string `json:"caller_symbol_id,omitempty"`
	CalleeSymbolID string `json:"callee_symbol_id,omitempty"`
	ByteStart      int    `json:"byte_start"`
	ByteEnd        int    `json:"byte_end"`
	StartLine      int    `json:"start_line"`
	StartCol       int    `json:"start_col"`
	EndLine        int    `json:"end_line"`
	EndCol         int    `json:"end_col"`
}

// Span returns the call-site location
func (c *CallNode) Span() Span {
	return Span{
		FilePath:  c.File,
		ByteStart: c.ByteStart,
		ByteEnd:   c.ByteEnd,
		StartLine: c.StartLine,
		StartCol:  c.StartCol,
		EndLine:   c.EndLine,
		EndCol:    c.EndCol,
	}
}

// AstNode is a single row of the structural node table
type AstNode struct {
	ID        int64  `json:"id"`
	ParentID  *int64 `json:"parent_id,omitempty"` // nil for roots
	Kind      string `json:"kind"`
	ByteStart int    `json:"byte_start"`
	ByteEnd   int    `json:"byte_end"`
}

// CodeChunk is pre-extracted source text keyed by its exact byte range
type CodeChunk struct {
	FilePath    string `json:"file_path"`
	ByteStart   int    `json:"byte_start"`
	ByteEnd     int    `json:"byte_end"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
	SymbolKind  string `json:"symbol_kind,omitempty"`
}

// SymbolMetrics holds per-symbol graph metrics. A nil field means unknown.
type SymbolMetrics struct {
	FanIn      *int `json:"fan_in,omitempty"`
	FanOut     *int `json:"fan_out,omitempty"`
	Complexity *int `json:"cyclomatic_complexity,omitempty"`
}

// IsZero reports whether no metric is known
func (m SymbolMetrics) IsZero() bool {
	return m.FanIn == nil && m.FanOut == nil && m.Complexity == nil
}
