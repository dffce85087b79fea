package types

// SortMode selects the ordering of search results
type SortMode string

const (
	SortRelevance  SortMode = "relevance"
	SortPosition   SortMode = "position"
	SortFanIn      SortMode = "fan_in"
	SortFanOut     SortMode = "fan_out"
	SortComplexity SortMode = "complexity"
)

// IsMetric reports whether the sort key comes from the metrics table
func (m SortMode) IsMetric() bool {
	return m == SortFanIn || m == SortFanOut || m == SortComplexity
}

// Defaults applied by SearchOptions.Normalized
const (
	DefaultLimit           = 50
	DefaultCandidates      = 500
	DefaultContextLines    = 3
	DefaultMaxSnippetBytes = 200
	MaxContextLines        = 100
)

// AstFilter restricts symbols by their structural anchor
type AstFilter struct {
	Kinds    []string // anchor node kind must be one of these (covering match)
	Inside   string   // kind of the anchor's direct parent
	Contains string   // kind of at least one direct child of the anchor
	MinDepth *int     // decision depth lower bound (inclusive)
	MaxDepth *int     // decision depth upper bound (inclusive)
}

// Active reports whether any structural filter is set
func (f AstFilter) Active() bool {
	return len(f.Kinds) > 0 || f.Inside != "" || f.Contains != "" || f.DepthActive()
}

// DepthActive reports whether a decision-depth bound is set
func (f AstFilter) DepthActive() bool {
	return f.MinDepth != nil || f.MaxDepth != nil
}

// MetricBounds restricts symbols by their metrics. Symbols with unknown
// metrics never satisfy a bound.
type MetricBounds struct {
	MinFanIn      *int
	MaxFanIn      *int
	MinFanOut     *int
	MaxFanOut     *int
	MinComplexity *int
	MaxComplexity *int
}

// Active reports whether any metric bound is set
func (b MetricBounds) Active() bool {
	return b.MinFanIn != nil || b.MaxFanIn != nil ||
		b.MinFanOut != nil || b.MaxFanOut != nil ||
		b.MinComplexity != nil || b.MaxComplexity != nil
}

// AlgorithmFilter asks the graph-algorithm collaborator for a symbol set.
// At most one field may be set per search.
type AlgorithmFilter struct {
	ReachableFrom  string // symbol id: everything reachable from it
	DeadCodeFrom   string // symbol id: everything unreachable from this entry point
	InCycle        bool   // symbols participating in a call cycle
	SliceFrom      string // symbol id: program slice
	SliceDirection string // "backward" (default) or "forward"
}

// Requested returns how many one-shot algorithm filters are set
func (a AlgorithmFilter) Requested() int {
	n := 0
	if a.ReachableFrom != "" {
		n++
	}
	if a.DeadCodeFrom != "" {
		n++
	}
	if a.InCycle {
		n++
	}
	if a.SliceFrom != "" {
		n++
	}
	return n
}

// SearchOptions is the immutable configuration of one search invocation
type SearchOptions struct {
	// Matching
	Query    string
	Regex    bool
	SymbolID string // identity: exact content-addressed symbol id
	FQN      string // identity: exact fully-qualified (or canonical) name

	// Filters
	PathPrefix string
	Language   string
	Kinds      []string
	Ast        AstFilter
	Metrics    MetricBounds
	SymbolSet  []string          // inclusion list of symbol ids
	Groups     map[string]string // optional symbol id -> group label for SymbolSet
	Algorithm  AlgorithmFilter

	// Paging and ordering
	Sort       SortMode
	Candidates int // max raw rows fetched
	Limit      int // max rows returned

	// Enrichment
	Root            string // resolves relative file paths for context/snippets
	WithContext     bool
	ContextLines    *int // lines on each side; nil selects DefaultContextLines
	WithSnippet     bool
	MaxSnippetBytes int
	WithAstContext  bool
}

// HasIdentity reports whether an identity filter replaces fuzzy matching
func (o SearchOptions) HasIdentity() bool {
	return o.SymbolID != "" || o.FQN != ""
}

// Normalized returns a copy with defaults applied
func (o SearchOptions) Normalized() SearchOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Candidates <= 0 {
		o.Candidates = DefaultCandidates
	}
	if o.Sort == "" {
		o.Sort = SortRelevance
	}
	if o.WithContext && o.ContextLines == nil {
		n := DefaultContextLines
		o.ContextLines = &n
	}
	if o.WithSnippet && o.MaxSnippetBytes <= 0 {
		o.MaxSnippetBytes = DefaultMaxSnippetBytes
	}
	return o
}
