package searcher

import (
	"fmt"
	"regexp"
	"regexp/syntax"

	"github.com/oldnordic/llmgrep/internal/algo"
	"github.com/oldnordic/llmgrep/internal/query"
	"github.com/oldnordic/llmgrep/pkg/types"
)

const (
	// MaxPatternBytes bounds the source length of a regex query
	MaxPatternBytes = 4096

	// MaxProgramSize bounds the compiled size of a regex query
	MaxProgramSize = 10000
)

// Kind names a search kind
type Kind string

const (
	KindSymbols    Kind = "symbols"
	KindReferences Kind = "references"
	KindCalls      Kind = "calls"
)

// Validate checks opts for a search of the given kind without touching
// storage. Backends and front ends call it before opening anything, so an
// invalid request is reported as such whatever else is wrong.
func Validate(kind Kind, opts types.SearchOptions) error {
	opts = opts.Normalized()
	var err error
	switch kind {
	case KindSymbols:
		err = validateSymbols(opts)
	case KindReferences, KindCalls:
		err = validateCommon(opts, false)
	default:
		return fmt.Errorf("unknown search kind %q", kind)
	}
	if err != nil {
		return err
	}
	_, err = pattern(opts)
	return err
}

// ValidationError reports a request that was rejected before any I/O
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...), Err: err}
}

// compilePattern compiles a regex query under the size ceilings
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > MaxPatternBytes {
		return nil, invalid("regex", types.ErrInvalidPattern, "pattern is %d bytes, limit %d", len(pattern), MaxPatternBytes)
	}
	parsed, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, invalid("regex", types.ErrInvalidPattern, "%v", err)
	}
	prog, err := syntax.Compile(parsed.Simplify())
	if err != nil {
		return nil, invalid("regex", types.ErrInvalidPattern, "%v", err)
	}
	if len(prog.Inst) > MaxProgramSize {
		return nil, invalid("regex", types.ErrInvalidPattern, "compiled program has %d instructions, limit %d", len(prog.Inst), MaxProgramSize)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, invalid("regex", types.ErrInvalidPattern, "%v", err)
	}
	return re, nil
}

func checkBounds(field string, min, max *int) error {
	if min != nil && max != nil && *min > *max {
		return invalid(field, types.ErrInvalidBounds, "min %d > max %d", *min, *max)
	}
	return nil
}

// validateCommon checks what every search kind shares. metricSort allows
// the metric sort modes.
func validateCommon(opts types.SearchOptions, metricSort bool) error {
	switch opts.Sort {
	case types.SortRelevance, types.SortPosition:
	case types.SortFanIn, types.SortFanOut, types.SortComplexity:
		if !metricSort {
			return invalid("sort", types.ErrInvalidSortMode, "%q is only valid for symbol search", opts.Sort)
		}
	default:
		return invalid("sort", types.ErrInvalidSortMode, "unknown sort mode %q", opts.Sort)
	}

	if opts.ContextLines != nil && *opts.ContextLines < 0 {
		return invalid("context_lines", types.ErrInvalidBounds, "%d is negative", *opts.ContextLines)
	}

	if opts.Language != "" {
		if _, ok := query.CanonicalLanguage(opts.Language); !ok {
			return invalid("language", types.ErrUnknownLanguage, "%q (known: %v)", opts.Language, query.Languages())
		}
	}
	return nil
}

// validateSymbols checks a symbol search request
func validateSymbols(opts types.SearchOptions) error {
	if err := validateCommon(opts, true); err != nil {
		return err
	}

	a := opts.Algorithm
	sources := a.Requested()
	if len(opts.SymbolSet) > 0 {
		sources++
	}
	if sources > 1 {
		return invalid("filters", types.ErrConflictingInput,
			"reachable_from, dead_code_from, in_cycle, slice and an explicit symbol set are mutually exclusive")
	}
	if a.SliceFrom != "" {
		switch a.SliceDirection {
		case "", algo.DirectionBackward, algo.DirectionForward:
		default:
			return invalid("slice_direction", types.ErrInvalidDirection, "%q (want backward or forward)", a.SliceDirection)
		}
	}

	m := opts.Metrics
	for _, b := range []struct {
		field    string
		min, max *int
	}{
		{"fan_in", m.MinFanIn, m.MaxFanIn},
		{"fan_out", m.MinFanOut, m.MaxFanOut},
		{"complexity", m.MinComplexity, m.MaxComplexity},
		{"depth", opts.Ast.MinDepth, opts.Ast.MaxDepth},
	} {
		if err := checkBounds(b.field, b.min, b.max); err != nil {
			return err
		}
	}
	return nil
}
