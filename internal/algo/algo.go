package algo

import (
	"context"
	"fmt"

	"github.com/oldnordic/llmgrep/pkg/types"
)

// Kind names a graph algorithm the collaborator can run
type Kind string

const (
	KindReachable Kind = "reachable"
	KindDeadCode  Kind = "dead-code"
	KindCycles    Kind = "cycles"
	KindSlice     Kind = "slice"
)

// Slice directions
const (
	DirectionBackward = "backward"
	DirectionForward  = "forward"
)

// Request asks for the symbol set of one algorithm run
type Request struct {
	Kind      Kind
	DBPath    string
	SymbolID  string // start symbol; empty for cycles
	Direction string // slice only
}

// Result is the symbol set an algorithm produced
type Result struct {
	IDs     []string
	Groups  map[string]string // optional symbol id -> group label
	Bounded bool              // enumeration stopped at the collaborator's own bound
}

// Error is a failure reported by the collaborator
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s algorithm failed: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s algorithm failed: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Resolver turns an algorithm request into a symbol set
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*Result, error)
}

// RequestFor maps an algorithm filter onto a request. It reports false
// when no algorithm is requested. Callers validate that at most one is.
func RequestFor(f types.AlgorithmFilter, dbPath string) (Request, bool) {
	switch {
	case f.ReachableFrom != "":
		return Request{Kind: KindReachable, DBPath: dbPath, SymbolID: f.ReachableFrom}, true
	case f.DeadCodeFrom != "":
		return Request{Kind: KindDeadCode, DBPath: dbPath, SymbolID: f.DeadCodeFrom}, true
	case f.InCycle:
		return Request{Kind: KindCycles, DBPath: dbPath}, true
	case f.SliceFrom != "":
		dir := f.SliceDirection
		if dir == "" {
			dir = DirectionBackward
		}
		return Request{Kind: KindSlice, DBPath: dbPath, SymbolID: f.SliceFrom, Direction: dir}, true
	}
	return Request{}, false
}
