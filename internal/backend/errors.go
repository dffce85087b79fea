package backend

import (
	"fmt"
	"strings"
)

// UnsupportedError reports a command the opened backend can't serve
type UnsupportedError struct {
	Command string
	Path    string
	Backend Kind
}

func (e *UnsupportedError) Error() string {
	if e.Backend == KindNative {
		return fmt.Sprintf("%s is not supported by the native backend (%s); run the query against the SQLite database the snapshot was exported from",
			e.Command, e.Path)
	}
	return fmt.Sprintf("%s is not supported by the %s backend (%s); export a native snapshot with 'llmgrep export' and query that instead",
		e.Command, e.Backend, e.Path)
}

// QueryError wraps a failed search on an opened backend
type QueryError struct {
	Op   string
	Path string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s on %s failed: %v", e.Op, e.Path, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// LookupError reports an exact lookup that found nothing, with the closest
// known names
type LookupError struct {
	FQN         string
	Suggestions []string
	Err         error
}

func (e *LookupError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("no symbol named %q", e.FQN)
	}
	return fmt.Sprintf("no symbol named %q (did you mean %s?)", e.FQN, strings.Join(e.Suggestions, ", "))
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
