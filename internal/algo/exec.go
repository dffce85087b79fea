package algo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds one run of the external algorithm binary
const DefaultTimeout = 30 * time.Second

// ExecResolver runs an external graph tool and decodes its JSON output:
//
//	{"symbol_ids": ["..."], "groups": {"id": "label"}, "bounded": false}
//
// or {"error": "reason"} on failure. It never retries.
type ExecResolver struct {
	Binary  string
	Timeout time.Duration
}

// NewExecResolver creates a resolver for binary with the given timeout
func NewExecResolver(binary string, timeout time.Duration) *ExecResolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecResolver{Binary: binary, Timeout: timeout}
}

type execOutput struct {
	SymbolIDs []string          `json:"symbol_ids"`
	Groups    map[string]string `json:"groups"`
	Bounded   bool              `json:"bounded"`
	Error     string            `json:"error"`
}

// Args returns the command line for req, without the binary
func Args(req Request) []string {
	args := []string{string(req.Kind), "--db", req.DBPath}
	if req.SymbolID != "" {
		args = append(args, "--symbol-id", req.SymbolID)
	}
	if req.Direction != "" {
		args = append(args, "--direction", req.Direction)
	}
	return append(args, "--output", "json")
}

// Resolve runs the binary once
func (r *ExecResolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	if r.Binary == "" {
		return nil, &Error{Kind: req.Kind, Reason: "no algorithm binary configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, Args(req)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{Kind: req.Kind, Reason: "timed out after " + r.Timeout.String(), Err: ctx.Err()}
		}
		if out, ok := decodeOutput(stdout.Bytes()); ok && out.Error != "" {
			return nil, &Error{Kind: req.Kind, Reason: out.Error, Err: err}
		}
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = "command failed"
		}
		return nil, &Error{Kind: req.Kind, Reason: reason, Err: err}
	}

	out, ok := decodeOutput(stdout.Bytes())
	if !ok {
		return nil, &Error{Kind: req.Kind, Reason: "malformed output"}
	}
	if out.Error != "" {
		return nil, &Error{Kind: req.Kind, Reason: out.Error}
	}
	return &Result{IDs: out.SymbolIDs, Groups: out.Groups, Bounded: out.Bounded}, nil
}

func decodeOutput(data []byte) (*execOutput, bool) {
	var out execOutput
	if err := json.Unmarshal(bytes.TrimSpace(data), &out); err != nil {
		return nil, false
	}
	return &out, true
}
