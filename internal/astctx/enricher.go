package astctx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/oldnordic/llmgrep/internal/storage"
	"github.com/oldnordic/llmgrep/pkg/types"
)

const (
	// MaxWalkSteps bounds every parent walk and descendant traversal
	MaxWalkSteps = 1024

	// batchSize caps the parent ids bound into one descendant query
	batchSize = 500
)

// decisionKinds are branch and loop node kinds across the supported grammars
var decisionKinds = map[string]bool{
	"if_statement":           true,
	"if_expression":          true,
	"if_let_expression":      true,
	"elif_clause":            true,
	"for_statement":          true,
	"for_in_statement":       true,
	"for_expression":         true,
	"enhanced_for_statement": true,
	"while_statement":        true,
	"while_expression":       true,
	"do_statement":           true,
	"loop_expression":        true,
	"match_expression":       true,
	"switch_statement":       true,
	"switch_expression":      true,
	"conditional_expression": true,
	"ternary_expression":     true,
	"try_statement":          true,
	"catch_clause":           true,
}

// IsDecisionPoint reports whether kind is a branch or loop construct
func IsDecisionPoint(kind string) bool {
	return decisionKinds[kind]
}

// Fields selects which context fields Enrich computes
type Fields struct {
	Parent         bool
	Depth          bool
	Children       bool
	DecisionPoints bool
}

// AllFields requests every field
var AllFields = Fields{Parent: true, Depth: true, Children: true, DecisionPoints: true}

// Enricher computes structural context from the ast_nodes table. It
// memoizes nodes for the lifetime of one query.
type Enricher struct {
	q     storage.Querier
	nodes map[int64]*types.AstNode
}

// New creates an enricher reading through q
func New(q storage.Querier) *Enricher {
	return &Enricher{q: q, nodes: make(map[int64]*types.AstNode)}
}

const nodeColumns = "id, parent_id, kind, byte_start, byte_end"

func scanNode(row interface{ Scan(...interface{}) error }) (*types.AstNode, error) {
	var n types.AstNode
	var parent sql.NullInt64
	if err := row.Scan(&n.ID, &parent, &n.Kind, &n.ByteStart, &n.ByteEnd); err != nil {
		return nil, err
	}
	if parent.Valid {
		id := parent.Int64
		n.ParentID = &id
	}
	return &n, nil
}

// Node loads one node by id, or returns storage.ErrNotFound
func (e *Enricher) Node(ctx context.Context, id int64) (*types.AstNode, error) {
	if n, ok := e.nodes[id]; ok {
		return n, nil
	}
	row := e.q.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM ast_nodes WHERE id = ?", id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ast node %d: %w", id, err)
	}
	e.nodes[id] = n
	return n, nil
}

func (e *Enricher) queryOne(ctx context.Context, query string, args ...interface{}) (*types.AstNode, error) {
	n, err := scanNode(e.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ast anchor: %w", err)
	}
	e.nodes[n.ID] = n
	return n, nil
}

// FindAnchor returns the node anchoring the byte range [start, end), or
// nil when there is none. Nodes of a preferred kind that overlap the range
// win, covering nodes and then smaller spans first; otherwise a node with
// the exact span; otherwise the smallest enclosing node.
func (e *Enricher) FindAnchor(ctx context.Context, start, end int, preferred []string) (*types.AstNode, error) {
	if len(preferred) > 0 {
		args := []interface{}{end, start}
		for _, k := range preferred {
			args = append(args, k)
		}
		args = append(args, start, end)
		n, err := e.queryOne(ctx, fmt.Sprintf(`SELECT %s FROM ast_nodes
			WHERE byte_start < ? AND byte_end > ? AND kind IN (%s)
			ORDER BY (byte_start <= ? AND byte_end >= ?) DESC, (byte_end - byte_start), id
			LIMIT 1`, nodeColumns, placeholders(len(preferred))), args...)
		if n != nil || err != nil {
			return n, err
		}
	}

	n, err := e.queryOne(ctx, "SELECT "+nodeColumns+` FROM ast_nodes
		WHERE byte_start = ? AND byte_end = ?
		ORDER BY id LIMIT 1`, start, end)
	if n != nil || err != nil {
		return n, err
	}

	return e.queryOne(ctx, "SELECT "+nodeColumns+` FROM ast_nodes
		WHERE byte_start <= ? AND byte_end >= ?
		ORDER BY (byte_end - byte_start), id LIMIT 1`, start, end)
}

// Walk is the result of an ancestor walk
type Walk struct {
	Depth         int // parent edges followed to the root
	DecisionDepth int // decision points among the node and its ancestors
	Complete      bool
}

// Ancestors walks parent pointers from node up to the root. A cycle, a
// dangling parent or the step ceiling stops the walk early; the counts so
// far are returned with Complete false and a warning.
func (e *Enricher) Ancestors(ctx context.Context, node *types.AstNode) (Walk, string, error) {
	w := Walk{}
	if IsDecisionPoint(node.Kind) {
		w.DecisionDepth = 1
	}

	visited := map[int64]bool{node.ID: true}
	cur := node
	for step := 0; ; step++ {
		if cur.ParentID == nil {
			w.Complete = true
			return w, "", nil
		}
		if step >= MaxWalkSteps {
			return w, fmt.Sprintf("ast node %d: ancestor walk exceeded %d steps", node.ID, MaxWalkSteps), nil
		}
		pid := *cur.ParentID
		if visited[pid] {
			return w, fmt.Sprintf("ast node %d: parent cycle at node %d", node.ID, pid), nil
		}
		visited[pid] = true

		parent, err := e.Node(ctx, pid)
		if errors.Is(err, storage.ErrNotFound) {
			return w, fmt.Sprintf("ast node %d: missing parent %d", node.ID, pid), nil
		}
		if err != nil {
			return w, "", err
		}
		w.Depth++
		if IsDecisionPoint(parent.Kind) {
			w.DecisionDepth++
		}
		cur = parent
	}
}

// ChildCounts counts the direct children of node by kind
func (e *Enricher) ChildCounts(ctx context.Context, node *types.AstNode) (map[string]int, error) {
	rows, err := e.q.QueryContext(ctx,
		"SELECT kind, COUNT(*) FROM ast_nodes WHERE parent_id = ? AND id != ? GROUP BY kind ORDER BY kind",
		node.ID, node.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count ast children: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to count ast children: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// DecisionPoints counts decision-point descendants of node, breadth
// first. Like Ancestors it stops at cycles and the step ceiling.
func (e *Enricher) DecisionPoints(ctx context.Context, node *types.AstNode) (int, string, error) {
	visited := map[int64]bool{node.ID: true}
	frontier := []int64{node.ID}
	count := 0

	for level := 0; len(frontier) > 0; level++ {
		if level >= MaxWalkSteps {
			return count, fmt.Sprintf("ast node %d: descendant walk exceeded %d levels", node.ID, MaxWalkSteps), nil
		}

		var next []int64
		cycle := false
		for start := 0; start < len(frontier); start += batchSize {
			end := start + batchSize
			if end > len(frontier) {
				end = len(frontier)
			}
			children, err := e.children(ctx, frontier[start:end])
			if err != nil {
				return count, "", err
			}
			for _, c := range children {
				if visited[c.ID] {
					cycle = true
					continue
				}
				visited[c.ID] = true
				if IsDecisionPoint(c.Kind) {
					count++
				}
				next = append(next, c.ID)
			}
		}
		if cycle {
			return count, fmt.Sprintf("ast node %d: cycle below node", node.ID), nil
		}
		frontier = next
	}
	return count, "", nil
}

func (e *Enricher) children(ctx context.Context, parents []int64) ([]*types.AstNode, error) {
	args := make([]interface{}, len(parents))
	for i, id := range parents {
		args[i] = id
	}
	rows, err := e.q.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM ast_nodes WHERE parent_id IN (%s) ORDER BY id",
		nodeColumns, placeholders(len(parents))), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load ast children: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []*types.AstNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to load ast children: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Enrich builds the context of node. Each requested field is computed
// independently; a failure leaves that field nil and adds a warning
// without dropping the others.
func (e *Enricher) Enrich(ctx context.Context, node *types.AstNode, f Fields) (*types.AstContext, []string) {
	out := &types.AstContext{
		NodeID:    node.ID,
		Kind:      node.Kind,
		ByteStart: node.ByteStart,
		ByteEnd:   node.ByteEnd,
	}
	var warnings []string

	if f.Parent && node.ParentID != nil {
		parent, err := e.Node(ctx, *node.ParentID)
		switch {
		case err == nil:
			kind := parent.Kind
			out.ParentKind = &kind
		case !errors.Is(err, storage.ErrNotFound):
			warnings = append(warnings, fmt.Sprintf("ast node %d: parent kind unavailable: %v", node.ID, err))
		}
	}

	if f.Depth {
		walk, warning, err := e.Ancestors(ctx, node)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ast node %d: depth unavailable: %v", node.ID, err))
		} else {
			out.Depth = &walk.Depth
			out.DecisionDepth = &walk.DecisionDepth
			if warning != "" {
				warnings = append(warnings, warning)
			}
		}
	}

	if f.Children {
		counts, err := e.ChildCounts(ctx, node)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ast node %d: children unavailable: %v", node.ID, err))
		} else {
			out.Children = counts
		}
	}

	if f.DecisionPoints {
		n, warning, err := e.DecisionPoints(ctx, node)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ast node %d: decision points unavailable: %v", node.ID, err))
		} else {
			out.DecisionPoints = &n
			if warning != "" {
				warnings = append(warnings, warning)
			}
		}
	}

	return out, warnings
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
