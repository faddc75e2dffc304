// Package explain turns tabular EXPLAIN QUERY PLAN output into a
// parent/child tree and renders it as indented text.
//
// The engine emits one row per plan node: (id, parent_id, aux, detail),
// with parent_id 0 marking a root. Parse builds the tree in two passes
// so row order does not matter; a row referencing a parent id that
// never appears is reported as an *OrphanError rather than guessed at.
package explain

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xraph/quorum/result"
)

// Node is a single plan step. ParentID refers to the parent by id only;
// ownership runs strictly downward through Children.
type Node struct {
	ID       int64
	ParentID int64
	Detail   string
	Children []*Node
}

// Plan is a parsed query plan.
type Plan struct {
	Roots []*Node

	largestID int64
}

// OrphanError reports a plan row whose parent id does not exist in the
// row set.
type OrphanError struct {
	RowID    int64
	ParentID int64
}

func (e *OrphanError) Error() string {
	return fmt.Sprintf("explain: row %d references missing parent %d", e.RowID, e.ParentID)
}

// Parse builds a Plan from a read result. Every row must carry exactly
// the engine's four columns.
func Parse(item *result.Item) (*Plan, error) {
	if item.Kind() != result.KindRead {
		return nil, fmt.Errorf("explain: result carries no rows (kind %s)", item.Kind())
	}

	values := item.Values()
	nodes := make(map[int64]*Node, len(values))
	order := make([]*Node, 0, len(values))
	plan := &Plan{}

	for i, row := range values {
		if len(row) != 4 {
			return nil, fmt.Errorf("explain: row %d has %d columns, want 4", i, len(row))
		}

		id, err := toInt64(row[0])
		if err != nil {
			return nil, fmt.Errorf("explain: row %d id: %w", i, err)
		}

		parent, err := toInt64(row[1])
		if err != nil {
			return nil, fmt.Errorf("explain: row %d parent id: %w", i, err)
		}

		detail, ok := row[3].(string)
		if !ok {
			return nil, fmt.Errorf("explain: row %d detail is %T, want string", i, row[3])
		}

		node := &Node{ID: id, ParentID: parent, Detail: detail}
		nodes[id] = node
		order = append(order, node)

		if id > plan.largestID {
			plan.largestID = id
		}
	}

	// Second pass: rows may arrive in any order, so link only after
	// every node exists.
	for _, node := range order {
		if node.ParentID == 0 {
			plan.Roots = append(plan.Roots, node)

			continue
		}

		parent, ok := nodes[node.ParentID]
		if !ok {
			return nil, &OrphanError{RowID: node.ID, ParentID: node.ParentID}
		}

		parent.Children = append(parent.Children, node)
	}

	return plan, nil
}

// LargestID returns the widest node id, used for alignment when
// rendering raw ids.
func (p *Plan) LargestID() int64 {
	return p.largestID
}

type renderConfig struct {
	indent int
	rawIDs bool
}

// RenderOption adjusts text rendering.
type RenderOption func(*renderConfig)

// WithIndent sets the per-level indent width. Minimum 2: one pipe plus
// at least zero dashes per marker, shifted one level per depth.
func WithIndent(n int) RenderOption {
	return func(c *renderConfig) {
		if n >= 2 {
			c.indent = n
		}
	}
}

// WithRawIDs prefixes every line with its (id, parent_id) pair,
// right-aligned to the width of the largest id.
func WithRawIDs() RenderOption {
	return func(c *renderConfig) {
		c.rawIDs = true
	}
}

// Render writes the plan as text, one node per line. Roots are flush
// left; a node at depth d is padded with d*indent-1 spaces and marked
// with a pipe followed by indent-2 dashes.
func (p *Plan) Render(opts ...RenderOption) string {
	var b strings.Builder

	p.render(&b, opts...)

	return b.String()
}

// WriteTo renders the plan into w.
func (p *Plan) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, p.Render())
	if err != nil {
		return int64(n), fmt.Errorf("explain: write plan: %w", err)
	}

	return int64(n), nil
}

func (p *Plan) render(b *strings.Builder, opts ...RenderOption) {
	cfg := renderConfig{indent: 3}
	for _, opt := range opts {
		opt(&cfg)
	}

	idWidth := len(fmt.Sprintf("%d", p.largestID))
	marker := "|" + strings.Repeat("-", cfg.indent-2)

	var walk func(node *Node, depth int)
	walk = func(node *Node, depth int) {
		if cfg.rawIDs {
			fmt.Fprintf(b, "%*d %*d ", idWidth, node.ID, idWidth, node.ParentID)
		}

		if depth > 0 {
			b.WriteString(strings.Repeat(" ", depth*cfg.indent-1))
			b.WriteString(marker)
		}

		b.WriteString(node.Detail)
		b.WriteByte('\n')

		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}

	for _, root := range p.Roots {
		walk(root, 0)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("non-integer id %q: %w", n.String(), err)
		}

		return i, nil
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}
