package explain_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/quorum/explain"
	"github.com/xraph/quorum/result"
)

func planItem(t *testing.T, values string) *result.Item {
	t.Helper()

	raw := `{"columns":["id","parent","notused","detail"],"types":["","","",""],"values":` + values + `}`

	item, err := result.ParseItem(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("ParseItem failed: %v", err)
	}

	return item
}

func TestParseSimpleTree(t *testing.T) {
	item := planItem(t, `[[1,0,0,"SCAN t"],[2,1,0,"USE INDEX ix"]]`)

	plan, err := explain.Parse(item)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(plan.Roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(plan.Roots))
	}

	root := plan.Roots[0]
	if root.ID != 1 || root.Detail != "SCAN t" {
		t.Errorf("root = %+v", root)
	}
	if len(root.Children) != 1 {
		t.Fatalf("children = %d, want 1", len(root.Children))
	}

	child := root.Children[0]
	if child.ID != 2 || child.ParentID != 1 || child.Detail != "USE INDEX ix" {
		t.Errorf("child = %+v", child)
	}
	if plan.LargestID() != 2 {
		t.Errorf("LargestID = %d, want 2", plan.LargestID())
	}
}

// Rows are linked in a second pass, so a child arriving before its
// parent still attaches.
func TestParseOutOfOrderRows(t *testing.T) {
	item := planItem(t, `[[2,1,0,"USE INDEX ix"],[1,0,0,"SCAN t"]]`)

	plan, err := explain.Parse(item)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(plan.Roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(plan.Roots))
	}
	if len(plan.Roots[0].Children) != 1 {
		t.Fatalf("children = %d, want 1", len(plan.Roots[0].Children))
	}
}

func TestParseOrphan(t *testing.T) {
	item := planItem(t, `[[1,0,0,"SCAN t"],[3,9,0,"DANGLING"]]`)

	_, err := explain.Parse(item)
	if err == nil {
		t.Fatal("expected orphan error")
	}

	var orphan *explain.OrphanError
	if !errors.As(err, &orphan) {
		t.Fatalf("expected *OrphanError, got %T", err)
	}
	if orphan.RowID != 3 || orphan.ParentID != 9 {
		t.Errorf("orphan = %+v", orphan)
	}
}

func TestParseMultipleRoots(t *testing.T) {
	item := planItem(t, `[[1,0,0,"SCAN a"],[2,0,0,"SCAN b"],[3,2,0,"USE INDEX ix"]]`)

	plan, err := explain.Parse(item)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(plan.Roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(plan.Roots))
	}
	if len(plan.Roots[1].Children) != 1 {
		t.Errorf("second root children = %d, want 1", len(plan.Roots[1].Children))
	}
}

func TestParseRejectsWrongShape(t *testing.T) {
	tests := []struct {
		name   string
		values string
	}{
		{"too few columns", `[[1,0,"SCAN t"]]`},
		{"too many columns", `[[1,0,0,"SCAN t",9]]`},
		{"non-integer id", `[["x",0,0,"SCAN t"]]`},
		{"non-string detail", `[[1,0,0,42]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := explain.Parse(planItem(t, tt.values)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestParseRejectsNonRead(t *testing.T) {
	item, err := result.ParseItem(json.RawMessage(`{"rows_affected":1}`))
	if err != nil {
		t.Fatalf("ParseItem failed: %v", err)
	}

	if _, err := explain.Parse(item); err == nil {
		t.Error("expected error for write result")
	}
}

func TestParseEmpty(t *testing.T) {
	plan, err := explain.Parse(planItem(t, `[]`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(plan.Roots) != 0 {
		t.Errorf("roots = %d, want 0", len(plan.Roots))
	}
	if plan.Render() != "" {
		t.Errorf("Render = %q, want empty", plan.Render())
	}
}

// ──────────────────────────────────────────────────
// Rendering
// ──────────────────────────────────────────────────

func mustParse(t *testing.T, values string) *explain.Plan {
	t.Helper()

	plan, err := explain.Parse(planItem(t, values))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	return plan
}

func TestRenderDefault(t *testing.T) {
	plan := mustParse(t, `[[1,0,0,"SCAN t"],[2,1,0,"USE INDEX ix"]]`)

	want := "SCAN t\n  |-USE INDEX ix\n"
	if got := plan.Render(); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRenderNested(t *testing.T) {
	plan := mustParse(t, `[[1,0,0,"ROOT"],[2,1,0,"MID"],[3,2,0,"LEAF"]]`)

	want := "ROOT\n  |-MID\n     |-LEAF\n"
	if got := plan.Render(); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRenderCustomIndent(t *testing.T) {
	plan := mustParse(t, `[[1,0,0,"ROOT"],[2,1,0,"CHILD"]]`)

	want := "ROOT\n   |--CHILD\n"
	if got := plan.Render(explain.WithIndent(4)); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRenderRawIDs(t *testing.T) {
	plan := mustParse(t, `[[1,0,0,"SCAN t"],[12,1,0,"USE INDEX ix"]]`)

	want := " 1  0 SCAN t\n12  1   |-USE INDEX ix\n"
	if got := plan.Render(explain.WithRawIDs()); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestWriteTo(t *testing.T) {
	plan := mustParse(t, `[[1,0,0,"SCAN t"]]`)

	var b strings.Builder

	n, err := plan.WriteTo(&b)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if b.String() != "SCAN t\n" {
		t.Errorf("wrote %q", b.String())
	}
	if n != int64(len("SCAN t\n")) {
		t.Errorf("n = %d", n)
	}
}

func TestRenderSiblingOrderPreserved(t *testing.T) {
	plan := mustParse(t, `[[1,0,0,"ROOT"],[2,1,0,"FIRST"],[3,1,0,"SECOND"]]`)

	got := plan.Render()
	first := strings.Index(got, "FIRST")
	second := strings.Index(got, "SECOND")
	if first < 0 || second < 0 || first > second {
		t.Errorf("sibling order lost: %q", got)
	}
}
