package render

import (
	"strings"
	"testing"

	"github.com/phylodag/phylodag/pkg/gpdag"
	"github.com/phylodag/phylodag/pkg/tree"
)

func testDAG(t *testing.T) (*gpdag.DAG, *tree.Collection) {
	t.Helper()
	c, err := tree.ParseNewick(strings.NewReader("((a,b),(c,d));\n"))
	if err != nil {
		t.Fatalf("ParseNewick: %v", err)
	}
	d, err := gpdag.New(c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, c
}

func TestToDOT(t *testing.T) {
	d, c := testDAG(t)
	dot := ToDOT(d, c, Options{})

	if !strings.HasPrefix(dot, "digraph G {") {
		t.Errorf("missing digraph header:\n%s", dot)
	}
	for _, name := range c.TaxonNames {
		if !strings.Contains(dot, `label="`+name+`"`) {
			t.Errorf("missing leaf label for %q", name)
		}
	}
	if !strings.Contains(dot, `label="a b | c d"`) {
		t.Errorf("missing rootsplit label:\n%s", dot)
	}
	if got, want := strings.Count(dot, "->"), 6; got != want {
		t.Errorf("DOT has %d edges, want %d", got, want)
	}
	// Rotated edges render dashed; this DAG has one rotated edge per
	// non-fake node.
	if got, want := strings.Count(dot, "[style=dashed]"), 3; got != want {
		t.Errorf("DOT has %d dashed edges, want %d", got, want)
	}
}

func TestToDOTDetailed(t *testing.T) {
	d, c := testDAG(t)
	dot := ToDOT(d, c, Options{Detailed: true})
	if !strings.Contains(dot, "1100|0011") {
		t.Errorf("detailed labels omit the bit-vector form:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="80pt" height="40pt" viewBox="0.00 0.00 80.00 40.00">`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 80.00 40.00"`) {
		t.Errorf("normalized svg = %s", out)
	}
	if !strings.Contains(out, `width="80" height="40"`) {
		t.Errorf("normalized svg = %s", out)
	}
}
