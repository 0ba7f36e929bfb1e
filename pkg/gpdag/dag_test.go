package gpdag

import (
	"errors"
	"math"
	"testing"

	"github.com/phylodag/phylodag/pkg/tree"
)

// balanced returns the rooted topology ((0,1),(2,3)).
func balanced() *tree.Topology {
	return &tree.Topology{
		Root: tree.Join(
			tree.Join(tree.Leaf(0), tree.Leaf(1)),
			tree.Join(tree.Leaf(2), tree.Leaf(3)),
		),
		TaxonCount: 4,
	}
}

// caterpillar returns the rooted topology (((0,1),2),3).
func caterpillar() *tree.Topology {
	return &tree.Topology{
		Root: tree.Join(
			tree.Join(
				tree.Join(tree.Leaf(0), tree.Leaf(1)),
				tree.Leaf(2),
			),
			tree.Leaf(3),
		),
		TaxonCount: 4,
	}
}

func collectionOf(t *testing.T, tops ...*tree.Topology) *tree.Collection {
	t.Helper()
	c := &tree.Collection{
		TaxonNames: []string{"a", "b", "c", "d"},
		Topologies: tree.NewCounter(),
	}
	for _, top := range tops {
		c.Topologies.Add(top)
	}
	return c
}

func mustDAG(t *testing.T, tops ...*tree.Topology) *DAG {
	t.Helper()
	d, err := New(collectionOf(t, tops...))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestNewSingleTopologyCounts(t *testing.T) {
	d := mustDAG(t, balanced())

	if got, want := d.NodeCount(), 7; got != want {
		t.Errorf("NodeCount = %d, want %d", got, want)
	}
	if got, want := d.RootsplitCount(), 1; got != want {
		t.Errorf("RootsplitCount = %d, want %d", got, want)
	}
	if got, want := d.RootsplitAndPCSPCount(), 3; got != want {
		t.Errorf("RootsplitAndPCSPCount = %d, want %d", got, want)
	}
	// 1 rootsplit + 2 internal edges + 4 leaf edges.
	if got, want := d.GeneralizedPCSPCount(), 7; got != want {
		t.Errorf("GeneralizedPCSPCount = %d, want %d", got, want)
	}
}

func TestNewTwoTopologyCounts(t *testing.T) {
	d := mustDAG(t, balanced(), caterpillar())

	if got, want := d.NodeCount(), 9; got != want {
		t.Errorf("NodeCount = %d, want %d", got, want)
	}
	if got, want := d.RootsplitCount(), 2; got != want {
		t.Errorf("RootsplitCount = %d, want %d", got, want)
	}
	if got, want := d.RootsplitAndPCSPCount(), 6; got != want {
		t.Errorf("RootsplitAndPCSPCount = %d, want %d", got, want)
	}
	// Taxa 2 and 3 each sit below two distinct parents, so there are six
	// leaf edges on top of the four harvested ones.
	if got, want := d.GeneralizedPCSPCount(), 12; got != want {
		t.Errorf("GeneralizedPCSPCount = %d, want %d", got, want)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoTrees) {
		t.Errorf("New(nil) err = %v, want ErrNoTrees", err)
	}

	empty := &tree.Collection{TaxonNames: []string{"a", "b"}, Topologies: tree.NewCounter()}
	if _, err := New(empty); !errors.Is(err, ErrNoTrees) {
		t.Errorf("New(empty) err = %v, want ErrNoTrees", err)
	}

	one := &tree.Collection{TaxonNames: []string{"a"}, Topologies: tree.NewCounter()}
	one.Topologies.Add(&tree.Topology{Root: tree.Leaf(0), TaxonCount: 1})
	if _, err := New(one); !errors.Is(err, ErrTooFewTaxa) {
		t.Errorf("New(one taxon) err = %v, want ErrTooFewTaxa", err)
	}

	multifurcating := collectionOf(t, &tree.Topology{
		Root:       tree.Join(tree.Leaf(0), tree.Leaf(1), tree.Join(tree.Leaf(2), tree.Leaf(3))),
		TaxonCount: 4,
	})
	if _, err := New(multifurcating); !errors.Is(err, tree.ErrNotBinary) {
		t.Errorf("New(multifurcating) err = %v, want ErrNotBinary", err)
	}
}

func TestFakeLeafNodes(t *testing.T) {
	d := mustDAG(t, balanced())
	for id := 0; id < d.TaxonCount(); id++ {
		n := d.Node(id)
		if !n.IsLeaf() {
			t.Errorf("node %d: IsLeaf = false, want true", id)
		}
		if taxon, ok := n.Subsplit().SingletonTaxon(1); !ok || taxon != id {
			t.Errorf("node %d: subsplit = %s, want fake leaf of taxon %d", id, n.Subsplit(), id)
		}
	}
	for id := d.TaxonCount(); id < d.NodeCount(); id++ {
		if d.Node(id).IsLeaf() {
			t.Errorf("node %d: IsLeaf = true for non-fake node", id)
		}
	}
}

func TestPostOrderIDs(t *testing.T) {
	d := mustDAG(t, balanced(), caterpillar())
	for id := d.TaxonCount(); id < d.NodeCount(); id++ {
		n := d.Node(id)
		for _, children := range [][]int{n.LeafwardSorted(), n.LeafwardRotated()} {
			for _, childID := range children {
				if childID >= id {
					t.Errorf("node %d has child %d with id >= its own", id, childID)
				}
			}
		}
	}
}

func TestFakeChildRule(t *testing.T) {
	d := mustDAG(t, balanced())

	// The subsplit ({0},{1}) has no harvested children; both orientations
	// have a singleton second clade, so each side gets exactly the fake
	// leaf of that taxon.
	var cherry *Node
	for id := d.TaxonCount(); id < d.NodeCount(); id++ {
		n := d.Node(id)
		if t0, ok := n.Subsplit().SingletonTaxon(0); ok && t0 == 0 {
			cherry = n
		}
	}
	if cherry == nil {
		t.Fatal("no node for subsplit ({0},{1})")
	}
	if got := cherry.LeafwardSorted(); len(got) != 1 || got[0] != 1 {
		t.Errorf("sorted children = %v, want [1]", got)
	}
	if got := cherry.LeafwardRotated(); len(got) != 1 || got[0] != 0 {
		t.Errorf("rotated children = %v, want [0]", got)
	}
}

func TestParamIndexBijection(t *testing.T) {
	d := mustDAG(t, balanced(), caterpillar())

	p := d.GeneralizedPCSPCount()
	if got := len(d.gpcspIndex); got != p {
		t.Fatalf("index holds %d entries, want %d", got, p)
	}
	seen := make([]bool, p)
	for key, idx := range d.gpcspIndex {
		if idx < 0 || idx >= p {
			t.Fatalf("index %d for %q out of range [0, %d)", idx, key, p)
		}
		if seen[idx] {
			t.Fatalf("index %d assigned twice", idx)
		}
		seen[idx] = true
	}
}

func TestChildRangesMatchOutDegree(t *testing.T) {
	d := mustDAG(t, balanced(), caterpillar())
	for id := d.TaxonCount(); id < d.NodeCount(); id++ {
		n := d.Node(id)
		total := len(n.LeafwardSorted()) + len(n.LeafwardRotated())
		got := 0
		if r, ok := d.ChildRange(n.Subsplit()); ok {
			got += r.Len()
		}
		if r, ok := d.ChildRange(n.Subsplit().Rotate()); ok {
			got += r.Len()
		}
		if got != total {
			t.Errorf("node %d: child ranges cover %d slots, out-degree is %d", id, got, total)
		}
	}
}

func TestEdges(t *testing.T) {
	d := mustDAG(t, balanced(), caterpillar())
	edges := d.Edges()

	if got, want := len(edges), d.GeneralizedPCSPCount()-d.RootsplitCount(); got != want {
		t.Fatalf("len(Edges) = %d, want %d", got, want)
	}
	params := make(map[int]bool)
	for _, e := range edges {
		if e.Param < d.RootsplitCount() || e.Param >= d.GeneralizedPCSPCount() {
			t.Errorf("edge %d->%d param %d out of edge range", e.Parent, e.Child, e.Param)
		}
		if params[e.Param] {
			t.Errorf("param %d appears on two edges", e.Param)
		}
		params[e.Param] = true
	}
}

func TestUniformParameters(t *testing.T) {
	d := mustDAG(t, balanced(), caterpillar())
	q := d.UniformParameters()

	if got, want := len(q), d.GeneralizedPCSPCount(); got != want {
		t.Fatalf("len(q) = %d, want %d", got, want)
	}
	sum := 0.0
	for i := 0; i < d.RootsplitCount(); i++ {
		sum += q[i]
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("rootsplit probabilities sum to %g, want 1", sum)
	}
	for _, r := range d.paramRangeSeq {
		sum := 0.0
		for i := r.Start; i < r.Stop; i++ {
			sum += q[i]
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("range [%d, %d) sums to %g, want 1", r.Start, r.Stop, sum)
		}
	}
}

func TestTraversalOrders(t *testing.T) {
	d := mustDAG(t, balanced(), caterpillar())

	rootward := d.RootwardOrder()
	if got, want := len(rootward), d.NodeCount(); got != want {
		t.Fatalf("RootwardOrder has %d ids, want %d", got, want)
	}
	pos := make([]int, d.NodeCount())
	for i, id := range rootward {
		pos[id] = i
	}
	for id := d.TaxonCount(); id < d.NodeCount(); id++ {
		n := d.Node(id)
		for _, childID := range append(append([]int{}, n.LeafwardSorted()...), n.LeafwardRotated()...) {
			if pos[childID] >= pos[id] {
				t.Errorf("RootwardOrder: node %d before its child %d", id, childID)
			}
		}
	}

	leafward := d.LeafwardOrder()
	if got, want := len(leafward), d.NodeCount(); got != want {
		t.Fatalf("LeafwardOrder has %d ids, want %d", got, want)
	}
	for i, id := range leafward {
		pos[id] = i
	}
	for id := 0; id < d.NodeCount(); id++ {
		n := d.Node(id)
		for _, parentID := range append(append([]int{}, n.RootwardSorted()...), n.RootwardRotated()...) {
			if pos[parentID] >= pos[id] {
				t.Errorf("LeafwardOrder: node %d before its parent %d", id, parentID)
			}
		}
	}
}

func TestConstructionIsDeterministic(t *testing.T) {
	a := mustDAG(t, balanced(), caterpillar())
	b := mustDAG(t, balanced(), caterpillar())

	if a.NodeCount() != b.NodeCount() {
		t.Fatalf("node counts differ: %d vs %d", a.NodeCount(), b.NodeCount())
	}
	for id := 0; id < a.NodeCount(); id++ {
		if got, want := a.Node(id).String(), b.Node(id).String(); got != want {
			t.Errorf("node %d differs:\n%s\n%s", id, got, want)
		}
	}
	for key, idx := range a.gpcspIndex {
		if b.gpcspIndex[key] != idx {
			t.Errorf("parameter index for %q differs: %d vs %d", key, idx, b.gpcspIndex[key])
		}
	}
}

func TestPLVIndex(t *testing.T) {
	d := mustDAG(t, balanced())
	n := d.NodeCount()

	if got, want := d.PLVCount(), 6*n; got != want {
		t.Fatalf("PLVCount = %d, want %d", got, want)
	}
	seen := make(map[int]bool)
	for _, kind := range []PLV{PLVP, PLVPHat, PLVPHatTilde, PLVRHat, PLVR, PLVRTilde} {
		for id := 0; id < n; id++ {
			idx := d.PLVIndex(kind, id)
			if idx < 0 || idx >= d.PLVCount() {
				t.Fatalf("PLVIndex(%v, %d) = %d out of range", kind, id, idx)
			}
			if seen[idx] {
				t.Fatalf("PLVIndex(%v, %d) = %d collides", kind, id, idx)
			}
			seen[idx] = true
		}
	}
	if got, want := d.PLVIndex(PLVP, 3), 3; got != want {
		t.Errorf("PLVIndex(PLVP, 3) = %d, want %d", got, want)
	}
	if got, want := d.PLVIndex(PLVRTilde, 2), 5*n+2; got != want {
		t.Errorf("PLVIndex(PLVRTilde, 2) = %d, want %d", got, want)
	}

	defer func() {
		if recover() == nil {
			t.Error("PLVIndex with bad kind did not panic")
		}
	}()
	d.PLVIndex(plvKindCount, 0)
}
