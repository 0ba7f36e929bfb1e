package gpdag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/phylodag/phylodag/pkg/subsplit"
	"github.com/phylodag/phylodag/pkg/tree"
)

var (
	// ErrNoTrees is returned by New when the collection holds no
	// topologies.
	ErrNoTrees = errors.New("gpdag: empty tree collection")

	// ErrTooFewTaxa is returned by New when the taxon set is smaller than
	// two, which admits no subsplit.
	ErrTooFewTaxa = errors.New("gpdag: need at least two taxa")
)

// IndexRange is a half-open contiguous range [Start, Stop) of parameter
// indices.
type IndexRange struct {
	Start int
	Stop  int
}

// Len returns the number of indices in the range.
func (r IndexRange) Len() int { return r.Stop - r.Start }

// DAG is the generalized-pruning DAG of a tree sample. It is immutable
// after New returns and safe for concurrent read access.
type DAG struct {
	taxonCount            int
	rootsplitAndPCSPCount int

	// rootsplits holds the first clade of each distinct root subsplit, in
	// discovery order; their parameter indices are [0, len(rootsplits)).
	rootsplits []*bitset.BitSet

	nodes        []*Node
	subsplitToID map[string]int

	// Harvest-time child lookup: oriented parent subsplit -> contiguous
	// block of indexToChild entries.
	parentToRange map[string]IndexRange
	indexToChild  map[int]subsplit.Subsplit

	// Final parameter layout, rebuilt after edges exist: every rootsplit
	// and every directed edge (fake-leaf edges included) has one index.
	gpcspIndex    map[string]int
	paramRanges   map[string]IndexRange
	paramRangeSeq []IndexRange
}

// New constructs the DAG from a weighted collection of rooted binary
// topologies. Construction is single-threaded; the result is immutable.
func New(c *tree.Collection) (*DAG, error) {
	if c == nil || c.Topologies == nil || c.Topologies.Len() == 0 {
		return nil, ErrNoTrees
	}
	if c.TaxonCount() < 2 {
		return nil, ErrTooFewTaxa
	}
	var invalid error
	c.Topologies.Each(func(t *tree.Topology, _ int) {
		if invalid != nil {
			return
		}
		if t.TaxonCount != c.TaxonCount() {
			invalid = fmt.Errorf("gpdag: topology over %d taxa in a %d-taxon collection",
				t.TaxonCount, c.TaxonCount())
			return
		}
		if err := t.Validate(); err != nil {
			invalid = fmt.Errorf("gpdag: invalid topology: %w", err)
		}
	})
	if invalid != nil {
		return nil, invalid
	}

	d := &DAG{
		taxonCount:    c.TaxonCount(),
		subsplitToID:  make(map[string]int),
		parentToRange: make(map[string]IndexRange),
		indexToChild:  make(map[int]subsplit.Subsplit),
		gpcspIndex:    make(map[string]int),
		paramRanges:   make(map[string]IndexRange),
	}
	d.harvest(c)
	d.buildNodes()
	d.buildEdges()
	d.buildParamIndex()
	return d, nil
}

// harvest walks every distinct topology, collecting the distinct
// rootsplits and, per oriented parent subsplit, the distinct child
// subsplits in discovery order. It then lays out the first draft of the
// parameter index: rootsplits take [0, R), then each parent's children
// take the next contiguous block.
func (d *DAG) harvest(c *tree.Collection) {
	seenRootsplits := make(map[string]bool)
	type parentChildren struct {
		children []subsplit.Subsplit
		seen     map[string]bool
	}
	parents := make(map[string]*parentChildren)
	var parentOrder []string

	record := func(oriented subsplit.Subsplit, child subsplit.Subsplit) {
		key := oriented.Key()
		pc, ok := parents[key]
		if !ok {
			pc = &parentChildren{seen: make(map[string]bool)}
			parents[key] = pc
			parentOrder = append(parentOrder, key)
		}
		ck := child.Key()
		if !pc.seen[ck] {
			pc.seen[ck] = true
			pc.children = append(pc.children, child)
		}
	}

	c.Topologies.Each(func(t *tree.Topology, _ int) {
		type walked struct {
			clade    *bitset.BitSet
			sub      subsplit.Subsplit
			internal bool
		}
		var walk func(n *tree.Node) walked
		walk = func(n *tree.Node) walked {
			if n.IsLeaf() {
				clade := bitset.New(uint(d.taxonCount))
				clade.Set(uint(n.Taxon))
				return walked{clade: clade}
			}
			left := walk(n.Children[0])
			right := walk(n.Children[1])
			sub := subsplit.Canonical(left.clade, right.clade)
			for _, side := range []walked{left, right} {
				if !side.internal {
					continue
				}
				// Orient the parent so this child partitions chunk 1.
				oriented := sub
				if !sub.Chunk(1).Equal(side.clade) {
					oriented = sub.Rotate()
				}
				record(oriented, side.sub)
			}
			union := left.clade.Union(right.clade)
			return walked{clade: union, sub: sub, internal: true}
		}
		root := walk(t.Root)
		rsClade := root.sub.Chunk(0)
		if key := subsplit.CladeKey(rsClade); !seenRootsplits[key] {
			seenRootsplits[key] = true
			d.rootsplits = append(d.rootsplits, rsClade)
		}
	})

	index := len(d.rootsplits)
	for _, key := range parentOrder {
		pc := parents[key]
		d.parentToRange[key] = IndexRange{index, index + len(pc.children)}
		for _, child := range pc.children {
			d.indexToChild[index] = child
			index++
		}
	}
	d.rootsplitAndPCSPCount = index
}

// childrenSubsplits returns the child subsplits of an oriented parent
// subsplit. Explicit children exist only if the orientation was observed
// as a parent during harvesting; otherwise, when the first clade is
// non-empty and the second is a single taxon, the child is that taxon's
// fake subsplit, so leaf edges exist without being harvested.
func (d *DAG) childrenSubsplits(s subsplit.Subsplit, includeFakes bool) []subsplit.Subsplit {
	if r, ok := d.parentToRange[s.Key()]; ok {
		out := make([]subsplit.Subsplit, 0, r.Len())
		for i := r.Start; i < r.Stop; i++ {
			out = append(out, d.indexToChild[i])
		}
		return out
	}
	if includeFakes && s.Any(0) {
		if taxon, ok := s.SingletonTaxon(1); ok {
			return []subsplit.Subsplit{subsplit.Fake(d.taxonCount, taxon)}
		}
	}
	return nil
}

func (d *DAG) createNode(s subsplit.Subsplit, leaf bool) *Node {
	key := s.Key()
	if _, dup := d.subsplitToID[key]; dup {
		panic(fmt.Sprintf("gpdag: duplicate node for subsplit %s", s))
	}
	n := &Node{id: len(d.nodes), sub: s, leaf: leaf}
	d.subsplitToID[key] = n.id
	d.nodes = append(d.nodes, n)
	return n
}

// buildNodes creates the T fake-leaf nodes first (ids [0, T)), then
// inserts every reachable subsplit in post-order from each rootsplit's
// full subsplit, so a node's id exceeds the ids of all its descendants.
func (d *DAG) buildNodes() {
	for taxon := 0; taxon < d.taxonCount; taxon++ {
		d.createNode(subsplit.Fake(d.taxonCount, taxon), true)
	}
	visited := make(map[string]bool)
	for _, rs := range d.rootsplits {
		d.buildNodesDepthFirst(subsplit.Root(rs), visited)
	}
}

func (d *DAG) buildNodesDepthFirst(s subsplit.Subsplit, visited map[string]bool) {
	visited[s.Key()] = true
	for _, child := range d.childrenSubsplits(s, false) {
		if !visited[child.Key()] {
			d.buildNodesDepthFirst(child, visited)
		}
	}
	for _, child := range d.childrenSubsplits(s.Rotate(), false) {
		if !visited[child.Key()] {
			d.buildNodesDepthFirst(child, visited)
		}
	}
	d.createNode(s, false)
}

// buildEdges connects every non-fake node to its sorted and rotated
// children, recording each edge symmetrically in both endpoints.
func (d *DAG) buildEdges() {
	for id := d.taxonCount; id < len(d.nodes); id++ {
		d.connect(id, false)
		d.connect(id, true)
	}
}

func (d *DAG) connect(id int, rotated bool) {
	node := d.nodes[id]
	oriented := node.sub
	if rotated {
		oriented = oriented.Rotate()
	}
	for _, child := range d.childrenSubsplits(oriented, true) {
		childID := d.mustNodeID(child)
		childNode := d.nodes[childID]
		if rotated {
			node.leafwardRotated = append(node.leafwardRotated, childID)
			childNode.rootwardRotated = append(childNode.rootwardRotated, id)
		} else {
			node.leafwardSorted = append(node.leafwardSorted, childID)
			childNode.rootwardSorted = append(childNode.rootwardSorted, id)
		}
	}
}

// buildParamIndex re-derives the complete parameter index from the built
// edges. Rootsplits keep their harvest indices [0, R). Walking non-fake
// nodes in ascending id, each node's non-fake sorted children take one
// contiguous block and its non-fake rotated children the next; each block
// must match that parent's harvested child count, so harvested parameters
// end exactly at rootsplitAndPCSPCount. Fake-leaf edges take the indices
// after that, making the map total over every directed edge.
func (d *DAG) buildParamIndex() {
	idx := 0
	for _, rs := range d.rootsplits {
		d.gpcspIndex[subsplit.Root(rs).Key()] = idx
		idx++
	}
	addBlock := func(oriented subsplit.Subsplit, children []int, fakes bool) {
		kept := children[:0:0]
		for _, childID := range children {
			if d.nodes[childID].leaf == fakes {
				kept = append(kept, childID)
			}
		}
		if len(kept) == 0 {
			return
		}
		key := oriented.Key()
		if !fakes {
			if hr, ok := d.parentToRange[key]; !ok || hr.Len() != len(kept) {
				panic(fmt.Sprintf("gpdag: child block of %s disagrees with harvest", oriented))
			}
		}
		r := IndexRange{idx, idx + len(kept)}
		d.paramRanges[key] = r
		d.paramRangeSeq = append(d.paramRangeSeq, r)
		for _, childID := range kept {
			d.gpcspIndex[subsplit.PCSPKey(oriented, d.nodes[childID].sub)] = idx
			idx++
		}
	}
	for _, fakes := range []bool{false, true} {
		for id := d.taxonCount; id < len(d.nodes); id++ {
			n := d.nodes[id]
			addBlock(n.sub, n.leafwardSorted, fakes)
			addBlock(n.sub.Rotate(), n.leafwardRotated, fakes)
		}
		if !fakes && idx != d.rootsplitAndPCSPCount {
			panic(fmt.Sprintf("gpdag: re-derived index covers %d parameters, harvested %d",
				idx, d.rootsplitAndPCSPCount))
		}
	}
}

// Edge is one directed parent-child connection together with its
// parameter index and the parent orientation it attaches through.
type Edge struct {
	Parent  int
	Child   int
	Rotated bool
	Param   int
}

// Edges returns every directed edge of the DAG, walking non-fake nodes in
// ascending id with sorted children before rotated ones.
func (d *DAG) Edges() []Edge {
	var edges []Edge
	for id := d.taxonCount; id < len(d.nodes); id++ {
		n := d.nodes[id]
		for _, childID := range n.leafwardSorted {
			edges = append(edges, Edge{Parent: id, Child: childID, Param: d.edgeParam(id, childID, false)})
		}
		for _, childID := range n.leafwardRotated {
			edges = append(edges, Edge{Parent: id, Child: childID, Rotated: true, Param: d.edgeParam(id, childID, true)})
		}
	}
	return edges
}

// NodeCount returns the number of DAG nodes, fake leaves included.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// TaxonCount returns the size of the taxon set.
func (d *DAG) TaxonCount() int { return d.taxonCount }

// RootsplitCount returns the number of distinct rootsplits.
func (d *DAG) RootsplitCount() int { return len(d.rootsplits) }

// RootsplitAndPCSPCount returns the number of rootsplits plus harvested
// PCSPs, i.e. the parameter count before fake-leaf edges.
func (d *DAG) RootsplitAndPCSPCount() int { return d.rootsplitAndPCSPCount }

// GeneralizedPCSPCount returns the full parameter count: rootsplits,
// harvested PCSPs, and the synthetic fake-subsplit edge parameters.
func (d *DAG) GeneralizedPCSPCount() int {
	fake := 0
	for taxon := 0; taxon < d.taxonCount; taxon++ {
		fake += len(d.nodes[taxon].rootwardSorted)
		fake += len(d.nodes[taxon].rootwardRotated)
	}
	return d.rootsplitAndPCSPCount + fake
}

// Node returns the node with the given id. Ids are dense in
// [0, NodeCount).
func (d *DAG) Node(id int) *Node {
	if id < 0 || id >= len(d.nodes) {
		panic(fmt.Sprintf("gpdag: node id %d out of range [0, %d)", id, len(d.nodes)))
	}
	return d.nodes[id]
}

// NodeID returns the id of the node holding the given subsplit.
func (d *DAG) NodeID(s subsplit.Subsplit) (int, bool) {
	id, ok := d.subsplitToID[s.Key()]
	return id, ok
}

// ChildRange returns the contiguous parameter range covering the children
// of an oriented parent subsplit, if that orientation has children.
func (d *DAG) ChildRange(oriented subsplit.Subsplit) (IndexRange, bool) {
	r, ok := d.paramRanges[oriented.Key()]
	return r, ok
}

// mustNodeID is the fatal-by-design lookup: the node set is total over
// every subsplit the traversal can reach, so a miss is a construction
// bug.
func (d *DAG) mustNodeID(s subsplit.Subsplit) int {
	id, ok := d.subsplitToID[s.Key()]
	if !ok {
		panic(fmt.Sprintf("gpdag: no node for subsplit %s", s))
	}
	return id
}

// paramIndex is the fatal-by-design parameter lookup for a PCSP key.
func (d *DAG) paramIndex(key, what string) int {
	idx, ok := d.gpcspIndex[key]
	if !ok {
		panic(fmt.Sprintf("gpdag: no parameter index for %s", what))
	}
	return idx
}

func (d *DAG) rootNodeID(rs *bitset.BitSet) int {
	return d.mustNodeID(subsplit.Root(rs))
}

// UniformParameters returns a parameter vector of length
// GeneralizedPCSPCount with the uniform distribution over rootsplits and,
// within each parent's child range, the uniform categorical distribution
// over that parent's children.
func (d *DAG) UniformParameters() []float64 {
	q := make([]float64, d.GeneralizedPCSPCount())
	for i := range q {
		q[i] = 1
	}
	for i := 0; i < len(d.rootsplits); i++ {
		q[i] = 1 / float64(len(d.rootsplits))
	}
	for _, r := range d.paramRangeSeq {
		val := 1 / float64(r.Len())
		for i := r.Start; i < r.Stop; i++ {
			q[i] = val
		}
	}
	return q
}

// String renders every node with its adjacency, one per line.
func (d *DAG) String() string {
	var b strings.Builder
	for _, n := range d.nodes {
		b.WriteString(n.String())
		b.WriteByte('\n')
	}
	return b.String()
}
