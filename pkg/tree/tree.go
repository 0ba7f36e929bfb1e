// Package tree provides rooted binary tree topologies over a fixed taxon
// set, a frequency-weighted topology counter, and Newick parsing.
//
// Taxa are identified by dense integer position at this layer. The Newick
// loader assigns positions by sorting the first tree's taxon names
// alphabetically; every subsequent tree must carry exactly the same taxon
// set. All downstream code (DAG construction, the numerical engine)
// addresses taxa by position only.
package tree

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrNotBinary is returned when a topology contains an internal node
	// with a child count other than two.
	ErrNotBinary = errors.New("topology is not strictly bifurcating")

	// ErrTaxonMismatch is returned when trees in a collection disagree on
	// the taxon set.
	ErrTaxonMismatch = errors.New("taxon set mismatch between trees")

	// ErrEmptyCollection is returned when an operation needs at least one
	// tree and none are loaded.
	ErrEmptyCollection = errors.New("no trees in collection")
)

// Node is a vertex of a rooted topology. A node with no children is a
// leaf and its Taxon field holds the taxon position; internal nodes have
// exactly two children (enforced by Validate, not by construction).
type Node struct {
	Children []*Node
	Taxon    int
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Leaf returns a new leaf node for the given taxon position.
func Leaf(taxon int) *Node { return &Node{Taxon: taxon} }

// Join returns a new internal node with the given children.
func Join(children ...*Node) *Node { return &Node{Children: children} }

// Topology is a rooted tree over taxa [0, TaxonCount).
type Topology struct {
	Root       *Node
	TaxonCount int
}

// Validate checks that the topology is strictly bifurcating and that
// every leaf taxon lies in [0, TaxonCount) with no duplicates.
func (t *Topology) Validate() error {
	seen := bitset.New(uint(t.TaxonCount))
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if n.IsLeaf() {
			if n.Taxon < 0 || n.Taxon >= t.TaxonCount {
				return fmt.Errorf("taxon %d out of range [0, %d)", n.Taxon, t.TaxonCount)
			}
			if seen.Test(uint(n.Taxon)) {
				return fmt.Errorf("duplicate taxon %d", n.Taxon)
			}
			seen.Set(uint(n.Taxon))
			return nil
		}
		if len(n.Children) != 2 {
			return fmt.Errorf("%w: node has %d children", ErrNotBinary, len(n.Children))
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t.Root); err != nil {
		return err
	}
	if int(seen.Count()) != t.TaxonCount {
		return fmt.Errorf("topology covers %d of %d taxa", seen.Count(), t.TaxonCount)
	}
	return nil
}

// Clade returns the taxon membership bit vector of the subtree rooted at n.
func (t *Topology) Clade(n *Node) *bitset.BitSet {
	out := bitset.New(uint(t.TaxonCount))
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			out.Set(uint(n.Taxon))
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Key returns a canonical string for the topology shape: a Newick-like
// rendering of taxon positions with each internal node's children ordered
// by smallest contained taxon. Two topologies have equal keys iff they
// are the same rooted shape over the same taxon positions.
func (t *Topology) Key() string {
	var render func(n *Node) (string, int)
	render = func(n *Node) (string, int) {
		if n.IsLeaf() {
			return fmt.Sprintf("%d", n.Taxon), n.Taxon
		}
		type part struct {
			s   string
			min int
		}
		parts := make([]part, 0, len(n.Children))
		minTaxon := t.TaxonCount
		for _, c := range n.Children {
			s, m := render(c)
			parts = append(parts, part{s, m})
			if m < minTaxon {
				minTaxon = m
			}
		}
		sort.Slice(parts, func(i, j int) bool { return parts[i].min < parts[j].min })
		ss := make([]string, len(parts))
		for i, p := range parts {
			ss[i] = p.s
		}
		return "(" + strings.Join(ss, ",") + ")", minTaxon
	}
	s, _ := render(t.Root)
	return s
}

// Counter is a frequency-weighted set of distinct topologies, preserving
// first-insertion order for deterministic downstream iteration.
type Counter struct {
	keys    []string
	entries map[string]*CounterEntry
}

// CounterEntry pairs a distinct topology with its multiplicity.
type CounterEntry struct {
	Topology *Topology
	Count    int
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{entries: make(map[string]*CounterEntry)}
}

// Add records one occurrence of the topology.
func (c *Counter) Add(t *Topology) {
	k := t.Key()
	if e, ok := c.entries[k]; ok {
		e.Count++
		return
	}
	c.keys = append(c.keys, k)
	c.entries[k] = &CounterEntry{Topology: t, Count: 1}
}

// Len returns the number of distinct topologies.
func (c *Counter) Len() int { return len(c.keys) }

// Total returns the sum of multiplicities.
func (c *Counter) Total() int {
	total := 0
	for _, k := range c.keys {
		total += c.entries[k].Count
	}
	return total
}

// Each calls f for every distinct topology in first-insertion order.
func (c *Counter) Each(f func(t *Topology, count int)) {
	for _, k := range c.keys {
		e := c.entries[k]
		f(e.Topology, e.Count)
	}
}

// Collection is a set of trees sharing one taxon set, with taxon names
// mapped to dense positions.
type Collection struct {
	TaxonNames []string // position -> name
	Topologies *Counter
}

// TaxonCount returns the size of the shared taxon set.
func (c *Collection) TaxonCount() int { return len(c.TaxonNames) }

// TreeCount returns the number of distinct topologies.
func (c *Collection) TreeCount() int { return c.Topologies.Len() }

// TaxonPosition returns the dense position of a taxon name.
func (c *Collection) TaxonPosition(name string) (int, bool) {
	for i, n := range c.TaxonNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
