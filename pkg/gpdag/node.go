package gpdag

import (
	"fmt"
	"strings"

	"github.com/phylodag/phylodag/pkg/subsplit"
)

// Node is one vertex of the DAG: a distinct subsplit plus four adjacency
// lists. Adjacency slices are owned by the DAG and must be treated as
// read-only views; they are populated during construction and never
// change afterwards.
//
// "Sorted" neighbors attach through the node subsplit's own orientation
// and "rotated" neighbors through the swapped orientation: a node's
// sorted children partition its second clade, its rotated children its
// first.
type Node struct {
	id   int
	sub  subsplit.Subsplit
	leaf bool

	leafwardSorted  []int
	leafwardRotated []int
	rootwardSorted  []int
	rootwardRotated []int
}

// ID returns the node's dense integer id.
func (n *Node) ID() int { return n.id }

// Subsplit returns the node's subsplit in canonical orientation.
func (n *Node) Subsplit() subsplit.Subsplit { return n.sub }

// IsLeaf reports whether the node is a fake-subsplit leaf (ids [0, T)).
func (n *Node) IsLeaf() bool { return n.leaf }

// IsRoot reports whether the node's subsplit partitions the full taxon
// set, i.e. the node stands for a rootsplit.
func (n *Node) IsRoot() bool { return n.sub.IsRoot() }

// LeafwardSorted returns the ids of children attached through the node's
// own orientation.
func (n *Node) LeafwardSorted() []int { return n.leafwardSorted }

// LeafwardRotated returns the ids of children attached through the
// rotated orientation.
func (n *Node) LeafwardRotated() []int { return n.leafwardRotated }

// RootwardSorted returns the ids of parents this node attaches to through
// the parent's own orientation.
func (n *Node) RootwardSorted() []int { return n.rootwardSorted }

// RootwardRotated returns the ids of parents this node attaches to
// through the parent's rotated orientation.
func (n *Node) RootwardRotated() []int { return n.rootwardRotated }

func (n *Node) leafwardChildren(rotated bool) []int {
	if rotated {
		return n.leafwardRotated
	}
	return n.leafwardSorted
}

func (n *Node) rootwardParents(rotated bool) []int {
	if rotated {
		return n.rootwardRotated
	}
	return n.rootwardSorted
}

func (n *Node) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "node %d [%s]", n.id, n.sub)
	fmt.Fprintf(&b, " lw-sorted=%v lw-rotated=%v rw-sorted=%v rw-rotated=%v",
		n.leafwardSorted, n.leafwardRotated, n.rootwardSorted, n.rootwardRotated)
	return b.String()
}
