// Package gpdag builds the generalized-pruning DAG of a tree sample and
// schedules partial-likelihood computation over it.
//
// # Overview
//
// A sample of rooted tree topologies over a shared taxon set induces a
// set of subsplits (ordered clade pairs) and parent-child subsplit pairs
// (PCSPs). Merging them yields one directed acyclic graph in which a
// partial-likelihood vector (PLV) shared by many topologies is computed
// once instead of once per tree. The DAG is built once from a
// [tree.Collection] and is immutable afterwards; it may be shared
// read-only across goroutines.
//
// # Nodes and edges
//
// Each distinct subsplit becomes one [Node] with a dense integer id.
// Every leaf taxon gets a degenerate "fake" subsplit node so that leaves
// participate in the same indexing scheme as internal nodes; fake nodes
// occupy ids [0, T). Remaining nodes are inserted in post-order, so a
// node's id is strictly greater than the ids of everything reachable
// leafward of it. Each node carries four adjacency lists (leafward and
// rootward, split by which clade half of the parent the edge descends
// from: "sorted" for the parent's own orientation, "rotated" for the
// swapped one).
//
// # Parameters and buffers
//
// Every rootsplit and every directed edge owns one slot in a flat
// parameter vector: rootsplits take [0, R), then each parent's sorted and
// rotated children take contiguous blocks, enabling in-place
// normalization of the categorical distribution over a parent's
// children. The six PLV buffer kinds per node ([PLVP], [PLVPHat],
// [PLVPHatTilde], [PLVRHat], [PLVR], [PLVRTilde]) map to flat indices by
// kind·NodeCount + id.
//
// # Scheduling
//
// The DAG does no arithmetic. Generators such as [DAG.RootwardPass] and
// [DAG.BranchLengthOptimization] return ordered [Op] sequences naming
// buffer and parameter indices; an external engine executes them against
// buffers it owns. Generators are pure functions of the DAG and return
// identical sequences on every call.
//
// # Errors
//
// Malformed input to [New] returns an error. After construction the
// index maps are total over everything a traversal can reach, so a
// lookup miss is a construction bug: those paths panic.
package gpdag
