package gpdag

import (
	"fmt"

	"github.com/phylodag/phylodag/pkg/subsplit"
)

// This file generates the operation vectors the numerical engine
// executes. Each generator walks the DAG and appends Ops; the engine
// never sees the DAG itself, only flat op lists, so schedules can be
// generated once and replayed per iteration.

// edgeParam returns the parameter index of the directed edge from a
// parent node (in the given rotation) to a child node. The edge must
// exist; a miss is a construction bug and panics.
func (d *DAG) edgeParam(parentID, childID int, rotated bool) int {
	parent := d.nodes[parentID].sub
	if rotated {
		parent = parent.Rotate()
	}
	child := d.nodes[childID].sub
	key := subsplit.PCSPKey(parent, child)
	return d.paramIndex(key, fmt.Sprintf("edge %d->%d (rotated=%t)", parentID, childID, rotated))
}

// SetRootwardZero zeros the below-node vectors (P, PHat, PHatTilde) of
// every non-leaf node. Leaf P vectors hold observed data and are left
// alone.
func (d *DAG) SetRootwardZero() []Op {
	ops := make([]Op, 0, 3*(len(d.nodes)-d.taxonCount))
	for id := d.taxonCount; id < len(d.nodes); id++ {
		ops = append(ops,
			Zero{Dest: d.PLVIndex(PLVP, id)},
			Zero{Dest: d.PLVIndex(PLVPHat, id)},
			Zero{Dest: d.PLVIndex(PLVPHatTilde, id)},
		)
	}
	return ops
}

// SetLeafwardZero zeros the above-node vectors (RHat, R, RTilde) of
// every node, leaves included, then seeds the leafward recursion by
// setting each rootsplit node's RHat to the stationary distribution
// weighted by that rootsplit's probability.
func (d *DAG) SetLeafwardZero() []Op {
	ops := make([]Op, 0, 3*len(d.nodes)+len(d.rootsplits))
	for id := 0; id < len(d.nodes); id++ {
		ops = append(ops,
			Zero{Dest: d.PLVIndex(PLVRHat, id)},
			Zero{Dest: d.PLVIndex(PLVR, id)},
			Zero{Dest: d.PLVIndex(PLVRTilde, id)},
		)
	}
	for i, rs := range d.rootsplits {
		ops = append(ops, SetToStationaryDistribution{
			Dest:      d.PLVIndex(PLVRHat, d.rootNodeID(rs)),
			Rootsplit: i,
		})
	}
	return ops
}

// RootwardPass emits the ops filling the below-node vectors in the given
// visit order (normally RootwardOrder). Leaves are skipped; for each
// internal node it accumulates PHat over sorted children and PHatTilde
// over rotated children, then forms P = PHat ∘ PHatTilde. Buffers must
// be zeroed first via SetRootwardZero.
func (d *DAG) RootwardPass(visitOrder []int) []Op {
	var ops []Op
	for _, id := range visitOrder {
		n := d.nodes[id]
		if n.leaf {
			continue
		}
		ops = d.addPHatOps(ops, id, false)
		ops = d.addPHatOps(ops, id, true)
		ops = append(ops, Multiply{
			Dest: d.PLVIndex(PLVP, id),
			Src1: d.PLVIndex(PLVPHat, id),
			Src2: d.PLVIndex(PLVPHatTilde, id),
		})
	}
	return ops
}

// LeafwardPass emits the ops filling the above-node vectors in the given
// visit order (normally LeafwardOrder). Every node is processed: RHat is
// accumulated over both rotations of the node's parents, then
// R = RHat ∘ PHatTilde and RTilde = RHat ∘ PHat. Buffers must be zeroed
// first via SetLeafwardZero, which also seeds the rootsplit RHat vectors
// that this pass leaves untouched.
func (d *DAG) LeafwardPass(visitOrder []int) []Op {
	var ops []Op
	for _, id := range visitOrder {
		ops = d.addRHatOps(ops, id, false)
		ops = d.addRHatOps(ops, id, true)
		ops = append(ops,
			Multiply{
				Dest: d.PLVIndex(PLVR, id),
				Src1: d.PLVIndex(PLVRHat, id),
				Src2: d.PLVIndex(PLVPHatTilde, id),
			},
			Multiply{
				Dest: d.PLVIndex(PLVRTilde, id),
				Src1: d.PLVIndex(PLVRHat, id),
				Src2: d.PLVIndex(PLVPHat, id),
			},
		)
	}
	return ops
}

// PopulatePLVs emits the full vector fill: zero everything (seeding the
// rootsplit RHat vectors), then one rootward and one leafward pass.
func (d *DAG) PopulatePLVs() []Op {
	var ops []Op
	ops = append(ops, d.SetRootwardZero()...)
	ops = append(ops, d.SetLeafwardZero()...)
	ops = append(ops, d.RootwardPass(d.RootwardOrder())...)
	ops = append(ops, d.LeafwardPass(d.LeafwardOrder())...)
	return ops
}

// ComputeLikelihoods emits one per-edge Likelihood op for every directed
// edge of the DAG, followed by the marginal accumulation ops. Vectors
// must already be populated.
func (d *DAG) ComputeLikelihoods() []Op {
	var ops []Op
	for id := d.taxonCount; id < len(d.nodes); id++ {
		n := d.nodes[id]
		for _, childID := range n.leafwardSorted {
			ops = append(ops, Likelihood{
				Param: d.edgeParam(id, childID, false),
				RBuf:  d.PLVIndex(PLVR, id),
				PBuf:  d.PLVIndex(PLVP, childID),
			})
		}
		for _, childID := range n.leafwardRotated {
			ops = append(ops, Likelihood{
				Param: d.edgeParam(id, childID, true),
				RBuf:  d.PLVIndex(PLVRTilde, id),
				PBuf:  d.PLVIndex(PLVP, childID),
			})
		}
	}
	return append(ops, d.MarginalLikelihood()...)
}

// MarginalLikelihood emits one accumulation op per rootsplit, combining
// the rootsplit node's stationary RHat with its P vector under the
// rootsplit's probability.
func (d *DAG) MarginalLikelihood() []Op {
	ops := make([]Op, 0, len(d.rootsplits))
	for i, rs := range d.rootsplits {
		id := d.rootNodeID(rs)
		ops = append(ops, IncrementMarginalLikelihood{
			RHat:      d.PLVIndex(PLVRHat, id),
			Rootsplit: i,
			P:         d.PLVIndex(PLVP, id),
		})
	}
	return ops
}

// BranchLengthOptimization emits one interleaved optimization sweep:
// a depth-first schedule from each rootsplit that keeps every node's
// vectors consistent with the branch lengths already optimized earlier
// in the same sweep.
func (d *DAG) BranchLengthOptimization() []Op {
	var ops []Op
	visited := make([]bool, len(d.nodes))
	for _, rs := range d.rootsplits {
		ops = d.scheduleBranchLengthOptimization(ops, d.rootNodeID(rs), visited)
	}
	return ops
}

// SBNParameterOptimization emits one expectation sweep for the subsplit
// support parameters: per-edge likelihoods are refreshed depth-first,
// each parent's child block is renormalized as soon as its likelihoods
// are current, the marginal is re-accumulated per rootsplit, and the
// rootsplit block itself is renormalized last.
func (d *DAG) SBNParameterOptimization() []Op {
	var ops []Op
	visited := make([]bool, len(d.nodes))
	for i, rs := range d.rootsplits {
		id := d.rootNodeID(rs)
		ops = d.scheduleSBNParameterOptimization(ops, id, visited)
		ops = append(ops, IncrementMarginalLikelihood{
			RHat:      d.PLVIndex(PLVRHat, id),
			Rootsplit: i,
			P:         d.PLVIndex(PLVP, id),
		})
	}
	return append(ops, UpdateSBNProbabilities{Start: 0, Stop: len(d.rootsplits)})
}

// addPHatOps appends one EvolveWeighted per leafward edge of the node in
// the given rotation, accumulating the evolved child P vectors into the
// node's PHat (sorted) or PHatTilde (rotated).
func (d *DAG) addPHatOps(ops []Op, id int, rotated bool) []Op {
	for _, childID := range d.nodes[id].leafwardChildren(rotated) {
		ops = append(ops, EvolveWeighted{
			Dest:  d.PLVIndex(pHatPLV(rotated), id),
			Param: d.edgeParam(id, childID, rotated),
			Src:   d.PLVIndex(PLVP, childID),
		})
	}
	return ops
}

// addRHatOps appends one EvolveWeighted per rootward edge of the node in
// the given rotation, accumulating each parent's above-node vector into
// the node's RHat. Sorted parents contribute their R, rotated parents
// their RTilde.
func (d *DAG) addRHatOps(ops []Op, id int, rotated bool) []Op {
	for _, parentID := range d.nodes[id].rootwardParents(rotated) {
		ops = append(ops, EvolveWeighted{
			Dest:  d.PLVIndex(PLVRHat, id),
			Param: d.edgeParam(parentID, id, rotated),
			Src:   d.PLVIndex(rPLV(rotated), parentID),
		})
	}
	return ops
}

// updateRHat refreshes one node's RHat from the given rotation of its
// parents during an optimization sweep.
func (d *DAG) updateRHat(ops []Op, id int, rotated bool) []Op {
	return d.addRHatOps(ops, id, rotated)
}

// optimizeBranchLengthUpdatePHat optimizes one edge's branch length
// against the parent's current above-node vector, then folds the child's
// evolved P into the parent's PHat (or PHatTilde).
func (d *DAG) optimizeBranchLengthUpdatePHat(ops []Op, id, childID int, rotated bool) []Op {
	param := d.edgeParam(id, childID, rotated)
	return append(ops,
		OptimizeBranchLength{
			PBuf:  d.PLVIndex(PLVP, childID),
			RBuf:  d.PLVIndex(rPLV(rotated), id),
			Param: param,
		},
		EvolveWeighted{
			Dest:  d.PLVIndex(pHatPLV(rotated), id),
			Param: param,
			Src:   d.PLVIndex(PLVP, childID),
		},
	)
}

// updatePHatComputeLikelihood folds one child's evolved P into the
// parent's PHat (or PHatTilde) and records the edge's per-edge
// likelihood.
func (d *DAG) updatePHatComputeLikelihood(ops []Op, id, childID int, rotated bool) []Op {
	param := d.edgeParam(id, childID, rotated)
	return append(ops,
		EvolveWeighted{
			Dest:  d.PLVIndex(pHatPLV(rotated), id),
			Param: param,
			Src:   d.PLVIndex(PLVP, childID),
		},
		Likelihood{
			Param: param,
			RBuf:  d.PLVIndex(rPLV(rotated), id),
			PBuf:  d.PLVIndex(PLVP, childID),
		},
	)
}

// scheduleBranchLengthOptimization is the recursive body of
// BranchLengthOptimization. A node is scheduled at most once per sweep;
// subsequent parents reuse the vectors it left behind.
func (d *DAG) scheduleBranchLengthOptimization(ops []Op, id int, visited []bool) []Op {
	visited[id] = true
	n := d.nodes[id]

	if !n.sub.IsRoot() {
		// Refresh the above-node vectors from the node's parents before
		// optimizing anything below it.
		ops = append(ops, Zero{Dest: d.PLVIndex(PLVRHat, id)})
		ops = d.updateRHat(ops, id, false)
		ops = d.updateRHat(ops, id, true)
		ops = append(ops,
			Multiply{
				Dest: d.PLVIndex(PLVR, id),
				Src1: d.PLVIndex(PLVRHat, id),
				Src2: d.PLVIndex(PLVPHatTilde, id),
			},
			Multiply{
				Dest: d.PLVIndex(PLVRTilde, id),
				Src1: d.PLVIndex(PLVRHat, id),
				Src2: d.PLVIndex(PLVPHat, id),
			},
		)
	}
	if n.leaf {
		return ops
	}

	ops = append(ops, Zero{Dest: d.PLVIndex(PLVPHat, id)})
	for _, childID := range n.leafwardSorted {
		if !visited[childID] {
			ops = d.scheduleBranchLengthOptimization(ops, childID, visited)
		}
		ops = d.optimizeBranchLengthUpdatePHat(ops, id, childID, false)
	}
	// PHat changed, so refresh the rotated-side above-node vector before
	// optimizing the rotated edges.
	ops = append(ops, Multiply{
		Dest: d.PLVIndex(PLVRTilde, id),
		Src1: d.PLVIndex(PLVRHat, id),
		Src2: d.PLVIndex(PLVPHat, id),
	})

	ops = append(ops, Zero{Dest: d.PLVIndex(PLVPHatTilde, id)})
	for _, childID := range n.leafwardRotated {
		if !visited[childID] {
			ops = d.scheduleBranchLengthOptimization(ops, childID, visited)
		}
		ops = d.optimizeBranchLengthUpdatePHat(ops, id, childID, true)
	}
	ops = append(ops, Multiply{
		Dest: d.PLVIndex(PLVR, id),
		Src1: d.PLVIndex(PLVRHat, id),
		Src2: d.PLVIndex(PLVPHatTilde, id),
	})

	return append(ops, Multiply{
		Dest: d.PLVIndex(PLVP, id),
		Src1: d.PLVIndex(PLVPHat, id),
		Src2: d.PLVIndex(PLVPHatTilde, id),
	})
}

// scheduleSBNParameterOptimization mirrors the branch length sweep but
// records per-edge likelihoods instead of optimizing branch lengths, and
// renormalizes each parent's child block once those likelihoods are
// current.
func (d *DAG) scheduleSBNParameterOptimization(ops []Op, id int, visited []bool) []Op {
	visited[id] = true
	n := d.nodes[id]

	if !n.sub.IsRoot() {
		ops = append(ops, Zero{Dest: d.PLVIndex(PLVRHat, id)})
		ops = d.updateRHat(ops, id, false)
		ops = d.updateRHat(ops, id, true)
		ops = append(ops,
			Multiply{
				Dest: d.PLVIndex(PLVR, id),
				Src1: d.PLVIndex(PLVRHat, id),
				Src2: d.PLVIndex(PLVPHatTilde, id),
			},
			Multiply{
				Dest: d.PLVIndex(PLVRTilde, id),
				Src1: d.PLVIndex(PLVRHat, id),
				Src2: d.PLVIndex(PLVPHat, id),
			},
		)
	}
	if n.leaf {
		return ops
	}

	ops = append(ops, Zero{Dest: d.PLVIndex(PLVPHat, id)})
	for _, childID := range n.leafwardSorted {
		if !visited[childID] {
			ops = d.scheduleSBNParameterOptimization(ops, childID, visited)
		}
		ops = d.updatePHatComputeLikelihood(ops, id, childID, false)
	}
	ops = d.addSBNUpdate(ops, n.sub)
	ops = append(ops, Multiply{
		Dest: d.PLVIndex(PLVRTilde, id),
		Src1: d.PLVIndex(PLVRHat, id),
		Src2: d.PLVIndex(PLVPHat, id),
	})

	ops = append(ops, Zero{Dest: d.PLVIndex(PLVPHatTilde, id)})
	for _, childID := range n.leafwardRotated {
		if !visited[childID] {
			ops = d.scheduleSBNParameterOptimization(ops, childID, visited)
		}
		ops = d.updatePHatComputeLikelihood(ops, id, childID, true)
	}
	ops = d.addSBNUpdate(ops, n.sub.Rotate())
	ops = append(ops, Multiply{
		Dest: d.PLVIndex(PLVR, id),
		Src1: d.PLVIndex(PLVRHat, id),
		Src2: d.PLVIndex(PLVPHatTilde, id),
	})

	return append(ops, Multiply{
		Dest: d.PLVIndex(PLVP, id),
		Src1: d.PLVIndex(PLVPHat, id),
		Src2: d.PLVIndex(PLVPHatTilde, id),
	})
}

// addSBNUpdate renormalizes the parameter block of an oriented parent's
// children. Singleton blocks (including fake leaf edges) already carry
// probability one and need no op.
func (d *DAG) addSBNUpdate(ops []Op, oriented subsplit.Subsplit) []Op {
	r, ok := d.paramRanges[oriented.Key()]
	if !ok || r.Len() < 2 {
		return ops
	}
	return append(ops, UpdateSBNProbabilities{Start: r.Start, Stop: r.Stop})
}
