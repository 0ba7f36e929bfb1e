package gpdag

import "fmt"

// PLV identifies one of the six partial likelihood vector kinds kept per
// DAG node by the numerical engine.
//
// For a node with subsplit t, P carries the full below-node partial,
// PHat the evolved sum over the sorted children, PHatTilde the evolved
// sum over the rotated children, RHat the sum over the node's parents,
// and R and RTilde the above-node partials paired with the sorted and
// rotated sides respectively (R = RHat ∘ PHatTilde, RTilde = RHat ∘ PHat).
type PLV uint8

const (
	PLVP PLV = iota
	PLVPHat
	PLVPHatTilde
	PLVRHat
	PLVR
	PLVRTilde

	plvKindCount
)

func (p PLV) String() string {
	switch p {
	case PLVP:
		return "p"
	case PLVPHat:
		return "phat"
	case PLVPHatTilde:
		return "phat_tilde"
	case PLVRHat:
		return "rhat"
	case PLVR:
		return "r"
	case PLVRTilde:
		return "r_tilde"
	}
	return fmt.Sprintf("plv(%d)", uint8(p))
}

// PLVCount returns the total number of partial likelihood vectors the
// engine must allocate for this DAG: one per kind per node.
func (d *DAG) PLVCount() int {
	return int(plvKindCount) * len(d.nodes)
}

// PLVIndex returns the flat buffer index of the given vector kind for the
// given node. The layout groups by kind: all P vectors first, then all
// PHat vectors, and so on, each block indexed by node id.
func (d *DAG) PLVIndex(kind PLV, nodeID int) int {
	if kind >= plvKindCount {
		panic(fmt.Sprintf("gpdag: unknown plv kind %d", kind))
	}
	if nodeID < 0 || nodeID >= len(d.nodes) {
		panic(fmt.Sprintf("gpdag: node id %d out of range [0, %d)", nodeID, len(d.nodes)))
	}
	return int(kind)*len(d.nodes) + nodeID
}

// rPLV selects the above-node vector kind paired with an edge rotation:
// sorted edges read R, rotated edges read RTilde.
func rPLV(rotated bool) PLV {
	if rotated {
		return PLVRTilde
	}
	return PLVR
}

// pHatPLV selects the evolved-sum vector kind written by an edge
// rotation: sorted edges accumulate into PHat, rotated ones into
// PHatTilde.
func pHatPLV(rotated bool) PLV {
	if rotated {
		return PLVPHatTilde
	}
	return PLVPHat
}
