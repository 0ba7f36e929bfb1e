package gpdag

import "fmt"

// Op is one instruction of a generated schedule. The set of
// implementations is closed; an engine executing a schedule switches over
// the concrete types. Every operand is an integer index into engine-owned
// storage: PLV buffer indices (see [DAG.PLVIndex]), parameter indices, or
// parameter-range bounds.
type Op interface {
	isOp()
	fmt.Stringer
}

// Zero sets a PLV buffer to all zeros.
type Zero struct {
	Dest int
}

// SetToStationaryDistribution fills a PLV buffer with the substitution
// model's stationary distribution, seeding the boundary condition at a
// rootsplit node. Rootsplit names the rootsplit's parameter index.
type SetToStationaryDistribution struct {
	Dest      int
	Rootsplit int
}

// EvolveWeighted applies the transition operator parameterized by the
// branch length at Param to Src, scales by the probability at Param, and
// adds the result into Dest.
type EvolveWeighted struct {
	Dest  int
	Param int
	Src   int
}

// Multiply sets Dest to the element-wise product of Src1 and Src2.
type Multiply struct {
	Dest int
	Src1 int
	Src2 int
}

// Likelihood computes the per-edge log-likelihood for the branch at Param
// between the rootward buffer RBuf and the leafward buffer PBuf, storing
// it in the engine's per-parameter likelihood vector.
type Likelihood struct {
	Param int
	RBuf  int
	PBuf  int
}

// IncrementMarginalLikelihood accumulates one rootsplit's contribution to
// the marginal log-likelihood from the stationary-seeded RHat buffer and
// the root node's P buffer.
type IncrementMarginalLikelihood struct {
	RHat      int
	Rootsplit int
	P         int
}

// OptimizeBranchLength asks the engine's one-dimensional optimizer to
// update the branch length at Param in place, maximizing the edge
// likelihood between PBuf (leafward) and RBuf (rootward).
type OptimizeBranchLength struct {
	PBuf  int
	RBuf  int
	Param int
}

// UpdateSBNProbabilities renormalizes the parameter range [Start, Stop)
// into a categorical distribution using the freshly computed per-edge
// likelihoods.
type UpdateSBNProbabilities struct {
	Start int
	Stop  int
}

func (Zero) isOp()                        {}
func (SetToStationaryDistribution) isOp() {}
func (EvolveWeighted) isOp()              {}
func (Multiply) isOp()                    {}
func (Likelihood) isOp()                  {}
func (IncrementMarginalLikelihood) isOp() {}
func (OptimizeBranchLength) isOp()        {}
func (UpdateSBNProbabilities) isOp()      {}

func (o Zero) String() string { return fmt.Sprintf("Zero(%d)", o.Dest) }

func (o SetToStationaryDistribution) String() string {
	return fmt.Sprintf("SetToStationaryDistribution(%d, rootsplit=%d)", o.Dest, o.Rootsplit)
}

func (o EvolveWeighted) String() string {
	return fmt.Sprintf("EvolveWeighted(%d += q[%d] P[%d] * %d)", o.Dest, o.Param, o.Param, o.Src)
}

func (o Multiply) String() string {
	return fmt.Sprintf("Multiply(%d = %d o %d)", o.Dest, o.Src1, o.Src2)
}

func (o Likelihood) String() string {
	return fmt.Sprintf("Likelihood(param=%d, r=%d, p=%d)", o.Param, o.RBuf, o.PBuf)
}

func (o IncrementMarginalLikelihood) String() string {
	return fmt.Sprintf("IncrementMarginalLikelihood(rhat=%d, rootsplit=%d, p=%d)", o.RHat, o.Rootsplit, o.P)
}

func (o OptimizeBranchLength) String() string {
	return fmt.Sprintf("OptimizeBranchLength(p=%d, r=%d, param=%d)", o.PBuf, o.RBuf, o.Param)
}

func (o UpdateSBNProbabilities) String() string {
	return fmt.Sprintf("UpdateSBNProbabilities([%d, %d))", o.Start, o.Stop)
}
