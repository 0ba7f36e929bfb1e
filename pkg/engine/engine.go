// Package engine owns the numerical side of generalized pruning: the
// partial likelihood vector (PLV) storage, the flat parameter vector, and
// an interpreter for the operation schedules generated by gpdag. The DAG
// decides which indices to touch and in what order; the engine decides
// what touching them means under the substitution model.
package engine

import (
	"fmt"
	"math"

	"github.com/phylodag/phylodag/pkg/gpdag"
)

// DefaultBranchLength initializes every branch parameter before the first
// optimization sweep.
const DefaultBranchLength = 0.1

// Engine holds the numerical state for one DAG: PLV buffers sized by the
// alignment's pattern count, branch lengths and probabilities per
// parameter slot, per-parameter edge log-likelihoods, and the running
// per-pattern marginal.
type Engine struct {
	weights []float64

	plvs [][]float64

	q              []float64
	branchLengths  []float64
	logLikelihoods []float64

	// perPatternMarginal accumulates, per pattern and in log space, the
	// prior-weighted likelihood summed over rootsplits.
	perPatternMarginal []float64

	scratch []float64
}

// New allocates an engine for plvCount buffers and paramCount parameter
// slots over the given site pattern. Branch lengths start at
// DefaultBranchLength; probabilities start at zero and must be set before
// running a schedule.
func New(sp *SitePattern, plvCount, paramCount int) *Engine {
	patterns := sp.PatternCount()
	e := &Engine{
		weights:            append([]float64(nil), sp.Weights()...),
		plvs:               make([][]float64, plvCount),
		q:                  make([]float64, paramCount),
		branchLengths:      make([]float64, paramCount),
		logLikelihoods:     make([]float64, paramCount),
		perPatternMarginal: make([]float64, patterns),
		scratch:            make([]float64, patterns),
	}
	for i := range e.plvs {
		e.plvs[i] = make([]float64, patterns*States)
	}
	for i := range e.branchLengths {
		e.branchLengths[i] = DefaultBranchLength
	}
	e.ResetMarginalLikelihood()
	return e
}

// SeedLeaf writes a leaf's observed data into a P buffer: an indicator
// vector per pattern, or all ones for gaps and ambiguity codes.
func (e *Engine) SeedLeaf(buf int, codes []uint8) {
	plv := e.plvs[buf]
	for i := range plv {
		plv[i] = 0
	}
	for p, c := range codes {
		base := p * States
		if c == gapCode {
			for b := 0; b < States; b++ {
				plv[base+b] = 1
			}
			continue
		}
		plv[base+int(c)] = 1
	}
}

// SetParameters copies q into the engine's parameter vector.
func (e *Engine) SetParameters(q []float64) {
	if len(q) != len(e.q) {
		panic(fmt.Sprintf("engine: %d parameters, engine holds %d slots", len(q), len(e.q)))
	}
	copy(e.q, q)
}

// Parameters returns a copy of the current parameter vector.
func (e *Engine) Parameters() []float64 {
	return append([]float64(nil), e.q...)
}

// BranchLengths returns a copy of the current branch lengths.
func (e *Engine) BranchLengths() []float64 {
	return append([]float64(nil), e.branchLengths...)
}

// SetBranchLengths copies lengths into the engine's branch length vector.
func (e *Engine) SetBranchLengths(lengths []float64) {
	if len(lengths) != len(e.branchLengths) {
		panic(fmt.Sprintf("engine: %d branch lengths, engine holds %d slots",
			len(lengths), len(e.branchLengths)))
	}
	copy(e.branchLengths, lengths)
}

// PerEdgeLogLikelihoods returns a copy of the per-parameter edge
// log-likelihoods recorded by the most recent Likelihood and
// OptimizeBranchLength ops.
func (e *Engine) PerEdgeLogLikelihoods() []float64 {
	return append([]float64(nil), e.logLikelihoods...)
}

// ResetMarginalLikelihood clears the marginal accumulator; call it before
// re-running the marginal ops.
func (e *Engine) ResetMarginalLikelihood() {
	for i := range e.perPatternMarginal {
		e.perPatternMarginal[i] = math.Inf(-1)
	}
}

// LogMarginalLikelihood returns the pattern-weighted log marginal
// likelihood accumulated so far.
func (e *Engine) LogMarginalLikelihood() float64 {
	total := 0.0
	for p, w := range e.weights {
		total += w * e.perPatternMarginal[p]
	}
	return total
}

// PLV returns a copy of one buffer, mainly for tests and diagnostics.
func (e *Engine) PLV(buf int) []float64 {
	return append([]float64(nil), e.plvs[buf]...)
}

// Run interprets a schedule in order. The op set is closed; an op the
// engine does not know is a programming error and panics.
func (e *Engine) Run(ops []gpdag.Op) {
	for _, op := range ops {
		e.apply(op)
	}
}

func (e *Engine) apply(op gpdag.Op) {
	switch o := op.(type) {
	case gpdag.Zero:
		buf := e.plvs[o.Dest]
		for i := range buf {
			buf[i] = 0
		}

	case gpdag.SetToStationaryDistribution:
		// The rootsplit prior is folded in here, so every vector derived
		// leafward of this one is already prior-weighted.
		buf := e.plvs[o.Dest]
		v := e.q[o.Rootsplit] * stationaryFreq
		for i := range buf {
			buf[i] = v
		}

	case gpdag.EvolveWeighted:
		evolveInto(e.plvs[o.Dest], e.plvs[o.Src], e.branchLengths[o.Param], e.q[o.Param])

	case gpdag.Multiply:
		dst, a, b := e.plvs[o.Dest], e.plvs[o.Src1], e.plvs[o.Src2]
		for i := range dst {
			dst[i] = a[i] * b[i]
		}

	case gpdag.Likelihood:
		// The edge's own weight enters the recorded value, so
		// renormalizing a sibling block updates q as a posterior over
		// the previous q rather than discarding it.
		edgeLikelihood(e.scratch, e.plvs[o.RBuf], e.plvs[o.PBuf], e.branchLengths[o.Param])
		e.logLikelihoods[o.Param] = math.Log(e.q[o.Param]) + e.weightedLog(e.scratch)

	case gpdag.IncrementMarginalLikelihood:
		rhat, p := e.plvs[o.RHat], e.plvs[o.P]
		loglik := 0.0
		for i := range e.perPatternMarginal {
			base := i * States
			dot := 0.0
			for b := 0; b < States; b++ {
				dot += rhat[base+b] * p[base+b]
			}
			contribution := math.Log(dot)
			loglik += e.weights[i] * contribution
			e.perPatternMarginal[i] = logAddExp(e.perPatternMarginal[i], contribution)
		}
		e.logLikelihoods[o.Rootsplit] = loglik

	case gpdag.OptimizeBranchLength:
		r, p := e.plvs[o.RBuf], e.plvs[o.PBuf]
		negative := func(t float64) float64 {
			edgeLikelihood(e.scratch, r, p, t)
			return -e.weightedLog(e.scratch)
		}
		t, neg := minimizeBrent(negative, minBranchLength, maxBranchLength, brentTolerance, brentMaxIter)
		e.branchLengths[o.Param] = t
		// The weight is constant in t, so it stays out of the Brent
		// objective and is folded back into the recorded value.
		e.logLikelihoods[o.Param] = math.Log(e.q[o.Param]) - neg

	case gpdag.UpdateSBNProbabilities:
		e.updateSBNProbabilities(o.Start, o.Stop)

	default:
		panic(fmt.Sprintf("engine: unknown op %T", op))
	}
}

// updateSBNProbabilities renormalizes q over [start, stop) as the softmax
// of the segment's edge log-likelihoods.
func (e *Engine) updateSBNProbabilities(start, stop int) {
	if stop-start == 1 {
		e.q[start] = 1
		return
	}
	norm := math.Inf(-1)
	for i := start; i < stop; i++ {
		norm = logAddExp(norm, e.logLikelihoods[i])
	}
	for i := start; i < stop; i++ {
		e.q[i] = math.Exp(e.logLikelihoods[i] - norm)
	}
}

// weightedLog returns the pattern-weight dot product with the logs of the
// per-pattern values.
func (e *Engine) weightedLog(perPattern []float64) float64 {
	total := 0.0
	for i, w := range e.weights {
		total += w * math.Log(perPattern[i])
	}
	return total
}

// logAddExp returns log(exp(a) + exp(b)) without overflow.
func logAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}
