package engine

import "math"

// The substitution model is Jukes-Cantor: uniform stationary frequencies
// and a single exchangeability, so the transition matrix has a closed
// form with one on-diagonal and one off-diagonal value.

// stationaryFreq is the JC69 stationary probability of each state.
const stationaryFreq = 1.0 / States

// jc69Transition returns the on-diagonal and off-diagonal transition
// probabilities for a branch of the given expected substitution count.
func jc69Transition(t float64) (same, diff float64) {
	e := math.Exp(-4.0 * t / 3.0)
	return 0.25 + 0.75*e, 0.25 - 0.25*e
}

// evolveInto accumulates scale * P(t) * src into dst, pattern by pattern.
func evolveInto(dst, src []float64, t, scale float64) {
	same, diff := jc69Transition(t)
	for p := 0; p+States <= len(src); p += States {
		total := src[p] + src[p+1] + src[p+2] + src[p+3]
		for b := 0; b < States; b++ {
			dst[p+b] += scale * ((same-diff)*src[p+b] + diff*total)
		}
	}
}

// edgeLikelihood returns the per-pattern likelihoods r · P(t) p, writing
// them into out.
func edgeLikelihood(out, r, p []float64, t float64) {
	same, diff := jc69Transition(t)
	for i := range out {
		base := i * States
		total := p[base] + p[base+1] + p[base+2] + p[base+3]
		sum := 0.0
		for b := 0; b < States; b++ {
			sum += r[base+b] * ((same-diff)*p[base+b] + diff*total)
		}
		out[i] = sum
	}
}
