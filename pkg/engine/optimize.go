package engine

import "math"

// Branch length optimization bounds and tolerances. Branch lengths are
// expected substitution counts; anything past a few substitutions per
// site is saturation and indistinguishable from the upper bound.
const (
	minBranchLength  = 1e-6
	maxBranchLength  = 3.0
	brentTolerance   = 1e-7
	brentMaxIter     = 100
	goldenSectionInv = 0.3819660112501051 // (3 - sqrt(5)) / 2
)

// minimizeBrent finds a local minimum of f on [lower, upper] by Brent's
// method: parabolic interpolation where it helps, golden section where it
// doesn't. Returns the minimizing abscissa and its value.
func minimizeBrent(f func(float64) float64, lower, upper, tol float64, maxIter int) (float64, float64) {
	a, b := lower, upper
	x := a + goldenSectionInv*(b-a)
	w, v := x, x
	fx := f(x)
	fw, fv := fx, fx
	var d, e float64

	for iter := 0; iter < maxIter; iter++ {
		mid := 0.5 * (a + b)
		tol1 := tol*math.Abs(x) + 1e-12
		tol2 := 2 * tol1
		if math.Abs(x-mid) <= tol2-0.5*(b-a) {
			break
		}

		useGolden := true
		if math.Abs(e) > tol1 {
			// Fit a parabola through x, w, v.
			r := (x - w) * (fx - fv)
			q := (x - v) * (fx - fw)
			p := (x-v)*q - (x-w)*r
			q = 2 * (q - r)
			if q > 0 {
				p = -p
			}
			q = math.Abs(q)
			eOld := e
			e = d
			if math.Abs(p) < math.Abs(0.5*q*eOld) && p > q*(a-x) && p < q*(b-x) {
				d = p / q
				u := x + d
				if u-a < tol2 || b-u < tol2 {
					d = math.Copysign(tol1, mid-x)
				}
				useGolden = false
			}
		}
		if useGolden {
			if x < mid {
				e = b - x
			} else {
				e = a - x
			}
			d = goldenSectionInv * e
		}

		var u float64
		if math.Abs(d) >= tol1 {
			u = x + d
		} else {
			u = x + math.Copysign(tol1, d)
		}
		fu := f(u)

		if fu <= fx {
			if u >= x {
				a = x
			} else {
				b = x
			}
			v, w, x = w, x, u
			fv, fw, fx = fw, fx, fu
			continue
		}
		if u < x {
			a = u
		} else {
			b = u
		}
		if fu <= fw || w == x {
			v, w = w, u
			fv, fw = fw, fu
		} else if fu <= fv || v == x || v == w {
			v = u
			fv = fu
		}
	}
	return x, fx
}
