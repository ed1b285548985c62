// SPDX-License-Identifier: MIT

package stability

import (
	"fmt"
	"math"
)

// SolverOptions bounds the Brent solver.
type SolverOptions struct {
	XTol    float64 `yaml:"xtol" json:"xtol"`
	RTol    float64 `yaml:"rtol" json:"rtol"`
	MaxIter int     `yaml:"maxiter" json:"maxiter"`
}

// DefaultSolverOptions returns XTol 2e-12, RTol 4·eps and MaxIter 100.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{XTol: 2e-12, RTol: 4 * 2.220446049250313e-16, MaxIter: 100}
}

// Root is the outcome of Solve: the root X, the objective F at X, the
// payload Value produced by the evaluation at X, and the work spent.
type Root[T any] struct {
	X          float64
	F          float64
	Value      T
	Iterations int
	Calls      int
}

// Objective evaluates f(x) together with a payload kept for the root.
type Objective[T any] func(x float64) (float64, T, error)

// Solve finds a root of f in [a, b] with Brent's method. f(a) and f(b)
// must have opposite signs (or one of them be 0). The payload of the last
// accepted point is returned with the root, so callers never re-evaluate.
func Solve[T any](f Objective[T], a, b float64, opts SolverOptions) (Root[T], error) {
	var out Root[T]
	if opts.MaxIter < 1 || !(opts.XTol >= 0) || !(opts.RTol >= 0) {
		return out, fmt.Errorf("%w: solver %+v", ErrBadOption, opts)
	}

	xpre, xcur := a, b
	fpre, vpre, err := f(xpre)
	if err != nil {
		return out, err
	}
	fcur, vcur, err := f(xcur)
	if err != nil {
		return out, err
	}
	out.Calls = 2
	if fpre*fcur > 0 {
		return out, fmt.Errorf("%w: f(%g) = %g, f(%g) = %g", ErrNotBracketed, a, fpre, b, fcur)
	}
	if fpre == 0 {
		out.X, out.F, out.Value = xpre, fpre, vpre
		return out, nil
	}
	if fcur == 0 {
		out.X, out.F, out.Value = xcur, fcur, vcur
		return out, nil
	}

	var (
		xblk, fblk float64
		vblk       T
		spre, scur float64
	)
	for i := 0; i < opts.MaxIter; i++ {
		out.Iterations = i + 1
		// 1) Keep the sign change between xcur and xblk
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk, fblk, vblk = xpre, fpre, vpre
			spre = xcur - xpre
			scur = spre
		}
		// 2) xcur is the best estimate so far
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
			vpre, vcur, vblk = vcur, vblk, vcur
		}

		delta := (opts.XTol + opts.RTol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta {
			out.X, out.F, out.Value = xcur, fcur, vcur
			return out, nil
		}

		// 3) Interpolate when it is safe, bisect otherwise
		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
			}
			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre, vpre = xcur, fcur, vcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}
		fcur, vcur, err = f(xcur)
		if err != nil {
			return out, err
		}
		out.Calls++
	}
	out.X, out.F, out.Value = xcur, fcur, vcur

	return out, fmt.Errorf("%w: %d iterations, x = %g, f = %g", ErrNotConverged, opts.MaxIter, xcur, fcur)
}
