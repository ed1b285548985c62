// SPDX-License-Identifier: MIT

package peaks

import (
	"log/slog"
	"math"
	"sort"

	"github.com/katalvlaran/lnpi/grid"
)

// Find runs the adaptive detector on g.
func Find(g *grid.Grid, opts ...Option) (Result, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.MinDistances) == 0 {
		return Result{}, ErrBadRadius
	}
	if o.MaxPeaks < 0 {
		return Result{}, ErrBadMaxPeaks
	}
	if g.NumIncluded() == 0 {
		return Result{}, ErrAllExcluded
	}

	best := &TooManyPeaksError{Count: math.MaxInt, Max: o.MaxPeaks}

	// 1) raw schedule
	if o.Smooth != SmoothAlways {
		if res, ok := runSchedule(g, o, false, best); ok {
			return res, nil
		}
		if o.Smooth == SmoothNever {
			return Result{}, best
		}
		o.Logger.Debug("peaks: schedule exhausted, retrying on smoothed grid",
			slog.Int("best", best.Count), slog.Int("max", o.MaxPeaks))
	}

	// 2) smoothed schedule
	sm, err := g.Smooth(o.Sigma, o.Truncate)
	if err != nil {
		return Result{}, err
	}
	if res, ok := runSchedule(sm, o, true, best); ok {
		return res, nil
	}

	return Result{}, best
}

// runSchedule tries every radius on g and records the best failure in best.
func runSchedule(g *grid.Grid, o Options, smoothed bool, best *TooManyPeaksError) (Result, bool) {
	shape := g.Shape()
	nb := shape.Neighborhood(o.Conn)
	data, threshold := shifted(g, o)

	for _, r := range o.MinDistances {
		cand := candidates(shape, data, threshold, r)
		accepted := spaced(shape, data, cand, r)
		member := make([]bool, shape.Size())
		for _, i := range accepted {
			member[i] = true
		}
		markers := grid.Components(nb, member)

		o.Logger.Debug("peaks: radius tried",
			slog.Int("min_distance", r),
			slog.Bool("smoothed", smoothed),
			slog.Int("candidates", len(cand)),
			slog.Int("markers", len(markers)))

		if o.MaxPeaks > 0 && len(markers) > o.MaxPeaks {
			if len(markers) < best.Count {
				best.Count, best.MinDistance, best.Smoothed = len(markers), r, smoothed
			}
			continue
		}

		res := Result{MinDistance: r, Smoothed: smoothed}
		if len(markers) == 0 {
			// flat or sub-threshold surface: fall back to the global maximum
			idx, _, _ := g.Max()
			res.Peaks = []int{idx}
			res.Markers = [][]int{{idx}}
			res.Fallback = true

			return res, true
		}
		res.Markers, res.Peaks = order(data, markers)

		return res, true
	}

	return Result{}, false
}

// shifted returns included values minus their minimum (excluded = -Inf) and
// the effective threshold.
func shifted(g *grid.Grid, o Options) ([]float64, float64) {
	vmin, _ := g.Min()
	data := make([]float64, g.Size())
	vmax := 0.0
	for i := range data {
		if g.IsExcluded(i) {
			data[i] = math.Inf(-1)
			continue
		}
		data[i] = g.Value(i) - vmin
		if data[i] > vmax {
			vmax = data[i]
		}
	}

	return data, math.Max(o.ThresholdAbs, o.ThresholdRel*vmax)
}

// candidates returns cells equal to their (2r+1)^d window maximum and above
// threshold, via a separable running maximum along each axis.
func candidates(shape grid.Shape, data []float64, threshold float64, r int) []int {
	size := shape.Size()
	cur := append([]float64(nil), data...)
	next := make([]float64, size)
	coord := make([]int, shape.NDim())

	for a := 0; a < shape.NDim(); a++ {
		stride, n := shape.Stride(a), shape.Dim(a)
		for start := 0; start < size; start++ {
			if shape.Coord(start, coord)[a] != 0 {
				continue
			}
			for k := 0; k < n; k++ {
				lo, hi := k-r, k+r
				if lo < 0 {
					lo = 0
				}
				if hi > n-1 {
					hi = n - 1
				}
				m := math.Inf(-1)
				for j := lo; j <= hi; j++ {
					if v := cur[start+j*stride]; v > m {
						m = v
					}
				}
				next[start+k*stride] = m
			}
		}
		cur, next = next, cur
	}

	var out []int
	for i, v := range data {
		if !math.IsInf(v, -1) && v == cur[i] && v > threshold {
			out = append(out, i)
		}
	}

	return out
}

// spaced keeps candidates, strongest first (lower index on ties), that have
// no stronger accepted peak at Chebyshev distance < r.
func spaced(shape grid.Shape, data []float64, cand []int, r int) []int {
	sort.SliceStable(cand, func(a, b int) bool {
		if data[cand[a]] != data[cand[b]] {
			return data[cand[a]] > data[cand[b]]
		}
		return cand[a] < cand[b]
	})

	nd := shape.NDim()
	accepted := make([]int, 0, len(cand))
	coords := make([][]int, 0, len(cand))
	for _, c := range cand {
		cc := shape.Coord(c, make([]int, nd))
		ok := true
		for _, ac := range coords {
			if chebyshev(cc, ac) < r {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, c)
			coords = append(coords, cc)
		}
	}

	return accepted
}

func chebyshev(a, b []int) int {
	d := 0
	for k := range a {
		x := a[k] - b[k]
		if x < 0 {
			x = -x
		}
		if x > d {
			d = x
		}
	}

	return d
}

// order sorts markers strongest first and picks each marker's representative.
func order(data []float64, markers [][]int) ([][]int, []int) {
	reps := make([]int, len(markers))
	for m, cells := range markers {
		best := cells[0]
		for _, c := range cells[1:] {
			if data[c] > data[best] || (data[c] == data[best] && c < best) {
				best = c
			}
		}
		reps[m] = best
	}
	perm := make([]int, len(markers))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		ra, rb := reps[perm[a]], reps[perm[b]]
		if data[ra] != data[rb] {
			return data[ra] > data[rb]
		}
		return ra < rb
	})

	outM := make([][]int, len(markers))
	outP := make([]int, len(markers))
	for i, p := range perm {
		cells := append([]int(nil), markers[p]...)
		sort.Ints(cells)
		outM[i], outP[i] = cells, reps[p]
	}

	return outM, outP
}
