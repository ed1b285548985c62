// SPDX-License-Identifier: MIT

package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Pad returns a copy whose excluded cells carry extrapolated values so that
// filters do not see the arbitrary data stored there. The mask is kept.
//
// Steps:
//  1. Along every axis, forward-fill excluded cells from the last included
//     value on the same line.
//  2. Each excluded cell takes the mean over axes that produced a value.
//  3. Cells no axis could reach take the smallest included value.
func (g *Grid) Pad() *Grid {
	nd, size := g.NDim(), g.shape.size
	base := make([]float64, size)
	for i, v := range g.values {
		if g.excluded[i] {
			base[i] = math.NaN()
		} else {
			base[i] = v
		}
	}

	// 1) forward fill per axis
	filled := make([][]float64, nd)
	coord := make([]int, nd)
	for a := 0; a < nd; a++ {
		ff := append([]float64(nil), base...)
		stride, n := g.shape.strides[a], g.shape.dims[a]
		for start := 0; start < size; start++ {
			if g.shape.Coord(start, coord)[a] != 0 {
				continue
			}
			last := math.NaN()
			for k, i := 0, start; k < n; k, i = k+1, i+stride {
				if math.IsNaN(ff[i]) {
					ff[i] = last
				} else {
					last = ff[i]
				}
			}
		}
		filled[a] = ff
	}

	// 2) mean over axes, 3) fallback to included minimum
	fill, ok := g.Min()
	if !ok {
		fill = 0
	}
	out := append([]float64(nil), g.values...)
	for i := range out {
		if !g.excluded[i] {
			continue
		}
		sum, cnt := 0.0, 0
		for a := 0; a < nd; a++ {
			if v := filled[a][i]; !math.IsNaN(v) {
				sum += v
				cnt++
			}
		}
		if cnt > 0 {
			out[i] = sum / float64(cnt)
		} else {
			out[i] = fill
		}
	}

	return g.derive(out, append([]bool(nil), g.excluded...))
}

// Smooth returns a Gaussian-filtered copy. Excluded cells are padded first,
// then a separable kernel of width sigma (in cells) truncated at
// truncate·sigma is applied along each axis with nearest-edge extension.
// The exclusion mask is kept.
func (g *Grid) Smooth(sigma, truncate float64) (*Grid, error) {
	if !(sigma > 0) || !(truncate > 0) {
		return nil, fmt.Errorf("%w: sigma=%g truncate=%g", ErrBadSigma, sigma, truncate)
	}
	kernel := gaussianKernel(sigma, truncate)
	radius := len(kernel) / 2

	cur := g.Pad().values
	next := make([]float64, len(cur))
	coord := make([]int, g.NDim())
	line := make([]float64, 0)
	for a := 0; a < g.NDim(); a++ {
		stride, n := g.shape.strides[a], g.shape.dims[a]
		if cap(line) < n {
			line = make([]float64, n)
		}
		line = line[:n]
		for start := range cur {
			if g.shape.Coord(start, coord)[a] != 0 {
				continue
			}
			for k := 0; k < n; k++ {
				line[k] = cur[start+k*stride]
			}
			for k := 0; k < n; k++ {
				acc := 0.0
				for j, w := range kernel {
					src := k + j - radius
					if src < 0 {
						src = 0
					} else if src >= n {
						src = n - 1
					}
					acc += w * line[src]
				}
				next[start+k*stride] = acc
			}
		}
		cur, next = next, cur
	}

	return g.derive(append([]float64(nil), cur...), append([]bool(nil), g.excluded...)), nil
}

// gaussianKernel returns normalised weights of length 2r+1, r = int(truncate·sigma + 0.5).
func gaussianKernel(sigma, truncate float64) []float64 {
	r := int(truncate*sigma + 0.5)
	w := make([]float64, 2*r+1)
	for k := -r; k <= r; k++ {
		x := float64(k) / sigma
		w[k+r] = math.Exp(-0.5 * x * x)
	}
	floats.Scale(1/floats.Sum(w), w)

	return w
}
