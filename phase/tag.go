// SPDX-License-Identifier: MIT

package phase

import (
	"fmt"
	"sort"
)

// Tagger assigns a phase id to every phase of a freshly built collection.
// The returned slice is aligned with c.Phases(); ids must be >= 0. The
// collection passed in carries provisional ids 0..Len()-1 in build order.
type Tagger interface {
	Tag(c *Collection) ([]int, error)
}

// TaggerFunc adapts a function to Tagger.
type TaggerFunc func(c *Collection) ([]int, error)

// Tag implements Tagger.
func (f TaggerFunc) Tag(c *Collection) ([]int, error) { return f(c) }

// TagByOrder keeps the build order: ids 0, 1, ...
var TagByOrder Tagger = TaggerFunc(func(c *Collection) ([]int, error) {
	out := make([]int, c.Len())
	for k := range out {
		out[k] = k
	}

	return out, nil
})

// TagByPeakAxis ranks the phases by the coordinate of their maximum along
// axis; the phase closest to the origin gets id 0. Ties keep build order.
func TagByPeakAxis(axis int) Tagger {
	return TaggerFunc(func(c *Collection) ([]int, error) {
		if axis < 0 || axis >= c.Grid().NDim() {
			return nil, fmt.Errorf("%w: axis %d", ErrBadComponent, axis)
		}
		shape := c.Grid().Shape()
		pos := make([]int, c.Len())
		coord := make([]int, shape.NDim())
		for k, p := range c.phases {
			pos[k] = shape.Coord(p.LocalArgMax(), coord)[axis]
		}
		order := make([]int, c.Len())
		for k := range order {
			order[k] = k
		}
		sort.SliceStable(order, func(a, b int) bool { return pos[order[a]] < pos[order[b]] })
		out := make([]int, c.Len())
		for rank, k := range order {
			out[k] = rank
		}

		return out, nil
	})
}

// TagByMolfrac tags phases whose mole fraction of component is below cut
// as 0 and the rest as 1. With two phases of a binary mixture this pins
// the lean and rich phases to stable ids.
func TagByMolfrac(component int, cut float64) Tagger {
	return TaggerFunc(func(c *Collection) ([]int, error) {
		if component < 0 || component >= c.Grid().NDim() {
			return nil, fmt.Errorf("%w: component %d", ErrBadComponent, component)
		}
		out := make([]int, c.Len())
		for k, p := range c.phases {
			if p.MolFrac()[component] >= cut {
				out[k] = 1
			}
		}

		return out, nil
	})
}

// TagByPeakCut tags phases whose maximum lies below cut along axis as 0 and
// the rest as 1, so a well keeps its id when the other one vanishes.
func TagByPeakCut(axis int, cut float64) Tagger {
	return TaggerFunc(func(c *Collection) ([]int, error) {
		if axis < 0 || axis >= c.Grid().NDim() {
			return nil, fmt.Errorf("%w: axis %d", ErrBadComponent, axis)
		}
		shape := c.Grid().Shape()
		coord := make([]int, shape.NDim())
		out := make([]int, c.Len())
		for k, p := range c.phases {
			if float64(shape.Coord(p.LocalArgMax(), coord)[axis]) >= cut {
				out[k] = 1
			}
		}

		return out, nil
	})
}
