// SPDX-License-Identifier: MIT

package grid

import "fmt"

// Shape is a row-major N-d index space: the last axis varies fastest.
// The zero Shape is invalid; build one with NewShape.
type Shape struct {
	dims    []int
	strides []int
	size    int
}

// NewShape validates dims and precomputes strides.
func NewShape(dims ...int) (Shape, error) {
	if len(dims) == 0 {
		return Shape{}, ErrEmptyShape
	}
	s := Shape{
		dims:    append([]int(nil), dims...),
		strides: make([]int, len(dims)),
		size:    1,
	}
	for a := len(dims) - 1; a >= 0; a-- {
		if dims[a] <= 0 {
			return Shape{}, fmt.Errorf("%w: axis %d has length %d", ErrBadShape, a, dims[a])
		}
		s.strides[a] = s.size
		s.size *= dims[a]
	}

	return s, nil
}

// MustShape is NewShape that panics on error; intended for tests and literals.
func MustShape(dims ...int) Shape {
	s, err := NewShape(dims...)
	if err != nil {
		panic(err)
	}

	return s
}

// NDim returns the number of axes.
func (s Shape) NDim() int { return len(s.dims) }

// Size returns the number of cells.
func (s Shape) Size() int { return s.size }

// Dim returns the length of axis a.
func (s Shape) Dim(a int) int { return s.dims[a] }

// Dims returns a copy of the axis lengths.
func (s Shape) Dims() []int { return append([]int(nil), s.dims...) }

// Stride returns the flat-index step of axis a.
func (s Shape) Stride(a int) int { return s.strides[a] }

// Equal reports whether both shapes have identical axes.
func (s Shape) Equal(o Shape) bool {
	if len(s.dims) != len(o.dims) {
		return false
	}
	for a := range s.dims {
		if s.dims[a] != o.dims[a] {
			return false
		}
	}

	return true
}

// String implements fmt.Stringer, e.g. "(3, 4)".
func (s Shape) String() string {
	out := "("
	for a, d := range s.dims {
		if a > 0 {
			out += ", "
		}
		out += fmt.Sprint(d)
	}

	return out + ")"
}

// Index converts coord to a flat index. coord is not bounds-checked.
func (s Shape) Index(coord []int) int {
	idx := 0
	for a, c := range coord {
		idx += c * s.strides[a]
	}

	return idx
}

// Coord writes the coordinate of flat index idx into dst (allocated when
// dst is too short) and returns it.
func (s Shape) Coord(idx int, dst []int) []int {
	if len(dst) < len(s.dims) {
		dst = make([]int, len(s.dims))
	}
	dst = dst[:len(s.dims)]
	for a := range s.dims {
		dst[a] = idx / s.strides[a]
		idx %= s.strides[a]
	}

	return dst
}

// InBounds reports whether coord lies inside the shape.
func (s Shape) InBounds(coord []int) bool {
	if len(coord) != len(s.dims) {
		return false
	}
	for a, c := range coord {
		if c < 0 || c >= s.dims[a] {
			return false
		}
	}

	return true
}

// Neighborhood is a precomputed list of neighbour offsets for one Shape and
// Connectivity. It is read-only and safe for concurrent use.
type Neighborhood struct {
	shape   Shape
	offsets [][]int // per-axis offsets in {-1,0,1}
	deltas  []int   // flat-index delta of each offset
}

// Neighborhood precomputes the offsets admitted by conn: every vector in
// {-1,0,1}^d except the origin with at most conn.Rank(d) non-zero entries,
// enumerated in lexicographic order.
func (s Shape) Neighborhood(conn Connectivity) Neighborhood {
	nd := len(s.dims)
	rank := conn.Rank(nd)
	nb := Neighborhood{shape: s}

	off := make([]int, nd)
	for i := range off {
		off[i] = -1
	}
	for {
		nonzero := 0
		for _, o := range off {
			if o != 0 {
				nonzero++
			}
		}
		if nonzero > 0 && nonzero <= rank {
			cp := append([]int(nil), off...)
			nb.offsets = append(nb.offsets, cp)
			nb.deltas = append(nb.deltas, s.Index(cp))
		}
		// odometer increment over {-1,0,1}^d
		a := nd - 1
		for a >= 0 {
			off[a]++
			if off[a] <= 1 {
				break
			}
			off[a] = -1
			a--
		}
		if a < 0 {
			break
		}
	}

	return nb
}

// Len returns the number of offsets (neighbours of an interior cell).
func (nb Neighborhood) Len() int { return len(nb.deltas) }

// Shape returns the shape the neighbourhood was built for.
func (nb Neighborhood) Shape() Shape { return nb.shape }

// Each calls fn with the flat index of every in-bounds neighbour of idx.
// coord is scratch space of length NDim (may be nil).
func (nb Neighborhood) Each(idx int, coord []int, fn func(n int)) {
	coord = nb.shape.Coord(idx, coord)
	for k, off := range nb.offsets {
		inside := true
		for a, o := range off {
			c := coord[a] + o
			if c < 0 || c >= nb.shape.dims[a] {
				inside = false
				break
			}
		}
		if inside {
			fn(idx + nb.deltas[k])
		}
	}
}
