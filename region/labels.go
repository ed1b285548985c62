// SPDX-License-Identifier: MIT

// Package region holds the label partition of a grid: every included cell
// maps to exactly one positive region id, 0 marks excluded or unassigned
// cells. Ids are canonical, i.e. 1..Count() with every id in use, so the
// partition converts losslessly to and from an ordered list of masks
// (mask k ↔ id k+1).
package region

import (
	"fmt"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/grid"
)

// Sentinel errors for label partitions.
var (
	// ErrShapeMismatch indicates labels or masks that do not match the shape.
	ErrShapeMismatch = fmt.Errorf("region: size does not match shape: %w", errkind.ErrInvalidInput)
	// ErrNegativeLabel indicates a label below zero.
	ErrNegativeLabel = fmt.Errorf("region: labels must be >= 0: %w", errkind.ErrInvalidInput)
	// ErrGap indicates an id in 1..max that labels no cell.
	ErrGap = fmt.Errorf("region: region ids must be contiguous from 1: %w", errkind.ErrInvalidInput)
	// ErrOverlap indicates masks that share a cell.
	ErrOverlap = fmt.Errorf("region: masks overlap: %w", errkind.ErrInvalidInput)
	// ErrUncovered indicates an included cell with no label.
	ErrUncovered = fmt.Errorf("region: included cell is unlabeled: %w", errkind.ErrInvalidInput)
	// ErrLabeledExcluded indicates an excluded cell carrying a label.
	ErrLabeledExcluded = fmt.Errorf("region: excluded cell is labeled: %w", errkind.ErrInvalidInput)
	// ErrBadGroups indicates a regrouping that is not a partition of the ids.
	ErrBadGroups = fmt.Errorf("region: groups must partition the region ids: %w", errkind.ErrInvalidInput)
)

// Labels is an immutable label partition.
type Labels struct {
	shape grid.Shape
	ids   []int
	n     int
}

// NewLabels validates and copies ids.
func NewLabels(shape grid.Shape, ids []int) (*Labels, error) {
	if len(ids) != shape.Size() {
		return nil, fmt.Errorf("%w: %d labels for shape %v", ErrShapeMismatch, len(ids), shape)
	}
	n := 0
	for _, id := range ids {
		if id < 0 {
			return nil, fmt.Errorf("%w: got %d", ErrNegativeLabel, id)
		}
		if id > n {
			n = id
		}
	}
	used := make([]bool, n+1)
	for _, id := range ids {
		used[id] = true
	}
	for id := 1; id <= n; id++ {
		if !used[id] {
			return nil, fmt.Errorf("%w: id %d unused (max %d)", ErrGap, id, n)
		}
	}

	return &Labels{shape: shape, ids: append([]int(nil), ids...), n: n}, nil
}

// FromMasks labels cell i with k+1 when masks[k] selects it. masks are read
// in convention conv; overlapping masks are rejected, empty masks are
// dropped without leaving a gap.
func FromMasks(shape grid.Shape, masks [][]bool, conv grid.MaskConvention) (*Labels, error) {
	ids := make([]int, shape.Size())
	next := 0
	for k, m := range masks {
		if len(m) != shape.Size() {
			return nil, fmt.Errorf("%w: mask %d has %d cells for shape %v", ErrShapeMismatch, k, len(m), shape)
		}
		in := grid.Convert(m, conv, grid.Included)
		empty := true
		for _, v := range in {
			if v {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		next++
		for i, v := range in {
			if !v {
				continue
			}
			if ids[i] != 0 {
				return nil, fmt.Errorf("%w: cell %v in regions %d and %d", ErrOverlap, shape.Coord(i, nil), ids[i], next)
			}
			ids[i] = next
		}
	}

	return &Labels{shape: shape, ids: ids, n: next}, nil
}

// Shape returns the partition shape.
func (l *Labels) Shape() grid.Shape { return l.shape }

// Count returns the number of regions.
func (l *Labels) Count() int { return l.n }

// At returns the label of flat index i.
func (l *Labels) At(i int) int { return l.ids[i] }

// IDs returns a copy of the flat label array.
func (l *Labels) IDs() []int { return append([]int(nil), l.ids...) }

// Mask returns region id's mask (id in 1..Count) in convention conv.
func (l *Labels) Mask(id int, conv grid.MaskConvention) []bool {
	m := make([]bool, len(l.ids))
	for i, v := range l.ids {
		m[i] = v == id
	}
	if conv != grid.Included {
		return grid.Convert(m, grid.Included, conv)
	}

	return m
}

// Masks returns one mask per region, ordered by id.
func (l *Labels) Masks(conv grid.MaskConvention) [][]bool {
	out := make([][]bool, l.n)
	for k := range out {
		out[k] = l.Mask(k+1, conv)
	}

	return out
}

// Cells returns the flat indices of each region, ordered by id; cells are
// listed in ascending order.
func (l *Labels) Cells() [][]int {
	out := make([][]int, l.n)
	for i, v := range l.ids {
		if v > 0 {
			out[v-1] = append(out[v-1], i)
		}
	}

	return out
}

// Validate checks the partition invariant against an exclusion mask: every
// included cell has a positive label and no excluded cell has one.
func (l *Labels) Validate(excluded []bool) error {
	if len(excluded) != len(l.ids) {
		return fmt.Errorf("%w: %d mask cells for shape %v", ErrShapeMismatch, len(excluded), l.shape)
	}
	for i, v := range l.ids {
		switch {
		case excluded[i] && v != 0:
			return fmt.Errorf("%w: cell %v has label %d", ErrLabeledExcluded, l.shape.Coord(i, nil), v)
		case !excluded[i] && v == 0:
			return fmt.Errorf("%w: cell %v", ErrUncovered, l.shape.Coord(i, nil))
		}
	}

	return nil
}

// Regroup returns the partition whose region k+1 is the union of the ids
// in groups[k]. groups must use every id exactly once.
func (l *Labels) Regroup(groups [][]int) (*Labels, error) {
	remap := make([]int, l.n+1)
	seen := 0
	for k, g := range groups {
		if len(g) == 0 {
			return nil, fmt.Errorf("%w: group %d is empty", ErrBadGroups, k)
		}
		for _, id := range g {
			if id < 1 || id > l.n || remap[id] != 0 {
				return nil, fmt.Errorf("%w: id %d in group %d", ErrBadGroups, id, k)
			}
			remap[id] = k + 1
			seen++
		}
	}
	if seen != l.n {
		return nil, fmt.Errorf("%w: %d of %d ids grouped", ErrBadGroups, seen, l.n)
	}

	ids := make([]int, len(l.ids))
	for i, v := range l.ids {
		ids[i] = remap[v]
	}

	return &Labels{shape: l.shape, ids: ids, n: len(groups)}, nil
}
