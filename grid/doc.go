// SPDX-License-Identifier: MIT

// Package grid holds the sampled log-probability surface lnΠ(n_0, …, n_{d-1})
// of a grand-canonical simulation as an immutable N-dimensional value object.
//
// What:
//
//   - Shape describes a row-major N-d coordinate space (one axis per species)
//     and converts between flat indices and coordinates.
//   - Connectivity/Neighborhood generalise the classic 4/8 neighbourhoods of a
//     2-D grid: Connectivity(k) lets at most k axes change at once, ConnFull
//     lets all of them change (3^d − 1 neighbours).
//   - Grid composes values, an exclusion mask (states never sampled), the
//     chemical-potential vector mu (βμ, i.e. ln z) and State (volume, β).
//   - Reweight, ZeroMax, Pad, Smooth and WithExcluded never mutate the
//     receiver; each returns a new Grid.
//   - Components and EdgeDistances are breadth-first sweeps over included
//     cells.
//   - ReadTable ingests whitespace tables "n_0 … n_{d-1} lnpi".
//
// Invariants:
//
//   - len(values) == len(excluded) == Shape.Size().
//   - Included values are finite; values at excluded cells are never used in
//     max/sum reductions.
//
// Complexity:
//
//   - Reweight, ZeroMax, Pad:    O(size·d) time, O(size) memory.
//   - Smooth:                    O(size·d·r), r = ⌈truncate·σ⌉.
//   - Components, EdgeDistances: O(size·k), k = neighbourhood size.
//
// Errors:
//
//   - ErrEmptyShape, ErrBadShape, ErrShapeMismatch, ErrMuLength,
//     ErrBadState, ErrNonFinite, ErrBadSigma, ErrBadTable.
//     All wrap errkind.ErrInvalidInput.
package grid
