// SPDX-License-Identifier: MIT

// Package store persists phase series in an embedded badger database.
//
// What:
//
//	A run is one saved phase.Series: its reference grid (values, exclusion
//	mask, mu, state), the connectivity used for barriers, the series
//	tolerance and, per point, mu together with the label partition, the
//	phase ids, the peaks and an optional stability mark. Load rebuilds every
//	collection with phase.FromLabels, so observables come back bit-identical
//	without rerunning segmentation.
//
// Keys:
//
//	run/<uuid>             run header (JSON)
//	pt/<uuid>/<%08d>       one point per series position (JSON)
//
// Errors:
//
//   - ErrRunNotFound wraps errkind.ErrNullResult.
//   - ErrNoPath, ErrEmptySeries, ErrMixedOrigins and ErrCorrupt wrap
//     errkind.ErrInvalidInput.
//   - badger errors are returned wrapped with the failing operation.
package store
