// SPDX-License-Identifier: MIT

// Package phase turns a reference lnΠ grid into collections of phases at
// arbitrary chemical potentials.
//
// What:
//
//   - Phase is one region of a partition bound to the reweighted grid. Its
//     observables (Nave, Nvar, MolFrac, Density, BetaOmega) are computed once
//     on first use from the normalized probability of the region.
//   - Collection is the ordered set of phases built at one mu, sorted by
//     phase id, plus the barrier graph between them.
//   - Builder is the pipeline
//
//     reweight → peaks.Find → watershed.Partition → barrier.New
//     → barrier.Merge → tag → identity merge
//
//     and is a pure function of (reference grid, mu, nmax). Builders are
//     safe for concurrent use.
//   - Series is an append-only ordered set of collections unique in mu
//     within a tolerance. Sweep fills one concurrently.
//   - Cache is an optional bounded LRU of builds keyed by the reference
//     grid, the mu offset and nmax.
//
// Phase ids:
//
// A Tagger maps the built phases to caller-stable integer ids (default:
// build order 0, 1, ...). With identity merging on, phases that receive the
// same id are unioned into one before the collection is returned.
//
// Grand potential:
//
//	βΩ_p = lnΠ(0) − ln Σ_{n∈p} Π(n)
//	Ω_p  = βΩ_p / β
//
// where lnΠ(0) is the value of the reweighted grid at the empty state
// (flat index 0).
//
// Errors:
//
//   - ErrPhaseAbsent (errkind.ErrNullResult) for lookups of ids that are
//     not present at the queried mu.
//   - Segmentation and merge errors from peaks, watershed and barrier are
//     returned unchanged.
package phase
