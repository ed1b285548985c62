// SPDX-License-Identifier: MIT

// Package errkind defines the three failure categories shared by every
// package of lnpi. Package-level sentinels (peaks.ErrTooManyPeaks,
// stability.ErrNoSpinodal, ...) wrap exactly one of these, so callers can
// branch on the category with errors.Is without knowing which stage failed:
//
//	switch {
//	case errors.Is(err, errkind.ErrNullResult):
//		// the feature does not exist (no spinodal, phase absent)
//	case errors.Is(err, errkind.ErrSearchExhausted):
//		// a finite budget ran out before the answer was determined
//	case errors.Is(err, errkind.ErrInvalidInput):
//		// caller error; retrying will not help
//	}
package errkind

import "errors"

var (
	// ErrInvalidInput marks malformed input: shape mismatches, more than one
	// varying chemical-potential component, a required phase that is absent.
	// Always surfaced immediately and never retried.
	ErrInvalidInput = errors.New("lnpi: invalid input")

	// ErrSearchExhausted marks a finite search budget running out: peak bound
	// unsatisfiable, bracket not found, root solver not converged.
	ErrSearchExhausted = errors.New("lnpi: search exhausted")

	// ErrNullResult marks the legitimate absence of a phenomenon: no spinodal,
	// no binodal, a phase not present at the queried point.
	ErrNullResult = errors.New("lnpi: null result")
)
