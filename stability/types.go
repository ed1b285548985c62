// SPDX-License-Identifier: MIT

// Package stability locates spinodals, binodals and constant-composition
// points by rebuilding phase collections along one varying chemical
// potential component.
//
// Spinodal (SpinodalLocator.Find):
//
//	BRACKET_SEARCH → BRACKET_REFINE → ROOT_SOLVE    → Solved
//	                                → (collapsed)   → NoSpinodal | DoneAtBracket
//
//   - BRACKET_SEARCH scans the series from the end where the phase is
//     present for a "left" point (ΔW > efac) and a "right" point (ΔW < efac
//     or phase absent), stepping mu by DMu up to NTry times when the series
//     has none.
//   - BRACKET_REFINE bisects until left satisfies efac < ΔW < VMax and right
//     satisfies VMin < ΔW < efac. Endpoints that collapse together first end
//     the search as NoSpinodal (or DoneAtBracket when AcceptBracket is set
//     and the left endpoint is classified).
//   - ROOT_SOLVE runs Brent on ΔW(x) − efac.
//
// Binodal (BinodalLocator.Find) runs Brent on Ω_A(x) − Ω_B(x) between two
// endpoints that differ in one mu component.
//
// Molfrac (MolfracLocator.Find) runs Brent on x_c(x) − target for a fixed
// phase id or for the stable phase.
//
// Every evaluation is a full rebuild through the Builder; a single search
// is sequential, independent searches (FindAll) run concurrently.
//
// Errors:
//
//   - ErrNoSpinodal, ErrNoBinodal wrap errkind.ErrNullResult.
//   - *BracketError, ErrRefineExhausted, ErrNotConverged, ErrNotBracketed
//     and ErrPhaseLost wrap errkind.ErrSearchExhausted; ErrMolfracResidual
//     wraps ErrNotConverged.
//   - ErrSeriesTooShort, ErrPhaseMissing, ErrNoStep wrap
//     errkind.ErrInvalidInput.
package stability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/phase"
)

// Sentinel errors.
var (
	// ErrNoSpinodal indicates that the phase pair has no spinodal.
	ErrNoSpinodal = fmt.Errorf("stability: no spinodal: %w", errkind.ErrNullResult)
	// ErrNoBinodal indicates that the phase pair has no binodal.
	ErrNoBinodal = fmt.Errorf("stability: no binodal: %w", errkind.ErrNullResult)

	// ErrBracketNotFound indicates that stepping mu NTry times found no bracket.
	ErrBracketNotFound = fmt.Errorf("stability: bracket not found: %w", errkind.ErrSearchExhausted)
	// ErrRefineExhausted indicates that bisection ran out of iterations.
	ErrRefineExhausted = fmt.Errorf("stability: bracket refinement did not finish: %w", errkind.ErrSearchExhausted)
	// ErrNotConverged indicates that the root solver ran out of iterations.
	ErrNotConverged = fmt.Errorf("stability: root solver did not converge: %w", errkind.ErrSearchExhausted)
	// ErrNotBracketed indicates f(a) and f(b) of equal sign.
	ErrNotBracketed = fmt.Errorf("stability: root not bracketed: %w", errkind.ErrSearchExhausted)
	// ErrPhaseLost indicates that a phase required by an objective vanished
	// at a trial point.
	ErrPhaseLost = fmt.Errorf("stability: phase vanished during solve: %w", errkind.ErrSearchExhausted)

	// ErrSeriesTooShort indicates a series with fewer than two points.
	ErrSeriesTooShort = fmt.Errorf("stability: series needs at least two points: %w", errkind.ErrInvalidInput)
	// ErrPhaseMissing indicates a target phase present nowhere in the series.
	ErrPhaseMissing = fmt.Errorf("stability: target phase not in series: %w", errkind.ErrInvalidInput)
	// ErrNoStep indicates that the search direction could not be inferred.
	ErrNoStep = fmt.Errorf("stability: cannot infer search direction: %w", errkind.ErrInvalidInput)
	// ErrBadOption indicates a nonsensical locator option.
	ErrBadOption = fmt.Errorf("stability: invalid option: %w", errkind.ErrInvalidInput)
)

// Builder builds the phase collection at mu. *phase.Builder implements it.
type Builder interface {
	Build(ctx context.Context, mu []float64) (*phase.Collection, error)
}

// Side names a bracket endpoint.
type Side string

// Bracket sides.
const (
	Left  Side = "left"
	Right Side = "right"
)

// BracketError reports an exhausted bracket search.
type BracketError struct {
	Side  Side      // endpoint that could not be found
	Tries int       // builds attempted
	Mu    []float64 // last mu tried
}

// Error implements error.
func (e *BracketError) Error() string {
	return fmt.Sprintf("stability: %s bracket not found after %d tries (last mu %v)", e.Side, e.Tries, e.Mu)
}

// Unwrap lets errors.Is match ErrBracketNotFound.
func (e *BracketError) Unwrap() error { return ErrBracketNotFound }

// Outcome is the terminal state of a search.
type Outcome int

const (
	// Solved means the root solver converged.
	Solved Outcome = iota
	// DoneAtBracket means the bracket collapsed on a classified left point.
	DoneAtBracket
	// NoSpinodal means the pair has no spinodal.
	NoSpinodal
	// NoBinodal means the pair has no binodal.
	NoBinodal
	// Failed means a budget ran out; the error carries details.
	Failed
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Solved:
		return "solved"
	case DoneAtBracket:
		return "done_at_bracket"
	case NoSpinodal:
		return "no_spinodal"
	case NoBinodal:
		return "no_binodal"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Diagnostics describe how a search ended.
type Diagnostics struct {
	Outcome           Outcome
	Component         int     // varying mu component
	Step              int     // +1 forward, −1 backward (spinodal only)
	BracketIterations int     // refinement iterations
	Iterations        int     // solver iterations
	Calls             int     // solver objective evaluations
	Builds            int     // collections built by the search
	Residual          float64 // objective at the returned point
	Lo, Hi            float64 // final interval along Component
}

// Result is the outcome of a search. Collection is nil unless the outcome
// is Solved or DoneAtBracket.
type Result struct {
	Collection *phase.Collection
	Diagnostics
}

// Found reports whether the search produced a collection.
func (r Result) Found() bool { return r.Collection != nil }

// logOutcome records a finished search.
func logOutcome(l *slog.Logger, kind string, d Diagnostics, err error) {
	attrs := []any{
		slog.String("outcome", d.Outcome.String()),
		slog.Int("builds", d.Builds),
		slog.Int("iterations", d.Iterations),
		slog.Float64("lo", d.Lo),
		slog.Float64("hi", d.Hi),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.Info("stability: "+kind, attrs...)
}
