// SPDX-License-Identifier: MIT

package stability

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/lnpi/internal/logging"
	"github.com/katalvlaran/lnpi/internal/telemetry"
	"github.com/katalvlaran/lnpi/phase"
)

// StablePhase selects, at every point, the phase of lowest grand potential
// instead of a fixed id.
const StablePhase = -1

// ErrMolfracResidual indicates a converged root whose mole fraction still
// misses the target by more than the tolerance.
var ErrMolfracResidual = fmt.Errorf("stability: molfrac residual above tolerance: %w", ErrNotConverged)

// MolfracOptions configures a MolfracLocator.
type MolfracOptions struct {
	DMu    float64 // initial extension step
	DFac   float64 // step growth factor when extending left or right
	NTry   int     // extension steps per side
	Tol    float64 // accepted |molfrac − target| at the root
	Solver SolverOptions
	Logger *slog.Logger
}

// MolfracOption configures a MolfracLocator.
type MolfracOption func(*MolfracOptions)

// DefaultMolfracOptions returns dmu 0.5, dfac 1, ntry 20, tol 1e-4.
func DefaultMolfracOptions() MolfracOptions {
	return MolfracOptions{
		DMu:    0.5,
		DFac:   1,
		NTry:   20,
		Tol:    1e-4,
		Solver: DefaultSolverOptions(),
		Logger: logging.Discard(),
	}
}

// WithMolfracStep sets the extension step and its growth factor. Panics
// unless both are > 0.
func WithMolfracStep(dmu, dfac float64) MolfracOption {
	if !(dmu > 0) || !(dfac > 0) {
		panic(ErrBadOption.Error())
	}
	return func(o *MolfracOptions) {
		o.DMu = dmu
		o.DFac = dfac
	}
}

// WithMolfracTries sets the extension tries per side.
func WithMolfracTries(ntry int) MolfracOption {
	return func(o *MolfracOptions) { o.NTry = ntry }
}

// WithMolfracTol sets the residual tolerance.
func WithMolfracTol(tol float64) MolfracOption {
	return func(o *MolfracOptions) { o.Tol = tol }
}

// WithMolfracSolver sets the root solver bounds.
func WithMolfracSolver(s SolverOptions) MolfracOption {
	return func(o *MolfracOptions) { o.Solver = s }
}

// WithMolfracLogger routes search records to l; nil keeps the discard logger.
func WithMolfracLogger(l *slog.Logger) MolfracOption {
	return func(o *MolfracOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// MolfracLocator finds the mu at which a phase reaches a target mole
// fraction. Mole fraction must increase with the varying mu component.
type MolfracLocator struct {
	b    Builder
	opts MolfracOptions
}

// NewMolfracLocator returns a locator rebuilding collections through b.
func NewMolfracLocator(b Builder, opts ...MolfracOption) *MolfracLocator {
	cfg := DefaultMolfracOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &MolfracLocator{b: b, opts: cfg}
}

// Find returns the collection at which the mole fraction of component in
// phase phaseID (or StablePhase) equals target, starting from s.
func (l *MolfracLocator) Find(ctx context.Context, s *phase.Series, target float64, phaseID, component int) (Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "stability.Molfrac",
		trace.WithAttributes(
			attribute.Int("stability.phase", phaseID),
			attribute.Float64("stability.target", target),
		))
	defer span.End()

	res, err := l.find(ctx, s, target, phaseID, component)
	if err != nil {
		res.Outcome = Failed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	telemetry.SearchOutcomes.WithLabelValues("molfrac", res.Outcome.String()).Inc()
	if res.Iterations > 0 {
		telemetry.SolverIterations.WithLabelValues("molfrac").Observe(float64(res.Iterations))
	}
	logOutcome(l.opts.Logger.With(slog.Int("phase", phaseID)), "molfrac", res.Diagnostics, err)

	return res, err
}

func (l *MolfracLocator) find(ctx context.Context, s *phase.Series, target float64, phaseID, component int) (Result, error) {
	o := l.opts
	cols := s.Collections()
	if len(cols) < 2 {
		return Result{}, fmt.Errorf("%w: %d points", ErrSeriesTooShort, len(cols))
	}
	comp, err := seriesComponent(cols)
	if err != nil {
		return Result{}, err
	}
	if component < 0 || component >= len(cols[0].Mu()) {
		return Result{}, fmt.Errorf("%w: component %d", phase.ErrBadComponent, component)
	}
	sort.SliceStable(cols, func(a, b int) bool { return cols[a].Mu()[comp] < cols[b].Mu()[comp] })
	at, err := phase.Varying(cols[0].Mu(), comp)
	if err != nil {
		return Result{}, err
	}
	diag := Diagnostics{Component: comp, Step: 1}
	get := func(c *phase.Collection) (float64, bool) { return molfracOf(c, phaseID, component) }
	build := func(x float64) (*phase.Collection, error) {
		diag.Builds++
		return l.b.Build(ctx, at(x))
	}

	// 1) Points of the series where the phase exists
	var xs, vs []float64
	for _, c := range cols {
		if v, ok := get(c); ok {
			xs = append(xs, c.Mu()[comp])
			vs = append(vs, v)
		}
	}

	// 2) Left: last point below target, else step down
	left := math.NaN()
	for k := len(vs) - 1; k >= 0; k-- {
		if vs[k] < target {
			left = xs[k]
			break
		}
	}
	if math.IsNaN(left) {
		x := cols[0].Mu()[comp]
		if len(xs) > 0 {
			x = xs[0]
		}
		d := o.DMu
		for try := 1; try <= o.NTry && math.IsNaN(left); try++ {
			x -= d
			d *= o.DFac
			c, err := build(x)
			if err != nil {
				return Result{Diagnostics: diag}, err
			}
			if v, ok := get(c); ok && v < target {
				left = x
			}
		}
		if math.IsNaN(left) {
			return Result{Diagnostics: diag}, &BracketError{Side: Left, Tries: o.NTry, Mu: at(x)}
		}
	}

	// 3) Right: first point above target, else step up, halving the step
	// whenever the phase vanishes
	right := math.NaN()
	for k := range vs {
		if vs[k] > target {
			right = xs[k]
			break
		}
	}
	if math.IsNaN(right) {
		x := cols[len(cols)-1].Mu()[comp]
		if len(xs) > 0 {
			x = xs[len(xs)-1]
		}
		d := o.DMu
		for try := 1; try <= o.NTry && math.IsNaN(right); try++ {
			x += d
			c, err := build(x)
			if err != nil {
				return Result{Diagnostics: diag}, err
			}
			v, ok := get(c)
			switch {
			case !ok:
				x -= d
				d *= 0.5
			case v > target:
				right = x
			default:
				d *= o.DFac
			}
		}
		if math.IsNaN(right) {
			return Result{Diagnostics: diag}, &BracketError{Side: Right, Tries: o.NTry, Mu: at(x)}
		}
	}
	diag.Lo, diag.Hi = left, right

	// 4) Root; an absent phase reads as +Inf so the solver backs off
	root, err := Solve(func(x float64) (float64, *phase.Collection, error) {
		c, err := build(x)
		if err != nil {
			return 0, nil, err
		}
		v, ok := get(c)
		if !ok {
			return math.Inf(1), c, nil
		}
		return v - target, c, nil
	}, left, right, o.Solver)
	diag.Iterations, diag.Calls = root.Iterations, root.Calls
	diag.Residual = root.F
	if err != nil {
		return Result{Diagnostics: diag}, err
	}
	if math.Abs(root.F) > o.Tol {
		return Result{Diagnostics: diag}, fmt.Errorf("%w: |%g| > %g at mu %v", ErrMolfracResidual, root.F, o.Tol, at(root.X))
	}
	diag.Outcome = Solved
	diag.Lo, diag.Hi = root.X, root.X

	return Result{Collection: root.Value, Diagnostics: diag}, nil
}

// molfracOf reads the mole fraction of component in phase id, or in the
// phase of lowest grand potential for StablePhase.
func molfracOf(c *phase.Collection, id, component int) (float64, bool) {
	if id != StablePhase {
		p, err := c.ByID(id)
		if err != nil {
			return 0, false
		}
		return p.MolFrac()[component], true
	}
	var best *phase.Phase
	for _, p := range c.Phases() {
		if best == nil || p.GrandPotential() < best.GrandPotential() {
			best = p
		}
	}
	if best == nil {
		return 0, false
	}

	return best.MolFrac()[component], true
}
