// SPDX-License-Identifier: MIT

package stability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lnpi/internal/logging"
	"github.com/katalvlaran/lnpi/internal/telemetry"
	"github.com/katalvlaran/lnpi/phase"
)

// BinodalOptions configures a BinodalLocator.
type BinodalOptions struct {
	Solver SolverOptions
	Logger *slog.Logger
}

// BinodalOption configures a BinodalLocator.
type BinodalOption func(*BinodalOptions)

// WithBinodalSolver sets the root solver bounds.
func WithBinodalSolver(s SolverOptions) BinodalOption {
	return func(o *BinodalOptions) { o.Solver = s }
}

// WithBinodalLogger routes search records to l; nil keeps the discard logger.
func WithBinodalLogger(l *slog.Logger) BinodalOption {
	return func(o *BinodalOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// BinodalLocator finds the mu at which two phases have equal grand
// potential.
type BinodalLocator struct {
	b    Builder
	opts BinodalOptions
}

// NewBinodalLocator returns a locator rebuilding collections through b.
func NewBinodalLocator(b Builder, opts ...BinodalOption) *BinodalLocator {
	cfg := BinodalOptions{Solver: DefaultSolverOptions(), Logger: logging.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &BinodalLocator{b: b, opts: cfg}
}

// Find solves Ω_ids[0](x) = Ω_ids[1](x) between muA and muB, which must
// differ in exactly one component. A nil endpoint (a pair without a
// spinodal) yields ErrNoBinodal.
func (l *BinodalLocator) Find(ctx context.Context, ids [2]int, muA, muB []float64) (Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "stability.Binodal",
		trace.WithAttributes(attribute.IntSlice("stability.phases", ids[:])))
	defer span.End()

	res, err := l.find(ctx, ids, muA, muB)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoBinodal):
		res.Outcome = NoBinodal
	default:
		res.Outcome = Failed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	telemetry.SearchOutcomes.WithLabelValues("binodal", res.Outcome.String()).Inc()
	if res.Iterations > 0 {
		telemetry.SolverIterations.WithLabelValues("binodal").Observe(float64(res.Iterations))
	}
	span.SetAttributes(attribute.String("stability.outcome", res.Outcome.String()))
	logOutcome(l.opts.Logger.With(slog.Any("phases", ids)), "binodal", res.Diagnostics, err)

	return res, err
}

func (l *BinodalLocator) find(ctx context.Context, ids [2]int, muA, muB []float64) (Result, error) {
	if muA == nil || muB == nil {
		return Result{}, fmt.Errorf("%w: phases %v lack a spinodal endpoint", ErrNoBinodal, ids)
	}
	comp, err := phase.VaryingComponent(muA, muB)
	if err != nil {
		return Result{}, err
	}
	at, err := phase.Varying(muA, comp)
	if err != nil {
		return Result{}, err
	}
	diag := Diagnostics{Component: comp}
	a, b := muA[comp], muB[comp]
	if b < a {
		a, b = b, a
	}
	diag.Lo, diag.Hi = a, b

	root, err := Solve(func(x float64) (float64, *phase.Collection, error) {
		diag.Builds++
		c, err := l.b.Build(ctx, at(x))
		if err != nil {
			return 0, nil, err
		}
		f, err := omegaGap(c, ids)
		return f, c, err
	}, a, b, l.opts.Solver)
	diag.Iterations, diag.Calls = root.Iterations, root.Calls
	if err != nil {
		return Result{Diagnostics: diag}, err
	}
	diag.Outcome = Solved
	diag.Residual = root.F
	diag.Lo, diag.Hi = root.X, root.X

	return Result{Collection: root.Value, Diagnostics: diag}, nil
}

// omegaGap returns Ω_ids[0] − Ω_ids[1].
func omegaGap(c *phase.Collection, ids [2]int) (float64, error) {
	var om [2]float64
	for k, id := range ids {
		p, err := c.ByID(id)
		if err != nil {
			return 0, fmt.Errorf("%w: phase %d at mu %v", ErrPhaseLost, id, c.Mu())
		}
		om[k] = p.GrandPotential()
	}

	return om[0] - om[1], nil
}

// Pair is a binodal result for two phase ids.
type Pair struct {
	IDs [2]int
	Result
}

// FindAll solves every pair of ids (in combination order) concurrently,
// with endpoints taken from the spinodal collections of each id, and marks
// every binodal found in s. A pair missing an endpoint yields a NoBinodal
// result, not an error.
func (l *BinodalLocator) FindAll(ctx context.Context, s *phase.Series, spinodals map[int]*phase.Collection, ids []int) ([]Pair, error) {
	var out []Pair
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			out = append(out, Pair{IDs: [2]int{ids[i], ids[j]}})
		}
	}
	muOf := func(id int) []float64 {
		if c := spinodals[id]; c != nil {
			return c.Mu()
		}
		return nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	for k := range out {
		k := k
		eg.Go(func() error {
			p := out[k].IDs
			res, err := l.Find(ctx, p, muOf(p[0]), muOf(p[1]))
			if err != nil && !errors.Is(err, ErrNoBinodal) {
				return fmt.Errorf("stability: binodal of phases %v: %w", p, err)
			}
			out[k].Result = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, p := range out {
		if p.Found() {
			s.MarkStability(p.Collection, phase.Stability{Kind: phase.Binodal, Phases: p.IDs[:]})
		}
	}

	return out, nil
}
