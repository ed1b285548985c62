// SPDX-License-Identifier: MIT

package phase

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lnpi/errkind"
)

// ErrMultipleVarying indicates mu vectors that differ in more than one
// component where exactly one is required.
var ErrMultipleVarying = fmt.Errorf("phase: exactly one mu component may vary: %w", errkind.ErrInvalidInput)

// Sweep builds a collection at every mu with at most workers concurrent
// builds (workers < 1 uses GOMAXPROCS) and appends them to s in input
// order. The first error cancels the remaining builds and is returned;
// nothing is appended in that case.
func Sweep(ctx context.Context, b *Builder, s *Series, mus [][]float64, workers int) error {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]*Collection, len(mus))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, mu := range mus {
		i, mu := i, mu
		eg.Go(func() error {
			c, err := b.Build(ctx, mu)
			if err != nil {
				return fmt.Errorf("phase: sweep mu %v: %w", mu, err)
			}
			out[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	s.Append(out...)

	return nil
}

// Varying returns a function mapping x to a copy of mu with component
// index set to x.
func Varying(mu []float64, index int) (func(x float64) []float64, error) {
	if index < 0 || index >= len(mu) {
		return nil, fmt.Errorf("%w: component %d of %d", ErrBadComponent, index, len(mu))
	}
	base := append([]float64(nil), mu...)

	return func(x float64) []float64 {
		out := append([]float64(nil), base...)
		out[index] = x
		return out
	}, nil
}

// VaryingComponent returns the single component in which a and b differ.
func VaryingComponent(a, b []float64) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: lengths %d and %d", ErrMultipleVarying, len(a), len(b))
	}
	idx := -1
	for k := range a {
		if a[k] != b[k] {
			if idx >= 0 {
				return 0, fmt.Errorf("%w: components %d and %d", ErrMultipleVarying, idx, k)
			}
			idx = k
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: %v and %v are equal", ErrMultipleVarying, a, b)
	}

	return idx, nil
}

// Range returns n evenly spaced mu vectors from lo to hi along component
// index, the other components taken from mu.
func Range(mu []float64, index int, lo, hi float64, n int) ([][]float64, error) {
	at, err := Varying(mu, index)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("phase: range needs n >= 1, got %d: %w", n, errkind.ErrInvalidInput)
	}
	out := make([][]float64, n)
	for i := range out {
		x := lo
		if n > 1 {
			x = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		out[i] = at(x)
	}

	return out, nil
}
