package stability_test

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/lnpi/internal/synth"
	"github.com/katalvlaran/lnpi/phase"
	"github.com/katalvlaran/lnpi/stability"
)

// ExampleSpinodalLocator_Find follows the left well of a two-well surface
// until its barrier drops to 1.
func ExampleSpinodalLocator_Find() {
	surface := synth.Tent{N: []int{0, 10, 20, 30}, V: []float64{0, 10, 4, 10}}
	wells := phase.TaggerFunc(func(c *phase.Collection) ([]int, error) {
		ids := make([]int, c.Len())
		for i, p := range c.Phases() {
			if p.LocalArgMax() >= 20 {
				ids[i] = 1
			}
		}
		return ids, nil
	})
	b := phase.NewBuilder(surface.Grid(0), phase.WithTagger(wells), phase.WithEfac(math.Inf(-1)))

	ctx := context.Background()
	s, _ := phase.NewSeries(0)
	for _, x := range []float64{0, 0.1, 0.2} {
		c, err := b.Build(ctx, []float64{x})
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		s.Append(c)
	}

	res, err := stability.NewSpinodalLocator(b).Find(ctx, s, 0)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("outcome:", res.Outcome)
	fmt.Printf("mu: %.4f\n", res.Collection.Mu()[0])
	fmt.Printf("barrier: %.4f\n", res.Collection.DeltaW(0))
	// Output:
	// outcome: solved
	// mu: 0.4889
	// barrier: 1.0000
}

// ExampleSolve finds √2 and keeps the payload of the last evaluation.
func ExampleSolve() {
	root, err := stability.Solve(func(x float64) (float64, string, error) {
		return x*x - 2, fmt.Sprintf("x=%.3f", x), nil
	}, 0, 2, stability.DefaultSolverOptions())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("%.6f %s\n", root.X, root.Value)
	// Output:
	// 1.414214 x=1.414
}
