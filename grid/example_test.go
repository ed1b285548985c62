package grid_test

import (
	"fmt"

	"github.com/katalvlaran/lnpi/grid"
)

// ExampleGrid_Reweight shifts a flat two-species surface to a new chemical
// potential: every cell gains n_0·Δμ_0 + n_1·Δμ_1.
func ExampleGrid_Reweight() {
	g, _ := grid.From2D([][]float64{
		{0, 0, 0},
		{0, 0, 0},
	}, []float64{0, 0}, grid.DefaultState())

	r, _ := g.Reweight([]float64{1, 0.5})
	coord := make([]int, 2)
	for i, v := range r.Values() {
		r.Shape().Coord(i, coord)
		fmt.Printf("n=%v lnpi=%.1f\n", coord, v)
	}

	// Output:
	// n=[0 0] lnpi=0.0
	// n=[0 1] lnpi=0.5
	// n=[0 2] lnpi=1.0
	// n=[1 0] lnpi=1.0
	// n=[1 1] lnpi=1.5
	// n=[1 2] lnpi=2.0
}

// ExampleComponents groups the included cells of a grid that has a hole
// running through it.
func ExampleComponents() {
	s := grid.MustShape(3, 4)
	member := []bool{
		true, false, true, true,
		true, false, false, true,
		true, false, true, true,
	}
	for i, comp := range grid.Components(s.Neighborhood(grid.ConnFace), member) {
		fmt.Println(i, comp)
	}

	// Output:
	// 0 [0 4 8]
	// 1 [2 3 7 11 10]
}
