package phase_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lnpi/internal/synth"
	"github.com/katalvlaran/lnpi/phase"
)

// ExampleBuilder_Build splits a two-well lnΠ into its phases and reads the
// barrier between them.
func ExampleBuilder_Build() {
	ref := synth.BumpGrid([]int{39}, 0,
		synth.Bump{Center: []float64{8}, Height: 10, Width: 2},
		synth.Bump{Center: []float64{30}, Height: 10, Width: 2},
	)
	b := phase.NewBuilder(ref, phase.WithNMax(2))

	c, err := b.Build(context.Background(), []float64{0})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("phases:", c.Len())
	fmt.Println("peaks:", c.Peaks())
	fmt.Printf("barrier: %.1f\n", c.DeltaW(0, 1))
	fmt.Printf("nave: %.1f %.1f\n", c.Phase(0).Nave()[0], c.Phase(1).Nave()[0])

	// Output:
	// phases: 2
	// peaks: [8 30]
	// barrier: 10.0
	// nave: 8.0 30.0
}
