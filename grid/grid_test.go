package grid_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lnpi/errkind"
	"github.com/katalvlaran/lnpi/grid"
)

//----------------------------------------------------------------------------//
// Shape and Neighborhood
//----------------------------------------------------------------------------//

// TestNewShape_Errors verifies that NewShape rejects empty and non-positive axes.
func TestNewShape_Errors(t *testing.T) {
	cases := []struct {
		name string
		dims []int
		err  error
	}{
		{"NoAxes", nil, grid.ErrEmptyShape},
		{"ZeroAxis", []int{3, 0}, grid.ErrBadShape},
		{"NegativeAxis", []int{-1}, grid.ErrBadShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := grid.NewShape(tc.dims...)
			if !errors.Is(err, tc.err) {
				t.Errorf("NewShape(%v) error = %v; want %v", tc.dims, err, tc.err)
			}
			if !errors.Is(err, errkind.ErrInvalidInput) {
				t.Errorf("NewShape(%v) error = %v; want InvalidInput category", tc.dims, err)
			}
		})
	}
}

func TestShape_IndexCoordRoundTrip(t *testing.T) {
	s := grid.MustShape(3, 4, 5)
	require.Equal(t, 60, s.Size())
	require.Equal(t, 3, s.NDim())
	require.Equal(t, 20, s.Stride(0))
	require.Equal(t, 1, s.Stride(2))

	coord := make([]int, 3)
	for i := 0; i < s.Size(); i++ {
		s.Coord(i, coord)
		require.True(t, s.InBounds(coord))
		require.Equal(t, i, s.Index(coord))
	}
	require.Equal(t, []int{2, 3, 4}, s.Coord(59, nil))
	require.False(t, s.InBounds([]int{3, 0, 0}))
	require.False(t, s.InBounds([]int{0, 0}))
	require.Equal(t, "(3, 4, 5)", s.String())
}

func TestNeighborhood_Len(t *testing.T) {
	cases := []struct {
		name string
		dims []int
		conn grid.Connectivity
		want int
	}{
		{"1D", []int{5}, grid.ConnFull, 2},
		{"2D/face", []int{4, 4}, grid.ConnFace, 4},
		{"2D/full", []int{4, 4}, grid.ConnFull, 8},
		{"3D/face", []int{3, 3, 3}, grid.ConnFace, 6},
		{"3D/edge", []int{3, 3, 3}, grid.Connectivity(2), 18},
		{"3D/full", []int{3, 3, 3}, grid.ConnFull, 26},
		{"3D/overRank", []int{3, 3, 3}, grid.Connectivity(7), 26},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nb := grid.MustShape(tc.dims...).Neighborhood(tc.conn)
			require.Equal(t, tc.want, nb.Len())
		})
	}
}

func TestNeighborhood_EachClipsAtBorder(t *testing.T) {
	s := grid.MustShape(3, 3)
	nb := s.Neighborhood(grid.ConnFull)

	var corner []int
	nb.Each(0, nil, func(n int) { corner = append(corner, n) })
	require.Equal(t, []int{1, 3, 4}, corner)

	var center []int
	nb.Each(4, nil, func(n int) { center = append(center, n) })
	require.Equal(t, []int{0, 1, 2, 3, 5, 6, 7, 8}, center)

	var face []int
	s.Neighborhood(grid.ConnFace).Each(4, nil, func(n int) { face = append(face, n) })
	require.Equal(t, []int{1, 3, 5, 7}, face)
}

//----------------------------------------------------------------------------//
// Construction
//----------------------------------------------------------------------------//

func TestNew_Errors(t *testing.T) {
	s := grid.MustShape(2, 2)
	mu := []float64{0, 0}
	st := grid.DefaultState()

	_, err := grid.New(s, []float64{1, 2, 3}, nil, mu, st)
	require.ErrorIs(t, err, grid.ErrShapeMismatch)

	_, err = grid.New(s, []float64{1, 2, 3, 4}, []bool{true}, mu, st)
	require.ErrorIs(t, err, grid.ErrShapeMismatch)

	_, err = grid.New(s, []float64{1, 2, 3, 4}, nil, []float64{0}, st)
	require.ErrorIs(t, err, grid.ErrMuLength)

	_, err = grid.New(s, []float64{1, 2, 3, 4}, nil, mu, grid.State{Volume: 0, Beta: 1})
	require.ErrorIs(t, err, grid.ErrBadState)

	_, err = grid.New(s, []float64{1, math.NaN(), 3, 4}, nil, mu, st)
	require.ErrorIs(t, err, grid.ErrNonFinite)

	// NaN at an excluded cell is fine.
	g, err := grid.New(s, []float64{1, math.NaN(), 3, 4}, []bool{false, true, false, false}, mu, st)
	require.NoError(t, err)
	require.Equal(t, 3, g.NumIncluded())
}

func TestFrom2D_NaNIsExcluded(t *testing.T) {
	g, err := grid.From2D([][]float64{
		{0, 1, math.NaN()},
		{2, 5, 3},
	}, []float64{0, 0}, grid.DefaultState())
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, g.Shape().Dims())
	require.Equal(t, []bool{false, false, true, false, false, false}, g.Excluded())

	idx, v, ok := g.Max()
	require.True(t, ok)
	require.Equal(t, 4, idx)
	require.Equal(t, 5.0, v)

	_, err = grid.From2D([][]float64{{1, 2}, {3}}, []float64{0, 0}, grid.DefaultState())
	require.ErrorIs(t, err, grid.ErrShapeMismatch)
}

//----------------------------------------------------------------------------//
// Transforms
//----------------------------------------------------------------------------//

func TestReweight(t *testing.T) {
	g, err := grid.New(grid.MustShape(2, 3), make([]float64, 6), nil, []float64{0, 0}, grid.DefaultState())
	require.NoError(t, err)

	r, err := g.Reweight([]float64{1, 2})
	require.NoError(t, err)
	// value(n0, n1) = n0*1 + n1*2
	require.Equal(t, []float64{0, 2, 4, 1, 3, 5}, r.Values())
	require.Equal(t, []float64{1, 2}, r.Mu())
	require.Same(t, g, r.Origin())
	require.Equal(t, []float64{1, 2}, r.DeltaMu())

	// Reweight of a reweighted grid keeps the lineage and round-trips.
	back, err := r.Reweight([]float64{0, 0})
	require.NoError(t, err)
	require.Same(t, g, back.Origin())
	require.InDeltaSlice(t, g.Values(), back.Values(), 1e-12)

	_, err = g.Reweight([]float64{1})
	require.ErrorIs(t, err, grid.ErrMuLength)
	_, err = g.Reweight([]float64{1, math.Inf(1)})
	require.ErrorIs(t, err, grid.ErrNonFinite)
}

func TestZeroMaxAndWithExcluded(t *testing.T) {
	g, err := grid.From2D([][]float64{{-3, 2}, {7, 1}}, []float64{0, 0}, grid.DefaultState())
	require.NoError(t, err)

	z := g.ZeroMax()
	require.Equal(t, []float64{-10, -5, 0, -6}, z.Values())
	require.Same(t, z, z.Origin(), "ZeroMax starts a new lineage")

	w, err := g.WithExcluded([]bool{false, false, true, false})
	require.NoError(t, err)
	_, v, ok := w.Max()
	require.True(t, ok)
	require.Equal(t, 2.0, v)
	require.False(t, g.IsExcluded(2), "receiver untouched")

	_, err = g.WithExcluded([]bool{true})
	require.ErrorIs(t, err, grid.ErrShapeMismatch)
}

func TestPad(t *testing.T) {
	nan := math.NaN()
	g, err := grid.From2D([][]float64{
		{1, 2},
		{3, nan},
	}, []float64{0, 0}, grid.DefaultState())
	require.NoError(t, err)
	p := g.Pad()
	// column fill gives 2, row fill gives 3
	require.InDelta(t, 2.5, p.Value(3), 1e-12)
	require.True(t, p.IsExcluded(3), "mask kept")

	// leading hole along every axis falls back to the included minimum
	g, err = grid.From2D([][]float64{{nan, 4, 6}}, []float64{0, 0}, grid.DefaultState())
	require.NoError(t, err)
	require.Equal(t, 4.0, g.Pad().Value(0))
}

func TestSmooth(t *testing.T) {
	const n = 21
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = 3
	}
	g, err := grid.New(grid.MustShape(n), vals, nil, []float64{0}, grid.DefaultState())
	require.NoError(t, err)
	s, err := g.Smooth(2, 4)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.InDelta(t, 3.0, s.Value(i), 1e-12)
	}

	spike := make([]float64, n)
	spike[n/2] = 1
	g, err = grid.New(grid.MustShape(n), spike, nil, []float64{0}, grid.DefaultState())
	require.NoError(t, err)
	s, err = g.Smooth(1, 4)
	require.NoError(t, err)
	idx, _, _ := s.Max()
	require.Equal(t, n/2, idx)
	for k := 1; k < 5; k++ {
		require.InDelta(t, s.Value(n/2-k), s.Value(n/2+k), 1e-15)
		require.Less(t, s.Value(n/2+k), s.Value(n/2+k-1))
	}

	_, err = g.Smooth(0, 4)
	require.ErrorIs(t, err, grid.ErrBadSigma)
}

//----------------------------------------------------------------------------//
// Components and distances
//----------------------------------------------------------------------------//

func TestComponents(t *testing.T) {
	s := grid.MustShape(3, 3)
	member := []bool{
		true, false, true,
		false, false, false,
		true, true, false,
	}
	comps := grid.Components(s.Neighborhood(grid.ConnFace), member)
	require.Equal(t, [][]int{{0}, {2}, {6, 7}}, comps)

	member[4] = true
	comps = grid.Components(s.Neighborhood(grid.ConnFull), member)
	require.Len(t, comps, 1)
	require.ElementsMatch(t, []int{0, 2, 4, 6, 7}, comps[0])
}

func TestEdgeDistances(t *testing.T) {
	g, err := grid.New(grid.MustShape(5), make([]float64, 5), nil, []float64{0}, grid.DefaultState())
	require.NoError(t, err)
	require.Equal(t, []int{5, 4, 3, 2, 1}, g.EdgeDistances())

	g, err = grid.New(grid.MustShape(5), make([]float64, 5), []bool{true, false, false, false, false}, []float64{0}, grid.DefaultState())
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 2, 1}, g.EdgeDistances())
}

//----------------------------------------------------------------------------//
// Tables and masks
//----------------------------------------------------------------------------//

func TestReadWriteTable(t *testing.T) {
	in := `# n0 n1 lnpi
0 0 1.5
0 1 2

1 0 nan
1 1 3.0
`
	g, err := grid.ReadTable(strings.NewReader(in), 2, []float64{0.5, -1}, grid.DefaultState())
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, g.Shape().Dims())
	require.Equal(t, []bool{false, false, true, false}, g.Excluded())
	require.Equal(t, 3.0, g.Value(3))

	var sb strings.Builder
	require.NoError(t, g.WriteTable(&sb))
	require.Equal(t, "0 0 1.5\n0 1 2\n1 1 3\n", sb.String())

	_, err = grid.ReadTable(strings.NewReader("0 1\n"), 2, []float64{0, 0}, grid.DefaultState())
	require.ErrorIs(t, err, grid.ErrBadTable)
	_, err = grid.ReadTable(strings.NewReader("-1 0 1\n"), 2, []float64{0, 0}, grid.DefaultState())
	require.ErrorIs(t, err, grid.ErrBadTable)
	_, err = grid.ReadTable(strings.NewReader("# empty\n"), 2, []float64{0, 0}, grid.DefaultState())
	require.ErrorIs(t, err, grid.ErrBadTable)
}

func TestConvert(t *testing.T) {
	m := []bool{true, false}
	require.Equal(t, []bool{false, true}, grid.Convert(m, grid.Excluded, grid.Included))
	require.Equal(t, m, grid.Convert(m, grid.Included, grid.Included))
	require.Equal(t, "included", grid.Included.String())
}
