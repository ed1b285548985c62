// SPDX-License-Identifier: MIT

package grid

// Components returns the connected groups of member cells (member[i] true)
// under nb. Components are ordered by their lowest flat index; cells inside
// a component are listed in breadth-first order starting from that index.
//
// Time:   O(size·k), k = nb.Len().
// Memory: O(size) for visited flags and output.
func Components(nb Neighborhood, member []bool) [][]int {
	seen := make([]bool, len(member))
	coord := make([]int, nb.shape.NDim())
	var comps [][]int

	for i0, in := range member {
		if !in || seen[i0] {
			continue
		}
		// BFS to collect component
		queue := []int{i0}
		seen[i0] = true
		for qi := 0; qi < len(queue); qi++ {
			nb.Each(queue[qi], coord, func(v int) {
				if member[v] && !seen[v] {
					seen[v] = true
					queue = append(queue, v)
				}
			})
		}
		comps = append(comps, queue)
	}

	return comps
}

// IncludedComponents returns the connected groups of included cells.
func (g *Grid) IncludedComponents(conn Connectivity) [][]int {
	return Components(g.shape.Neighborhood(conn), g.Mask(Included))
}

// EdgeDistances returns, for every cell, the chessboard distance to the
// nearest excluded cell, where the region just past the upper end of each
// axis also counts as excluded (the sampled window stops there). Excluded
// cells have distance 0. Cells that can reach no background get -1, which
// only happens when the shape has no upper face, i.e. never.
//
// The sweep is a multi-source BFS: excluded cells seed level 0, cells on an
// upper face seed level 1, then levels expand in FIFO order.
func (g *Grid) EdgeDistances() []int {
	size := g.shape.size
	dist := make([]int, size)
	for i := range dist {
		dist[i] = -1
	}
	queue := make([]int, 0, size)
	for i, e := range g.excluded {
		if e {
			dist[i] = 0
			queue = append(queue, i)
		}
	}
	coord := make([]int, g.NDim())
	for i, e := range g.excluded {
		if e {
			continue
		}
		g.shape.Coord(i, coord)
		for a, c := range coord {
			if c == g.shape.dims[a]-1 {
				dist[i] = 1
				queue = append(queue, i)
				break
			}
		}
	}

	nb := g.shape.Neighborhood(ConnFull)
	for qi := 0; qi < len(queue); qi++ {
		u := queue[qi]
		nb.Each(u, coord, func(v int) {
			if dist[v] < 0 {
				dist[v] = dist[u] + 1
				queue = append(queue, v)
			}
		})
	}

	return dist
}
