// SPDX-License-Identifier: MIT

package grid

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadTable parses whitespace-separated rows "n_0 … n_{ndim-1} lnpi".
//
// Blank lines and lines starting with '#' are skipped. The shape is the
// per-axis maximum count plus one; cells absent from the table, and cells
// whose lnpi is NaN, are excluded.
func ReadTable(r io.Reader, ndim int, mu []float64, state State) (*Grid, error) {
	if ndim <= 0 {
		return nil, ErrEmptyShape
	}

	type row struct {
		n []int
		v float64
	}
	var rows []row
	dims := make([]int, ndim)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != ndim+1 {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrBadTable, line, len(fields), ndim+1)
		}
		rw := row{n: make([]int, ndim)}
		for a := 0; a < ndim; a++ {
			n, err := strconv.Atoi(fields[a])
			if err != nil {
				// counts are sometimes written as floats ("3.0")
				f, ferr := strconv.ParseFloat(fields[a], 64)
				if ferr != nil || f != math.Trunc(f) {
					return nil, fmt.Errorf("%w: line %d: count %q", ErrBadTable, line, fields[a])
				}
				n = int(f)
			}
			if n < 0 {
				return nil, fmt.Errorf("%w: line %d: negative count %d", ErrBadTable, line, n)
			}
			rw.n[a] = n
			if n+1 > dims[a] {
				dims[a] = n + 1
			}
		}
		v, err := strconv.ParseFloat(fields[ndim], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: value %q", ErrBadTable, line, fields[ndim])
		}
		rw.v = v
		rows = append(rows, rw)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("grid: read table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrBadTable)
	}

	shape, err := NewShape(dims...)
	if err != nil {
		return nil, err
	}
	values := make([]float64, shape.size)
	excluded := make([]bool, shape.size)
	for i := range excluded {
		excluded[i] = true
	}
	for _, rw := range rows {
		i := shape.Index(rw.n)
		values[i] = rw.v
		excluded[i] = math.IsNaN(rw.v)
	}
	for i, e := range excluded {
		if e {
			values[i] = 0
		}
	}

	return New(shape, values, excluded, mu, state)
}

// WriteTable writes g in the format read by ReadTable; excluded cells are
// omitted.
func (g *Grid) WriteTable(w io.Writer) error {
	bw := bufio.NewWriter(w)
	coord := make([]int, g.NDim())
	for i, v := range g.values {
		if g.excluded[i] {
			continue
		}
		g.shape.Coord(i, coord)
		for _, c := range coord {
			bw.WriteString(strconv.Itoa(c))
			bw.WriteByte(' ')
		}
		bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		bw.WriteByte('\n')
	}

	return bw.Flush()
}
