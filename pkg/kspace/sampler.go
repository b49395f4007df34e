package kspace

import (
	"math"
	"sort"
)

// interpolateAt linearly interpolates the dense trajectory at an
// absolute time. Queries at or before the first grid point return the
// first sample and queries at or past the last return the last. A
// query matching a grid point within the grid accuracy returns that
// point's value unchanged, so ADC samples coinciding with a reset
// boundary land on the correct side of the reset.
func interpolateAt(grid, data []float64, sec float64) float64 {
	if len(grid) == 0 || len(data) == 0 {
		return 0.0
	}
	if len(grid) == 1 {
		return data[0]
	}
	i1 := sort.SearchFloat64s(grid, sec)
	if i1 == 0 {
		return data[0]
	}
	if i1 >= len(grid) {
		return data[len(data)-1]
	}
	if math.Abs(grid[i1]-sec) <= tacc*0.5 {
		return data[i1]
	}
	i0 := i1 - 1
	t0 := grid[i0]
	t1 := grid[i1]
	if t1 <= t0 {
		return data[i1]
	}
	alpha := (sec - t0) / (t1 - t0)
	return data[i0] + (data[i1]-data[i0])*alpha
}

// sampleAt interpolates one trajectory axis at every query time. The
// query times are expected to carry the same rounding as the grid.
func sampleAt(grid, data, timesSec []float64) []float64 {
	out := make([]float64, len(timesSec))
	for i, sec := range timesSec {
		out[i] = interpolateAt(grid, data, sec)
	}
	return out
}
