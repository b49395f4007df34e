package kspace

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// gradientField evaluates the rotated three-axis gradient at an
// absolute time in seconds.
type gradientField func(sec float64) [3]float64

// integrate accumulates the gradient over the time grid with the
// midpoint rule: each segment contributes g(midpoint) * dt. Segments
// with non-positive dt (duplicate grid points) hold the previous value.
// The returned arrays are parallel to the grid and start at zero.
func integrate(grid []float64, field gradientField) (kx, ky, kz []float64) {
	kx = make([]float64, len(grid))
	ky = make([]float64, len(grid))
	kz = make([]float64, len(grid))
	for i := 1; i < len(grid); i++ {
		dt := grid[i] - grid[i-1]
		if dt <= 0.0 {
			kx[i] = kx[i-1]
			ky[i] = ky[i-1]
			kz[i] = kz[i-1]
			continue
		}
		g := field(grid[i-1] + 0.5*dt)
		kx[i] = kx[i-1] + g[0]*dt
		ky[i] = ky[i-1] + g[1]*dt
		kz[i] = kz[i-1] + g[2]*dt
	}
	return kx, ky, kz
}

// applyResets walks the reset boundaries in grid order and shifts the
// raw accumulated trajectory segment by segment. An excitation zeroes
// the trajectory at its boundary; a refocusing mirrors it about zero
// relative to its pre-pulse value (offset = -2k(b) - previousOffset).
// The final boundary sample receives the last offset as well.
func applyResets(kx, ky, kz []float64, excitationIdx, refocusIdx []int) {
	n := len(kx)
	if n == 0 {
		return
	}

	boundaries := make([]int, 0, len(excitationIdx)+len(refocusIdx)+2)
	boundaries = append(boundaries, 0)
	boundaries = append(boundaries, excitationIdx...)
	boundaries = append(boundaries, refocusIdx...)
	boundaries = append(boundaries, n-1)
	sort.Ints(boundaries)
	uniq := boundaries[:0]
	for i, v := range boundaries {
		if i == 0 || v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	boundaries = uniq

	dkX := -kx[0]
	dkY := -ky[0]
	dkZ := -kz[0]
	ptrExc, ptrRef := 0, 0
	for seg := 0; seg < len(boundaries)-1; seg++ {
		start := boundaries[seg]
		end := boundaries[seg+1]
		isExc := ptrExc < len(excitationIdx) && excitationIdx[ptrExc] == start
		isRef := ptrRef < len(refocusIdx) && refocusIdx[ptrRef] == start
		if isExc {
			dkX = -kx[start]
			dkY = -ky[start]
			dkZ = -kz[start]
			ptrExc++
		} else if isRef {
			dkX = -2.0*kx[start] - dkX
			dkY = -2.0*ky[start] - dkY
			dkZ = -2.0*kz[start] - dkZ
			ptrRef++
		}
		floats.AddConst(dkX, kx[start:end])
		floats.AddConst(dkY, ky[start:end])
		floats.AddConst(dkZ, kz[start:end])
	}
	last := boundaries[len(boundaries)-1]
	kx[last] += dkX
	ky[last] += dkY
	kz[last] += dkZ
}

// withPlotBreaks copies the dense trajectory and sets the sample
// immediately before each excitation index to NaN on all three axes,
// so a plotting consumer draws a break instead of a line back to the
// origin. The break index is tied to the integration grid here rather
// than in the renderer because it must align exactly with the reset.
func withPlotBreaks(kx, ky, kz []float64, excitationIdx []int) (px, py, pz []float64) {
	px = append([]float64(nil), kx...)
	py = append([]float64(nil), ky...)
	pz = append([]float64(nil), kz...)
	for _, idx := range excitationIdx {
		if idx > 0 {
			px[idx-1] = math.NaN()
			py[idx-1] = math.NaN()
			pz[idx-1] = math.NaN()
		}
	}
	return px, py, pz
}
