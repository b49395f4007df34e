package kspace

import (
	"sort"

	"github.com/xingwangyong/seqeyes/pkg/sequence"
)

// gradientBreakpoints collects the waveform breakpoint times of one
// axis across all blocks, in seconds, rounded to the grid accuracy and
// clamped non-negative. A trapezoid contributes its four corner times,
// an arbitrary waveform one time per raster sample, and an extended
// trapezoid its explicit breakpoint times. Only these actual
// breakpoints become grid points; the grid is never densified beyond
// what the events themselves define.
func gradientBreakpoints(input Input, ch sequence.Channel) []float64 {
	var out []float64
	add := func(internalStart, offsetUs float64) {
		sec := internalToSeconds(internalStart, input.TimeFactor) + offsetUs*1e-6
		if !isFinite(sec) {
			return
		}
		out = append(out, clampNonNegative(roundToAccuracy(sec)))
	}
	rasterUs := input.GradientRasterUs
	if rasterUs <= 0.0 {
		rasterUs = defaultGradientRasterUs
	}
	for i := range input.Blocks {
		if i+1 >= len(input.BlockEdges) {
			break
		}
		grad := input.Blocks[i].Gradient(ch)
		if grad == nil {
			continue
		}
		edge := input.BlockEdges[i]
		switch grad.Kind {
		case sequence.GradientTrapezoid:
			t0 := grad.DelayUs
			t1 := t0 + grad.RampUpUs
			t2 := t1 + grad.FlatUs
			t3 := t2 + grad.RampDownUs
			add(edge, t0)
			add(edge, t1)
			add(edge, t2)
			add(edge, t3)
		case sequence.GradientArbitrary:
			for j := range grad.Samples {
				add(edge, grad.DelayUs+float64(j)*rasterUs)
			}
		case sequence.GradientExtTrap:
			n := len(grad.TimesUs)
			if n != len(grad.Values) {
				continue
			}
			for j := 0; j < n; j++ {
				add(edge, grad.DelayUs+grad.TimesUs[j])
			}
		}
	}
	return out
}

// gridSpec bundles the candidate sources merged into one time grid.
// All times are seconds, already rounded and clamped.
type gridSpec struct {
	breakpoints   [sequence.NumChannels][]float64
	excitations   []float64
	refocusings   []float64
	rfRasterSec   float64
	adcTimes      []float64
	totalDuration float64
}

// buildTimeGrid merges every breakpoint into one sorted, de-duplicated,
// non-negative time axis. Around each excitation center the two
// preceding RF raster instants are added, and one before each
// refocusing center, so integration always has a point immediately
// around a reset boundary. The grid always has at least two points.
func buildTimeGrid(spec gridSpec) []float64 {
	size := 4 + len(spec.adcTimes) + 3*len(spec.excitations) + 2*len(spec.refocusings)
	for _, bp := range spec.breakpoints {
		size += len(bp)
	}
	candidates := make([]float64, 0, size)
	add := func(sec float64) {
		if !isFinite(sec) {
			return
		}
		candidates = append(candidates, clampNonNegative(roundToAccuracy(sec)))
	}

	for _, bp := range spec.breakpoints {
		for _, sec := range bp {
			add(sec)
		}
	}
	add(0.0)
	add(spec.totalDuration)
	for _, sec := range spec.excitations {
		add(sec)
		if spec.rfRasterSec > 0.0 {
			add(sec - spec.rfRasterSec)
			add(sec - 2.0*spec.rfRasterSec)
		}
	}
	for _, sec := range spec.refocusings {
		add(sec)
		if spec.rfRasterSec > 0.0 {
			add(sec - spec.rfRasterSec)
		}
	}
	for _, sec := range spec.adcTimes {
		add(sec)
	}

	sort.Float64s(candidates)
	grid := candidates[:0]
	for _, v := range candidates {
		if len(grid) == 0 || v-grid[len(grid)-1] > tacc*0.5 {
			grid = append(grid, v)
		}
	}
	if len(grid) < 2 {
		// Degenerate event list: synthesize a second instant so the
		// integrator always has one segment.
		extra := tacc
		if len(grid) == 1 {
			extra = grid[0] + tacc
		}
		grid = append(grid, extra)
	}
	return grid
}
