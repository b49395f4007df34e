package kspace

import (
	"math"
	"testing"

	"github.com/xingwangyong/seqeyes/pkg/sequence"
)

// TestTimeGridMonotonic verifies strict monotonicity after merging
// overlapping candidate sources.
func TestTimeGridMonotonic(t *testing.T) {
	spec := gridSpec{
		excitations:   []float64{1e-3, 1e-3, 0.5e-3},
		refocusings:   []float64{2e-3},
		rfRasterSec:   1e-6,
		adcTimes:      []float64{1e-3, 1.5e-3, 1.5e-3},
		totalDuration: 3e-3,
	}
	spec.breakpoints[0] = []float64{0.0, 1e-3, 2e-3, 3e-3}
	spec.breakpoints[1] = []float64{0.0, 2.5e-3}

	grid := buildTimeGrid(spec)
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			t.Fatalf("Expected strictly increasing grid, got grid[%d]=%.12g <= grid[%d]=%.12g",
				i, grid[i], i-1, grid[i-1])
		}
	}
	if grid[0] < 0.0 {
		t.Errorf("Expected non-negative grid, got first point %g", grid[0])
	}
}

// TestTimeGridPulseNeighborhood verifies the extra points placed
// immediately before excitation and refocusing centers.
func TestTimeGridPulseNeighborhood(t *testing.T) {
	spec := gridSpec{
		excitations:   []float64{1e-3},
		refocusings:   []float64{2e-3},
		rfRasterSec:   1e-5,
		totalDuration: 3e-3,
	}
	grid := buildTimeGrid(spec)

	for _, want := range []float64{1e-3, 1e-3 - 1e-5, 1e-3 - 2e-5, 2e-3, 2e-3 - 1e-5} {
		if indexForSeconds(grid, want) < 0 {
			t.Errorf("Expected grid point at %g around pulse center, grid=%v", want, grid)
		}
	}
	// Refocusing gets one preceding raster point, not two.
	if indexForSeconds(grid, 2e-3-2e-5) >= 0 {
		t.Errorf("Expected no second raster point before a refocusing center")
	}
}

// TestTimeGridClampsNegativeCandidates verifies that raster offsets
// falling before time zero are clamped, not dropped below zero.
func TestTimeGridClampsNegativeCandidates(t *testing.T) {
	spec := gridSpec{
		excitations:   []float64{1e-6},
		rfRasterSec:   1e-5,
		totalDuration: 1e-3,
	}
	grid := buildTimeGrid(spec)
	if grid[0] != 0.0 {
		t.Errorf("Expected clamped first grid point 0, got %g", grid[0])
	}
	for _, v := range grid {
		if v < 0.0 {
			t.Errorf("Expected no negative grid point, got %g", v)
		}
	}
}

// TestTimeGridDegenerate verifies that a degenerate candidate set still
// yields at least two points.
func TestTimeGridDegenerate(t *testing.T) {
	grid := buildTimeGrid(gridSpec{})
	if len(grid) < 2 {
		t.Fatalf("Expected at least 2 grid points, got %d", len(grid))
	}
	if grid[1] <= grid[0] {
		t.Errorf("Expected synthesized second point past the first, got %v", grid)
	}
}

// TestGradientBreakpoints verifies the per-shape breakpoint times
// collected from blocks: four corners for a trapezoid, one per sample
// for an arbitrary waveform, the explicit times for an extended
// trapezoid.
func TestGradientBreakpoints(t *testing.T) {
	input := Input{
		TimeFactor:       1.0,
		GradientRasterUs: 10.0,
	}
	trap := sequence.Block{}
	trap.Gradients[sequence.ChannelX] = &sequence.GradientEvent{
		Kind:       sequence.GradientTrapezoid,
		DelayUs:    100.0,
		RampUpUs:   200.0,
		FlatUs:     300.0,
		RampDownUs: 200.0,
	}
	arb := sequence.Block{}
	arb.Gradients[sequence.ChannelX] = &sequence.GradientEvent{
		Kind:    sequence.GradientArbitrary,
		Samples: []float64{0.0, 1.0, 0.0},
	}
	ext := sequence.Block{}
	ext.Gradients[sequence.ChannelX] = &sequence.GradientEvent{
		Kind:    sequence.GradientExtTrap,
		TimesUs: []float64{0.0, 50.0, 400.0},
		Values:  []float64{0.0, 1.0, 0.0},
	}
	input.Blocks = []sequence.Block{trap, arb, ext}
	input.BlockEdges = []float64{0.0, 1000.0, 2000.0, 3000.0}

	got := gradientBreakpoints(input, sequence.ChannelX)
	want := []float64{
		100e-6, 300e-6, 600e-6, 800e-6, // trapezoid corners
		1000e-6, 1010e-6, 1020e-6, // arbitrary raster samples
		2000e-6, 2050e-6, 2400e-6, // extended trapezoid breakpoints
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d breakpoints, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tacc {
			t.Errorf("Expected breakpoint[%d]=%g, got %g", i, want[i], got[i])
		}
	}

	if got := gradientBreakpoints(input, sequence.ChannelY); len(got) != 0 {
		t.Errorf("Expected no breakpoints on an axis without gradients, got %v", got)
	}
}
