// Package kspace reconstructs the k-space trajectory of a decoded pulse
// sequence. Given the timed event blocks (gradients, RF pulses, ADC
// windows) it builds an irregular integration time grid from the actual
// event breakpoints, integrates the three-axis gradient with the
// midpoint rule, applies the excitation/refocusing reset rules, and
// interpolates the trajectory at the ADC sample instants.
//
// The computation is synchronous and purely functional: it holds no
// state across calls and is safe to invoke concurrently on distinct
// inputs.
package kspace

import (
	"math"
	"sort"

	"github.com/xingwangyong/seqeyes/pkg/sequence"
)

// Physics defaults used when the caller leaves the corresponding input
// fields at zero.
const (
	// DefaultGammaHzPerTesla is the gyromagnetic ratio of hydrogen.
	DefaultGammaHzPerTesla = 42.576e6

	// DefaultB0Tesla is assumed when the sequence does not define
	// the main field strength and RF-use classification needs it.
	DefaultB0Tesla = 3.0
)

// tacc is the grid time accuracy in seconds. All grid candidates are
// rounded to this accuracy, and two candidates closer than tacc/2 are
// considered the same instant.
const tacc = 1e-10

// Heuristics holds the empirically tuned constants of the RF-use
// classifier. The values are preserved from the established detection
// rules; changing them changes which pulses are treated as
// excitation, saturation or refocusing.
type Heuristics struct {
	// ExcitationMaxFlipDeg is the flip-angle threshold below which a
	// pulse is classified as excitation.
	ExcitationMaxFlipDeg float64

	// SaturationMinDurationSec is the minimum pulse duration for the
	// saturation test.
	SaturationMinDurationSec float64

	// SaturationPPMMin and SaturationPPMMax bound the off-resonance
	// band (in ppm) of a fat-saturation pulse.
	SaturationPPMMin float64
	SaturationPPMMax float64

	// FallbackB0Tesla is assumed when the sequence defines no B0 and
	// the classifier must convert a frequency offset to ppm.
	FallbackB0Tesla float64
}

// DefaultHeuristics returns the standard classifier constants.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		ExcitationMaxFlipDeg:     90.01,
		SaturationMinDurationSec: 6e-3,
		SaturationPPMMin:         -4.5,
		SaturationPPMMax:         -3.0,
		FallbackB0Tesla:          DefaultB0Tesla,
	}
}

// Input bundles everything the trajectory computation consumes. All of
// it is read-only for the duration of one Compute call.
type Input struct {
	// Blocks is the decoded block list in sequence order.
	Blocks []sequence.Block

	// BlockEdges holds the block boundary times in internal units,
	// one more entry than Blocks; the last entry is the total
	// sequence duration.
	BlockEdges []float64

	// TimeFactor converts microseconds to internal units
	// (internal = microseconds * TimeFactor). Zero disables the
	// conversion: internal values are taken as seconds.
	TimeFactor float64

	// SupportsRFUse reports whether the sequence version carries an
	// explicit RF use tag. When false every RF pulse is classified
	// heuristically and the result is flagged as guessed.
	SupportsRFUse bool

	// RFRasterUs and GradientRasterUs are the raster periods in
	// microseconds.
	RFRasterUs       float64
	GradientRasterUs float64

	// B0Tesla is the main field strength; zero means undefined.
	B0Tesla float64

	// GammaHzPerTesla is the gyromagnetic ratio; zero selects
	// DefaultGammaHzPerTesla.
	GammaHzPerTesla float64

	// ADCTimes lists the absolute ADC sample instants in internal
	// units.
	ADCTimes []float64

	// Heuristics tunes the RF-use classifier. The zero value selects
	// DefaultHeuristics.
	Heuristics Heuristics
}

// Result is the immutable product of one trajectory computation.
type Result struct {
	// T is the integration time grid in seconds.
	T []float64

	// Kx, Ky and Kz are the dense trajectory in 1/m, parallel to T.
	// The sample immediately before each excitation index is NaN on
	// all three axes so a plot shows a break instead of a line back
	// to the origin.
	Kx, Ky, Kz []float64

	// TADC is the ADC sample instants in seconds, rounded to the
	// grid accuracy.
	TADC []float64

	// KxADC, KyADC and KzADC are the trajectory interpolated at the
	// ADC instants, parallel to TADC.
	KxADC, KyADC, KzADC []float64

	// ExcitationTimes and RefocusingTimes are the detected pulse
	// centers in internal time units.
	ExcitationTimes []float64
	RefocusingTimes []float64

	// RFUsePerBlock holds the resolved use of each block's RF pulse,
	// RFUseUndefined for blocks without one. Parallel to the input
	// block list.
	RFUsePerBlock []sequence.RFUse

	// RFUseGuessed reports that at least one RF use was inferred
	// heuristically rather than read from the sequence.
	RFUseGuessed bool

	// Warnings collects the non-fatal messages of the computation,
	// in order of first occurrence. Empty when nothing was guessed
	// or assumed.
	Warnings []string
}

// rfUseGuessedWarning is surfaced whenever the sequence carries no RF
// use tags and the classifier had to infer them.
const rfUseGuessedWarning = "No RF use in seq file, probably seq file version is older than v1.5.0. " +
	"Now we have to guess RF use, the trajectory may not be accurate."

// internalToSeconds converts an internal-unit time to seconds.
// A zero factor means internal units already are seconds.
func internalToSeconds(value, timeFactor float64) float64 {
	if timeFactor == 0.0 {
		return value
	}
	return value / timeFactor * 1e-6
}

// roundToAccuracy snaps a time in seconds to the grid accuracy.
// Non-finite values pass through so callers can drop them.
func roundToAccuracy(sec float64) float64 {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return sec
	}
	return tacc * math.Round(sec/tacc)
}

func clampNonNegative(sec float64) float64 {
	if sec < 0.0 {
		return 0.0
	}
	return sec
}

// Compute reconstructs the trajectory for one decoded sequence.
// Degenerate input (no blocks, fewer than two block edges) yields an
// empty but valid Result; Compute never fails.
func Compute(input Input) Result {
	var result Result
	if len(input.Blocks) == 0 || len(input.BlockEdges) < 2 {
		return result
	}

	heur := input.Heuristics
	if heur == (Heuristics{}) {
		heur = DefaultHeuristics()
	}
	gamma := input.GammaHzPerTesla
	if gamma == 0.0 {
		gamma = DefaultGammaHzPerTesla
	}

	toSecRounded := func(internal float64) float64 {
		sec := internalToSeconds(internal, input.TimeFactor)
		return clampNonNegative(roundToAccuracy(sec))
	}

	// Characterize every RF pulse: resolved use, guessed flag and
	// center time. Excitation/refocusing centers become the reset
	// boundaries of the integration.
	cls := &classifier{
		heuristics: heur,
		b0Tesla:    input.B0Tesla,
		gamma:      gamma,
	}
	var excitationSec, refocusSec []float64
	guessedAny := false
	result.RFUsePerBlock = make([]sequence.RFUse, len(input.Blocks))
	for i := range input.Blocks {
		blk := &input.Blocks[i]
		if blk.RF == nil {
			result.RFUsePerBlock[i] = sequence.RFUseUndefined
			continue
		}
		use, guessed := cls.classify(blk.RF, input.SupportsRFUse)
		guessedAny = guessedAny || guessed
		if use == sequence.RFUseUndefined {
			use = sequence.RFUseUnknown
		}
		result.RFUsePerBlock[i] = use

		centerUs := rfCenterUs(blk.RF)
		internalTime := input.BlockEdges[i] + (blk.RF.DelayUs+centerUs)*input.TimeFactor
		switch use {
		case sequence.RFUseExcitation:
			result.ExcitationTimes = append(result.ExcitationTimes, internalTime)
			excitationSec = append(excitationSec, toSecRounded(internalTime))
		case sequence.RFUseRefocusing:
			result.RefocusingTimes = append(result.RefocusingTimes, internalTime)
			refocusSec = append(refocusSec, toSecRounded(internalTime))
		}
	}
	result.RFUseGuessed = guessedAny
	if guessedAny {
		result.Warnings = append(result.Warnings, rfUseGuessedWarning)
	}
	result.Warnings = append(result.Warnings, cls.warnings...)

	rfRasterSec := 0.0
	if input.RFRasterUs > 0.0 {
		rfRasterSec = input.RFRasterUs * 1e-6
	}
	totalDurationSec := toSecRounded(input.BlockEdges[len(input.BlockEdges)-1])

	adcSec := make([]float64, len(input.ADCTimes))
	for i, v := range input.ADCTimes {
		adcSec[i] = toSecRounded(v)
	}
	result.TADC = adcSec

	var breakpoints [sequence.NumChannels][]float64
	for ch := sequence.Channel(0); ch < sequence.NumChannels; ch++ {
		breakpoints[ch] = gradientBreakpoints(input, ch)
	}

	grid := buildTimeGrid(gridSpec{
		breakpoints:   breakpoints,
		excitations:   excitationSec,
		refocusings:   refocusSec,
		rfRasterSec:   rfRasterSec,
		adcTimes:      adcSec,
		totalDuration: totalDurationSec,
	})
	result.T = grid

	// Block lookup uses the same rounded edge times as the grid so
	// that a midpoint never straddles a boundary inconsistently.
	edgesSec := make([]float64, len(input.BlockEdges))
	for i, v := range input.BlockEdges {
		edgesSec[i] = toSecRounded(v)
	}
	field := func(sec float64) [3]float64 {
		return gradientAt(input, edgesSec, sec)
	}

	kx, ky, kz := integrate(grid, field)

	excitationIdx := gridIndices(grid, excitationSec)
	refocusIdx := gridIndices(grid, refocusSec)
	applyResets(kx, ky, kz, excitationIdx, refocusIdx)

	// ADC sampling interpolates the reset-adjusted data, before the
	// NaN plot breaks are punched in.
	result.KxADC = sampleAt(grid, kx, adcSec)
	result.KyADC = sampleAt(grid, ky, adcSec)
	result.KzADC = sampleAt(grid, kz, adcSec)

	result.Kx, result.Ky, result.Kz = withPlotBreaks(kx, ky, kz, excitationIdx)
	return result
}

// gradientAt evaluates the rotated three-axis gradient at an absolute
// time in seconds. Outside the sequence span it is zero.
func gradientAt(input Input, edgesSec []float64, sec float64) [3]float64 {
	if len(edgesSec) < 2 {
		return [3]float64{}
	}
	if sec < edgesSec[0] || sec >= edgesSec[len(edgesSec)-1] {
		return [3]float64{}
	}
	// Last edge not after sec.
	idx := sort.Search(len(edgesSec), func(i int) bool { return edgesSec[i] > sec }) - 1
	if idx < 0 || idx >= len(input.Blocks) {
		return [3]float64{}
	}
	blk := &input.Blocks[idx]
	return gradientVector(blk, sec, edgesSec[idx], input.GradientRasterUs)
}

// gridIndices maps rounded event times to exact grid indices, sorted
// and de-duplicated. Times that do not land on a grid point (for
// example after being clamped away) are dropped.
func gridIndices(grid, timesSec []float64) []int {
	var idx []int
	for _, sec := range timesSec {
		if i := indexForSeconds(grid, sec); i >= 0 {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	out := idx[:0]
	for i, v := range idx {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// indexForSeconds finds the grid index whose time matches sec within
// the grid accuracy, or -1.
func indexForSeconds(grid []float64, sec float64) int {
	target := roundToAccuracy(sec)
	i := sort.SearchFloat64s(grid, target-tacc*0.5)
	for ; i < len(grid); i++ {
		if math.Abs(grid[i]-target) <= tacc*0.5 {
			return i
		}
		if grid[i] > target+tacc*0.5 {
			break
		}
	}
	return -1
}
