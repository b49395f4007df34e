package kspace

import (
	"math"
	"strings"
	"testing"

	"github.com/xingwangyong/seqeyes/pkg/sequence"
)

// constantRF builds a rectangular pulse of n samples with the given
// envelope scale and dwell, zero phase.
func constantRF(n int, amplitude, dwellUs float64) *sequence.RFEvent {
	mag := make([]float64, n)
	phase := make([]float64, n)
	for i := range mag {
		mag[i] = 1.0
	}
	return &sequence.RFEvent{
		Amplitude: amplitude,
		CenterUs:  -1.0,
		DwellUs:   dwellUs,
		Magnitude: mag,
		Phase:     phase,
	}
}

// TestRFCenterExplicit verifies that an explicit non-negative center
// is returned unchanged.
func TestRFCenterExplicit(t *testing.T) {
	rf := constantRF(11, 100.0, 10.0)
	rf.CenterUs = 42.0
	if got := rfCenterUs(rf); got != 42.0 {
		t.Errorf("Expected explicit center 42, got %f", got)
	}
}

// TestRFCenterPlateau verifies the plateau-midpoint rule: a flat-top
// pulse centers on the middle of its plateau, not an arbitrary argmax.
func TestRFCenterPlateau(t *testing.T) {
	// Rectangular envelope: the plateau spans all 11 samples,
	// so the center is at sample 5 -> 50us.
	rf := constantRF(11, 100.0, 10.0)
	if got := rfCenterUs(rf); math.Abs(got-50.0) > 1e-12 {
		t.Errorf("Expected rectangular pulse center 50us, got %f", got)
	}

	// Asymmetric plateau between samples 2 and 4 -> midpoint 3 -> 30us.
	rf = constantRF(7, 100.0, 10.0)
	rf.Magnitude = []float64{0.1, 0.5, 1.0, 1.0, 1.0, 0.5, 0.1}
	if got := rfCenterUs(rf); math.Abs(got-30.0) > 1e-12 {
		t.Errorf("Expected plateau center 30us, got %f", got)
	}

	// Empty envelope degrades to 0.
	rf = &sequence.RFEvent{CenterUs: -1.0}
	if got := rfCenterUs(rf); got != 0.0 {
		t.Errorf("Expected 0 center for empty envelope, got %f", got)
	}
}

// TestEstimateFlipAngle checks the left-Riemann-sum flip angle of a
// rectangular pulse: amplitude * (n-1) * dwell * 360.
func TestEstimateFlipAngle(t *testing.T) {
	// 250 Hz over 100 * 10us = 1ms -> 0.25 cycles -> 90 degrees.
	rf := constantRF(101, 250.0, 10.0)
	if got := estimateFlipAngleDeg(rf); math.Abs(got-90.0) > 1e-9 {
		t.Errorf("Expected flip angle 90, got %f", got)
	}

	// Constant phase must not change the magnitude of the integral.
	for i := range rf.Phase {
		rf.Phase[i] = math.Pi / 3
	}
	if got := estimateFlipAngleDeg(rf); math.Abs(got-90.0) > 1e-9 {
		t.Errorf("Expected flip angle 90 with constant phase, got %f", got)
	}

	// Non-finite samples are skipped, not propagated.
	rf.Magnitude[3] = math.NaN()
	if got := estimateFlipAngleDeg(rf); math.IsNaN(got) {
		t.Errorf("Expected finite flip angle with a NaN sample, got NaN")
	}

	// A single sample has no integration interval.
	if got := estimateFlipAngleDeg(constantRF(1, 250.0, 10.0)); got != 0.0 {
		t.Errorf("Expected 0 flip angle for a single sample, got %f", got)
	}
}

// TestClassifyExplicitTag verifies that an explicit use tag passes
// through untouched when the sequence version provides one.
func TestClassifyExplicitTag(t *testing.T) {
	cls := &classifier{heuristics: DefaultHeuristics(), gamma: DefaultGammaHzPerTesla, b0Tesla: 3.0}
	rf := constantRF(101, 300.0, 10.0)
	rf.Use = sequence.RFUseRefocusing

	use, guessed := cls.classify(rf, true)
	if use != sequence.RFUseRefocusing || guessed {
		t.Errorf("Expected explicit refocusing tag without guessing, got %v guessed=%v", use, guessed)
	}

	// Without version support the tag is ignored and the heuristic runs.
	_, guessed = cls.classify(rf, false)
	if !guessed {
		t.Errorf("Expected guessing when the version carries no use tag")
	}
}

// TestClassifyHeuristics covers the three heuristic outcomes:
// small flip -> excitation, long off-resonance pulse -> saturation,
// everything else -> refocusing.
func TestClassifyHeuristics(t *testing.T) {
	cls := &classifier{heuristics: DefaultHeuristics(), gamma: DefaultGammaHzPerTesla, b0Tesla: 3.0}

	// 90 degrees < 90.01 threshold
	use, guessed := cls.classify(constantRF(101, 250.0, 10.0), false)
	if use != sequence.RFUseExcitation || !guessed {
		t.Errorf("Expected guessed excitation for a 90-degree pulse, got %v guessed=%v", use, guessed)
	}

	// Large flip, short duration, on-resonance -> refocusing
	use, _ = cls.classify(constantRF(101, 500.0, 10.0), false)
	if use != sequence.RFUseRefocusing {
		t.Errorf("Expected refocusing for a short high-flip pulse, got %v", use)
	}

	// Large flip, 7ms duration, -3.45 ppm -> saturation
	sat := constantRF(701, 300.0, 10.0)
	sat.FreqPPM = -3.45
	use, _ = cls.classify(sat, false)
	if use != sequence.RFUseSaturation {
		t.Errorf("Expected saturation for a long -3.45ppm pulse, got %v", use)
	}

	// Same pulse outside the ppm band -> refocusing
	sat.FreqPPM = -6.0
	use, _ = cls.classify(sat, false)
	if use != sequence.RFUseRefocusing {
		t.Errorf("Expected refocusing outside the saturation ppm band, got %v", use)
	}
}

// TestClassifyPPMFromFrequencyOffset verifies the v1.4-style ppm
// derivation from the absolute frequency offset.
func TestClassifyPPMFromFrequencyOffset(t *testing.T) {
	cls := &classifier{heuristics: DefaultHeuristics(), gamma: DefaultGammaHzPerTesla, b0Tesla: 3.0}

	sat := constantRF(701, 300.0, 10.0)
	// -3.45 ppm at 3T: 1e6 * f / (gamma * B0) = -3.45
	sat.FreqOffsetHz = -3.45 * DefaultGammaHzPerTesla * 3.0 / 1e6
	use, _ := cls.classify(sat, false)
	if use != sequence.RFUseSaturation {
		t.Errorf("Expected saturation from derived ppm, got %v", use)
	}
}

// TestClassifyB0Fallback verifies that an undefined B0 falls back to
// 3.0T and warns exactly once per classifier, not once per pulse.
func TestClassifyB0Fallback(t *testing.T) {
	cls := &classifier{heuristics: DefaultHeuristics(), gamma: DefaultGammaHzPerTesla, b0Tesla: 0.0}

	sat := constantRF(701, 300.0, 10.0)
	sat.FreqOffsetHz = -3.45 * DefaultGammaHzPerTesla * 3.0 / 1e6

	use, _ := cls.classify(sat, false)
	if use != sequence.RFUseSaturation {
		t.Errorf("Expected saturation with assumed 3T field, got %v", use)
	}
	cls.classify(sat, false)
	cls.classify(sat, false)

	count := 0
	for _, w := range cls.warnings {
		if strings.Contains(w, "B0") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly one B0 fallback warning, got %d (%v)", count, cls.warnings)
	}
}
