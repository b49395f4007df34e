package kspace

import (
	"fmt"
	"math/cmplx"

	"github.com/xingwangyong/seqeyes/pkg/sequence"
)

// peakPlateauTolerance selects the envelope samples counted as part of
// the pulse peak: everything within 0.001% of the maximum magnitude.
// Taking the midpoint of the first and last such sample centers
// flat-top pulses correctly instead of picking an arbitrary argmax.
const peakPlateauTolerance = 0.99999

// rfCenterUs returns the pulse center in microseconds from the first
// envelope sample. An explicit non-negative center wins; otherwise the
// center is the midpoint of the peak plateau.
func rfCenterUs(rf *sequence.RFEvent) float64 {
	if rf.CenterUs >= 0.0 {
		return rf.CenterUs
	}
	n := len(rf.Magnitude)
	if n <= 0 {
		return 0.0
	}
	dwell := rf.DwellUs
	if dwell <= 0.0 {
		dwell = 1.0
	}

	peak := 0.0
	for _, m := range rf.Magnitude {
		if v := absFinite(m); v > peak {
			peak = v
		}
	}
	first, last := -1, -1
	for i, m := range rf.Magnitude {
		if absFinite(m) >= peak*peakPlateauTolerance {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0.0
	}
	return (float64(first) + float64(last)) * dwell / 2.0
}

// estimateFlipAngleDeg integrates the complex envelope with a left
// Riemann sum over the uniform dwell and converts the magnitude of the
// integral to degrees. The estimate is used only for classification.
func estimateFlipAngleDeg(rf *sequence.RFEvent) float64 {
	n := len(rf.Magnitude)
	if len(rf.Phase) < n {
		n = len(rf.Phase)
	}
	if n <= 1 {
		return 0.0
	}
	dwell := rf.DwellUs
	if dwell <= 0.0 {
		dwell = 1.0
	}
	dt := dwell * 1e-6
	scale := rf.Amplitude
	var accum complex128
	for i := 0; i < n-1; i++ {
		mag := rf.Magnitude[i]
		phase := rf.Phase[i]
		if !isFinite(mag) || !isFinite(phase) {
			continue
		}
		accum += cmplx.Rect(mag*scale, phase) * complex(dt, 0)
	}
	return cmplx.Abs(accum) * 360.0
}

// rfDurationSec returns the envelope duration implied by the sample
// count and dwell, zero when either is degenerate.
func rfDurationSec(rf *sequence.RFEvent) float64 {
	n := len(rf.Magnitude)
	if n <= 1 || rf.DwellUs <= 0.0 {
		return 0.0
	}
	return float64(n-1) * rf.DwellUs * 1e-6
}

// classifier resolves the use of RF pulses within one computation. It
// carries the warn-once state for the B0 fallback so repeated
// computations each warn exactly once and stay reentrant.
type classifier struct {
	heuristics Heuristics
	b0Tesla    float64
	gamma      float64
	warnedB0   bool
	warnings   []string
}

// classify returns the pulse use and whether it had to be guessed.
// An explicit tag (on sequence versions that provide one) passes
// through unchanged. Otherwise the flip-angle estimate separates
// excitation pulses, a long off-resonance pulse in the fat-saturation
// ppm band is tagged saturation, and everything else defaults to
// refocusing.
func (c *classifier) classify(rf *sequence.RFEvent, supportsUse bool) (sequence.RFUse, bool) {
	if supportsUse && rf.Use != sequence.RFUseUndefined && rf.Use != sequence.RFUseUnknown {
		return rf.Use, false
	}

	flip := estimateFlipAngleDeg(rf)
	if flip < c.heuristics.ExcitationMaxFlipDeg {
		return sequence.RFUseExcitation, true
	}

	b0 := c.b0Tesla
	if b0 <= 0.0 {
		b0 = c.heuristics.FallbackB0Tesla
		if !c.warnedB0 {
			c.warnings = append(c.warnings, fmt.Sprintf(
				"RF use guess, B0 not defined in sequence; assuming %.1f T for RF-use detection.", b0))
			c.warnedB0 = true
		}
	}
	freqPPM := rf.FreqPPM
	if absFinite(freqPPM) < 1e-12 && b0 > 0.0 && absFinite(c.gamma) > 0.0 {
		freqPPM = 1e6 * rf.FreqOffsetHz / (c.gamma * b0)
	}
	if rfDurationSec(rf) > c.heuristics.SaturationMinDurationSec &&
		freqPPM >= c.heuristics.SaturationPPMMin && freqPPM <= c.heuristics.SaturationPPMMax {
		return sequence.RFUseSaturation, true
	}
	return sequence.RFUseRefocusing, true
}

func absFinite(v float64) float64 {
	if !isFinite(v) {
		return 0.0
	}
	if v < 0.0 {
		return -v
	}
	return v
}
