// Package seqfile loads YAML sequence descriptions used by the CLI and
// test fixtures. The format is this repository's own: a list of blocks
// with optional gradient/RF/ADC/rotation sub-events plus the timing
// constants the trajectory computation needs. It is not a decoder for
// any vendor sequence format.
package seqfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xingwangyong/seqeyes/pkg/kspace"
	"github.com/xingwangyong/seqeyes/pkg/sequence"
)

// Gradient describes one gradient waveform in the file.
type Gradient struct {
	// Kind is one of "trapezoid", "arbitrary" or "extTrapezoid".
	Kind       string    `yaml:"kind"`
	Amplitude  float64   `yaml:"amplitude"`
	DelayUs    float64   `yaml:"delayUs"`
	RampUpUs   float64   `yaml:"rampUpUs"`
	FlatUs     float64   `yaml:"flatUs"`
	RampDownUs float64   `yaml:"rampDownUs"`
	Samples    []float64 `yaml:"samples"`
	TimesUs    []float64 `yaml:"timesUs"`
	Values     []float64 `yaml:"values"`
}

// RF describes one RF pulse in the file.
type RF struct {
	Amplitude      float64   `yaml:"amplitude"`
	DelayUs        float64   `yaml:"delayUs"`
	CenterUs       *float64  `yaml:"centerUs"`
	DwellUs        float64   `yaml:"dwellUs"`
	Magnitude      []float64 `yaml:"magnitude"`
	Phase          []float64 `yaml:"phase"`
	FreqOffsetHz   float64   `yaml:"freqOffsetHz"`
	PhaseOffsetRad float64   `yaml:"phaseOffsetRad"`
	FreqPPM        float64   `yaml:"freqPpm"`
	PhasePPM       float64   `yaml:"phasePpm"`
	Use            string    `yaml:"use"`
}

// ADC describes one acquisition window in the file.
type ADC struct {
	NumSamples     int     `yaml:"numSamples"`
	DwellUs        float64 `yaml:"dwellUs"`
	DelayUs        float64 `yaml:"delayUs"`
	FreqOffsetHz   float64 `yaml:"freqOffsetHz"`
	PhaseOffsetRad float64 `yaml:"phaseOffsetRad"`
}

// Rotation describes a gradient rotation quaternion in the file.
type Rotation struct {
	W float64 `yaml:"w"`
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Block is one timed segment in the file.
type Block struct {
	DurationUs float64   `yaml:"durationUs"`
	Gx         *Gradient `yaml:"gx"`
	Gy         *Gradient `yaml:"gy"`
	Gz         *Gradient `yaml:"gz"`
	RF         *RF       `yaml:"rf"`
	ADC        *ADC      `yaml:"adc"`
	Rotation   *Rotation `yaml:"rotation"`
}

// File is the top-level YAML document.
type File struct {
	TimeFactor       float64 `yaml:"timeFactor"`
	SupportsRFUse    bool    `yaml:"supportsRfUse"`
	RFRasterUs       float64 `yaml:"rfRasterUs"`
	GradientRasterUs float64 `yaml:"gradientRasterUs"`
	B0Tesla          float64 `yaml:"b0Tesla"`
	Blocks           []Block `yaml:"blocks"`
}

// Load reads and converts a sequence description file.
func Load(path string) (kspace.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return kspace.Input{}, fmt.Errorf("error reading sequence file: %w", err)
	}
	return Parse(data)
}

// Parse converts a YAML document into a trajectory input. Block edges
// are accumulated from the block durations and ADC sample times are
// derived from the ADC events (one instant per sample, centered in its
// dwell period).
func Parse(data []byte) (kspace.Input, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return kspace.Input{}, fmt.Errorf("error parsing sequence file: %w", err)
	}

	tf := f.TimeFactor
	if tf == 0.0 {
		tf = 1.0
	}

	input := kspace.Input{
		TimeFactor:       tf,
		SupportsRFUse:    f.SupportsRFUse,
		RFRasterUs:       f.RFRasterUs,
		GradientRasterUs: f.GradientRasterUs,
		B0Tesla:          f.B0Tesla,
	}

	input.Blocks = make([]sequence.Block, len(f.Blocks))
	input.BlockEdges = make([]float64, len(f.Blocks)+1)
	edge := 0.0
	input.BlockEdges[0] = 0.0
	for i, fb := range f.Blocks {
		blk, err := convertBlock(fb)
		if err != nil {
			return kspace.Input{}, fmt.Errorf("block %d: %w", i, err)
		}
		input.Blocks[i] = blk

		if fb.ADC != nil {
			for s := 0; s < fb.ADC.NumSamples; s++ {
				offsetUs := fb.ADC.DelayUs + (float64(s)+0.5)*fb.ADC.DwellUs
				input.ADCTimes = append(input.ADCTimes, edge+offsetUs*tf)
			}
		}

		edge += fb.DurationUs * tf
		input.BlockEdges[i+1] = edge
	}
	return input, nil
}

func convertBlock(fb Block) (sequence.Block, error) {
	var blk sequence.Block
	for ch, g := range map[sequence.Channel]*Gradient{
		sequence.ChannelX: fb.Gx,
		sequence.ChannelY: fb.Gy,
		sequence.ChannelZ: fb.Gz,
	} {
		if g == nil {
			continue
		}
		ev, err := convertGradient(g)
		if err != nil {
			return blk, fmt.Errorf("g%s: %w", ch, err)
		}
		blk.Gradients[ch] = ev
	}
	if fb.RF != nil {
		ev, err := convertRF(fb.RF)
		if err != nil {
			return blk, fmt.Errorf("rf: %w", err)
		}
		blk.RF = ev
	}
	if fb.ADC != nil {
		blk.ADC = &sequence.ADCEvent{
			NumSamples:     fb.ADC.NumSamples,
			DwellUs:        fb.ADC.DwellUs,
			DelayUs:        fb.ADC.DelayUs,
			FreqOffsetHz:   fb.ADC.FreqOffsetHz,
			PhaseOffsetRad: fb.ADC.PhaseOffsetRad,
		}
	}
	if fb.Rotation != nil {
		blk.Rotation = &sequence.RotationEvent{
			W: fb.Rotation.W,
			X: fb.Rotation.X,
			Y: fb.Rotation.Y,
			Z: fb.Rotation.Z,
		}
	}
	return blk, nil
}

func convertGradient(g *Gradient) (*sequence.GradientEvent, error) {
	ev := &sequence.GradientEvent{
		Amplitude:  g.Amplitude,
		DelayUs:    g.DelayUs,
		RampUpUs:   g.RampUpUs,
		FlatUs:     g.FlatUs,
		RampDownUs: g.RampDownUs,
		Samples:    g.Samples,
		TimesUs:    g.TimesUs,
		Values:     g.Values,
	}
	switch strings.ToLower(g.Kind) {
	case "trapezoid", "trap", "":
		ev.Kind = sequence.GradientTrapezoid
	case "arbitrary", "arb":
		ev.Kind = sequence.GradientArbitrary
		if len(g.Samples) == 0 {
			return nil, fmt.Errorf("arbitrary gradient has no samples")
		}
	case "exttrapezoid", "exttrap", "extended":
		ev.Kind = sequence.GradientExtTrap
		if len(g.TimesUs) != len(g.Values) {
			return nil, fmt.Errorf("extended trapezoid has %d times but %d values",
				len(g.TimesUs), len(g.Values))
		}
	default:
		return nil, fmt.Errorf("unknown gradient kind %q", g.Kind)
	}
	return ev, nil
}

func convertRF(r *RF) (*sequence.RFEvent, error) {
	if len(r.Magnitude) != len(r.Phase) {
		return nil, fmt.Errorf("rf has %d magnitude samples but %d phase samples",
			len(r.Magnitude), len(r.Phase))
	}
	center := -1.0
	if r.CenterUs != nil {
		center = *r.CenterUs
	}
	use, err := parseUse(r.Use)
	if err != nil {
		return nil, err
	}
	return &sequence.RFEvent{
		Amplitude:      r.Amplitude,
		DelayUs:        r.DelayUs,
		CenterUs:       center,
		DwellUs:        r.DwellUs,
		Magnitude:      r.Magnitude,
		Phase:          r.Phase,
		FreqOffsetHz:   r.FreqOffsetHz,
		PhaseOffsetRad: r.PhaseOffsetRad,
		FreqPPM:        r.FreqPPM,
		PhasePPM:       r.PhasePPM,
		Use:            use,
	}, nil
}

func parseUse(s string) (sequence.RFUse, error) {
	switch strings.ToLower(s) {
	case "":
		return sequence.RFUseUndefined, nil
	case "excitation", "e":
		return sequence.RFUseExcitation, nil
	case "refocusing", "r":
		return sequence.RFUseRefocusing, nil
	case "saturation", "s":
		return sequence.RFUseSaturation, nil
	case "other", "o":
		return sequence.RFUseOther, nil
	case "unknown", "u":
		return sequence.RFUseUnknown, nil
	default:
		return sequence.RFUseUndefined, fmt.Errorf("unknown rf use %q", s)
	}
}
