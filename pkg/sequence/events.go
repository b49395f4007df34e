// Package sequence defines the in-memory representation of a decoded
// pulse sequence: a list of timed event blocks, each optionally carrying
// gradient, RF, ADC and rotation sub-events. The structures are plain
// value types filled by whatever loading layer decoded the sequence;
// nothing in this package reads files.
package sequence

// Channel identifies one of the three physical gradient axes.
type Channel int

const (
	ChannelX Channel = iota
	ChannelY
	ChannelZ

	// NumChannels is the number of gradient axes.
	NumChannels = 3
)

// String returns the conventional axis name for the channel.
func (c Channel) String() string {
	switch c {
	case ChannelX:
		return "x"
	case ChannelY:
		return "y"
	case ChannelZ:
		return "z"
	default:
		return "?"
	}
}

// GradientKind distinguishes the three gradient waveform shapes a block
// can carry on one axis.
type GradientKind int

const (
	// GradientTrapezoid is a ramp-up / flat-top / ramp-down pulse
	// described by its three durations and a peak amplitude.
	GradientTrapezoid GradientKind = iota

	// GradientArbitrary is a free-form waveform sampled on the
	// gradient raster, stored as normalized samples times an
	// amplitude scale.
	GradientArbitrary

	// GradientExtTrap is an extended trapezoid: explicit
	// (time, normalized value) breakpoints with linear segments
	// between them.
	GradientExtTrap
)

// GradientEvent describes one gradient waveform on a single axis.
// All durations are in microseconds, local to the owning block.
// Outside [Delay, Delay+duration] the waveform is exactly zero.
type GradientEvent struct {
	// Kind selects which of the shape fields below are meaningful.
	Kind GradientKind

	// Amplitude is the peak amplitude in Hz/m. Normalized shape
	// samples are scaled by this value.
	Amplitude float64

	// DelayUs is the delay from the block start to the waveform
	// start, in microseconds.
	DelayUs float64

	// RampUpUs, FlatUs and RampDownUs describe a trapezoid
	// (GradientTrapezoid only).
	RampUpUs   float64
	FlatUs     float64
	RampDownUs float64

	// Samples holds the normalized waveform for GradientArbitrary,
	// one value per gradient raster period.
	Samples []float64

	// TimesUs and Values hold the breakpoints for GradientExtTrap:
	// local times in microseconds and normalized values. The two
	// slices are parallel.
	TimesUs []float64
	Values  []float64
}

// RFUse classifies what an RF pulse does to the magnetization; it
// determines how the k-space trajectory treats the pulse.
type RFUse int

const (
	// RFUseUndefined marks sequence versions that carry no use tag.
	RFUseUndefined RFUse = iota
	RFUseExcitation
	RFUseRefocusing
	RFUseSaturation
	RFUseOther
	RFUseUnknown
)

// String returns the lower-case use name.
func (u RFUse) String() string {
	switch u {
	case RFUseExcitation:
		return "excitation"
	case RFUseRefocusing:
		return "refocusing"
	case RFUseSaturation:
		return "saturation"
	case RFUseOther:
		return "other"
	case RFUseUnknown:
		return "unknown"
	default:
		return "undefined"
	}
}

// RFEvent describes one RF pulse. The complex envelope is given as
// parallel normalized magnitude and phase sample arrays on a uniform
// dwell; the physical amplitude in Hz is Amplitude times the
// normalized magnitude.
type RFEvent struct {
	// Amplitude is the envelope scale in Hz.
	Amplitude float64

	// DelayUs is the delay from block start to the first sample,
	// in microseconds.
	DelayUs float64

	// CenterUs is the explicit pulse center in microseconds from
	// the first sample. A negative value means "not provided";
	// the center is then located from the envelope samples.
	CenterUs float64

	// DwellUs is the uniform sample spacing in microseconds.
	DwellUs float64

	// Magnitude and Phase are the normalized envelope samples;
	// Phase is in radians. The slices are parallel.
	Magnitude []float64
	Phase     []float64

	// FreqOffsetHz and PhaseOffsetRad are the absolute transmitter
	// offsets for the pulse.
	FreqOffsetHz   float64
	PhaseOffsetRad float64

	// FreqPPM and PhasePPM are field-relative offsets, populated
	// only by newer sequence versions. Zero means "not provided".
	FreqPPM  float64
	PhasePPM float64

	// Use is the explicit use tag when the sequence version carries
	// one, RFUseUndefined otherwise.
	Use RFUse
}

// ADCEvent describes one acquisition window.
type ADCEvent struct {
	// NumSamples is the number of acquired data points.
	NumSamples int

	// DwellUs is the sample spacing in microseconds.
	DwellUs float64

	// DelayUs is the delay from block start to the window start,
	// in microseconds.
	DelayUs float64

	// FreqOffsetHz and PhaseOffsetRad are the receiver offsets.
	FreqOffsetHz   float64
	PhaseOffsetRad float64
}

// RotationEvent rotates the three-axis gradient vector of its block.
// The quaternion is stored as (W, X, Y, Z) and is assumed unit-norm.
type RotationEvent struct {
	W, X, Y, Z float64
}

// Block is one timed segment of the sequence. Absent sub-events are
// nil. Blocks are read-only inputs to the trajectory computation; the
// engine never mutates them.
type Block struct {
	// Gradients holds an optional gradient event per axis, indexed
	// by Channel.
	Gradients [NumChannels]*GradientEvent

	// RF is the optional RF pulse of the block.
	RF *RFEvent

	// ADC is the optional acquisition window of the block.
	ADC *ADCEvent

	// Rotation is the optional gradient rotation of the block.
	Rotation *RotationEvent
}

// Gradient returns the gradient event on the given channel, or nil.
// Out-of-range channels return nil.
func (b *Block) Gradient(ch Channel) *GradientEvent {
	if ch < 0 || ch >= NumChannels {
		return nil
	}
	return b.Gradients[ch]
}
