package kspace

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/xingwangyong/seqeyes/pkg/sequence"
)

// defaultGradientRasterUs stands in when the sequence defines no
// gradient raster; arbitrary waveforms need one to place their samples.
const defaultGradientRasterUs = 10.0

// gradientValue evaluates one channel of a block's gradient at an
// absolute time in seconds. Blocks without a gradient on the channel,
// times outside the waveform window and malformed shape data all
// evaluate to zero; waveform evaluation never aborts the integration.
func gradientValue(blk *sequence.Block, ch sequence.Channel, sec, blockStartSec, gradientRasterUs float64) float64 {
	grad := blk.Gradient(ch)
	if grad == nil {
		return 0.0
	}
	local := sec - (blockStartSec + grad.DelayUs*1e-6)
	if local < 0.0 {
		return 0.0
	}
	switch grad.Kind {
	case sequence.GradientTrapezoid:
		return trapezoidValue(grad, local)
	case sequence.GradientArbitrary:
		return arbitraryValue(grad, local, gradientRasterUs)
	case sequence.GradientExtTrap:
		return extTrapValue(grad, local)
	default:
		return 0.0
	}
}

func trapezoidValue(grad *sequence.GradientEvent, localSec float64) float64 {
	rampUp := grad.RampUpUs * 1e-6
	flat := grad.FlatUs * 1e-6
	rampDown := grad.RampDownUs * 1e-6
	total := rampUp + flat + rampDown
	if localSec > total || total <= 0.0 {
		return 0.0
	}
	amp := finiteOrZero(grad.Amplitude)
	if localSec <= rampUp && rampUp > 0.0 {
		return amp * (localSec / rampUp)
	}
	if localSec <= rampUp+flat {
		return amp
	}
	if rampDown > 0.0 {
		t := localSec - rampUp - flat
		if t <= rampDown {
			return amp * (1.0 - t/rampDown)
		}
	}
	return 0.0
}

func arbitraryValue(grad *sequence.GradientEvent, localSec, gradientRasterUs float64) float64 {
	n := len(grad.Samples)
	if n <= 0 {
		return 0.0
	}
	rasterUs := gradientRasterUs
	if rasterUs <= 0.0 {
		rasterUs = defaultGradientRasterUs
	}
	rasterSec := rasterUs * 1e-6
	amp := finiteOrZero(grad.Amplitude)
	if n == 1 {
		// A single sample covers exactly one raster period.
		if localSec <= rasterSec {
			return finiteOrZero(grad.Samples[0]) * amp
		}
		return 0.0
	}
	totalSec := rasterSec * float64(n-1)
	if localSec > totalSec {
		return 0.0
	}
	pos := localSec / rasterSec
	idx0 := int(math.Floor(pos))
	if idx0 >= n-1 {
		return finiteOrZero(grad.Samples[n-1]) * amp
	}
	frac := pos - float64(idx0)
	v0 := finiteOrZero(grad.Samples[idx0])
	v1 := finiteOrZero(grad.Samples[idx0+1])
	return (v0 + (v1-v0)*frac) * amp
}

func extTrapValue(grad *sequence.GradientEvent, localSec float64) float64 {
	times := grad.TimesUs
	values := grad.Values
	if len(times) == 0 || len(values) == 0 || len(times) != len(values) {
		return 0.0
	}
	amp := finiteOrZero(grad.Amplitude)
	localUs := localSec * 1e6
	if localUs <= times[0] {
		return finiteOrZero(values[0]) * amp
	}
	if localUs >= times[len(times)-1] {
		return finiteOrZero(values[len(values)-1]) * amp
	}
	idx1 := -1
	for j := 1; j < len(times); j++ {
		if localUs <= times[j] {
			idx1 = j
			break
		}
	}
	if idx1 <= 0 {
		return finiteOrZero(values[0]) * amp
	}
	idx0 := idx1 - 1
	t0 := times[idx0] * 1e-6
	t1 := times[idx1] * 1e-6
	span := t1 - t0
	if span <= 0.0 {
		return finiteOrZero(values[idx1]) * amp
	}
	alpha := (localSec - t0) / span
	if alpha < 0.0 {
		alpha = 0.0
	} else if alpha > 1.0 {
		alpha = 1.0
	}
	v0 := finiteOrZero(values[idx0])
	v1 := finiteOrZero(values[idx1])
	return (v0 + (v1-v0)*alpha) * amp
}

// gradientVector evaluates all three channels of a block at an absolute
// time and applies the block's rotation, if any. The rotation acts on
// the instantaneous vector once per evaluation point; it is never
// accumulated into the trajectory.
func gradientVector(blk *sequence.Block, sec, blockStartSec, gradientRasterUs float64) [3]float64 {
	v := [3]float64{
		gradientValue(blk, sequence.ChannelX, sec, blockStartSec, gradientRasterUs),
		gradientValue(blk, sequence.ChannelY, sec, blockStartSec, gradientRasterUs),
		gradientValue(blk, sequence.ChannelZ, sec, blockStartSec, gradientRasterUs),
	}
	if blk.Rotation == nil {
		return v
	}
	return rotateVector(*blk.Rotation, v)
}

// rotateVector applies a unit quaternion to a three-vector as
// q * v * conj(q). A quaternion with non-finite components leaves the
// vector unchanged.
func rotateVector(rot sequence.RotationEvent, v [3]float64) [3]float64 {
	if !isFinite(rot.W) || !isFinite(rot.X) || !isFinite(rot.Y) || !isFinite(rot.Z) {
		return v
	}
	q := quat.Number{Real: rot.W, Imag: rot.X, Jmag: rot.Y, Kmag: rot.Z}
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return [3]float64{r.Imag, r.Jmag, r.Kmag}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if isFinite(v) {
		return v
	}
	return 0.0
}
