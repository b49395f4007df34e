package kspace

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrajectoryMetrics summarizes the extent of a computed trajectory.
// The values are informational, for display and sanity checks; they do
// not feed back into the computation.
type TrajectoryMetrics struct {
	// PeakKx, PeakKy and PeakKz are the largest absolute excursions
	// per axis in 1/m.
	PeakKx float64
	PeakKy float64
	PeakKz float64

	// MaxRadius and MeanRadius describe |k| = sqrt(kx^2+ky^2+kz^2)
	// over the dense trajectory, in 1/m.
	MaxRadius  float64
	MeanRadius float64

	// GridPoints and ADCSamples count the dense grid points and the
	// acquired trajectory samples.
	GridPoints int
	ADCSamples int
}

// ComputeMetrics derives the extent summary from a Result. NaN plot
// breaks are skipped. An empty trajectory yields zero metrics.
func ComputeMetrics(res Result) TrajectoryMetrics {
	m := TrajectoryMetrics{
		GridPoints: len(res.T),
		ADCSamples: len(res.TADC),
	}

	n := len(res.T)
	for _, axis := range [][]float64{res.Kx, res.Ky, res.Kz} {
		if len(axis) < n {
			n = len(axis)
		}
	}
	radii := make([]float64, 0, n)
	var absX, absY, absZ []float64
	for i := 0; i < n; i++ {
		kx, ky, kz := res.Kx[i], res.Ky[i], res.Kz[i]
		if !isFinite(kx) || !isFinite(ky) || !isFinite(kz) {
			continue
		}
		absX = append(absX, math.Abs(kx))
		absY = append(absY, math.Abs(ky))
		absZ = append(absZ, math.Abs(kz))
		radii = append(radii, math.Sqrt(kx*kx+ky*ky+kz*kz))
	}
	if len(radii) == 0 {
		return m
	}
	m.PeakKx = floats.Max(absX)
	m.PeakKy = floats.Max(absY)
	m.PeakKz = floats.Max(absZ)
	m.MaxRadius = floats.Max(radii)
	m.MeanRadius = stat.Mean(radii, nil)
	return m
}
