package kspace

import (
	"math"
	"testing"
)

// TestComputeMetrics verifies the extent summary and that NaN plot
// breaks are skipped rather than poisoning the statistics.
func TestComputeMetrics(t *testing.T) {
	res := Result{
		T:    []float64{0.0, 1e-3, 2e-3, 3e-3},
		Kx:   []float64{0.0, math.NaN(), -3.0, 4.0},
		Ky:   []float64{0.0, math.NaN(), 4.0, 0.0},
		Kz:   []float64{0.0, math.NaN(), 0.0, -3.0},
		TADC: []float64{1e-3, 2e-3},
	}
	m := ComputeMetrics(res)

	if m.GridPoints != 4 || m.ADCSamples != 2 {
		t.Errorf("Expected 4 grid points and 2 ADC samples, got %d / %d", m.GridPoints, m.ADCSamples)
	}
	if m.PeakKx != 4.0 || m.PeakKy != 4.0 || m.PeakKz != 3.0 {
		t.Errorf("Expected peaks 4/4/3, got %f/%f/%f", m.PeakKx, m.PeakKy, m.PeakKz)
	}
	if math.Abs(m.MaxRadius-5.0) > 1e-12 {
		t.Errorf("Expected max radius 5, got %f", m.MaxRadius)
	}
	// Radii over the finite samples: 0, 5, 5.
	if math.Abs(m.MeanRadius-10.0/3.0) > 1e-12 {
		t.Errorf("Expected mean radius 10/3, got %f", m.MeanRadius)
	}
	if math.IsNaN(m.MeanRadius) {
		t.Errorf("Expected NaN breaks to be skipped in the metrics")
	}
}

// TestComputeMetricsEmpty verifies zero metrics for an empty result.
func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(Result{})
	if m.GridPoints != 0 || m.MaxRadius != 0.0 || m.MeanRadius != 0.0 {
		t.Errorf("Expected zero metrics for an empty result, got %+v", m)
	}
}
