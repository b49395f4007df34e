package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/xingwangyong/seqeyes/internal/seqfile"
	"github.com/xingwangyong/seqeyes/pkg/config"
	"github.com/xingwangyong/seqeyes/pkg/kspace"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "YAML sequence description to compute the trajectory for")
	outputPath := flag.String("output", "trajectory.csv", "Output CSV for the dense trajectory")
	adcOutputPath := flag.String("adc-output", "", "Optional output CSV for the ADC-sampled trajectory")
	configPath := flag.String("config", "seqeyes.yaml", "Configuration file (defaults are used if missing)")
	b0 := flag.Float64("b0", 0, "Override B0 field strength in Tesla (0: use sequence/config value)")
	gamma := flag.Float64("gamma", 0, "Override gyromagnetic ratio in Hz/T (0: use config value)")
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	input, err := seqfile.Load(*inputPath)
	if err != nil {
		log.Fatalf("Failed to load sequence description: %v", err)
	}

	// Command line overrides win over config, config over the file.
	if *b0 > 0 {
		input.B0Tesla = *b0
	} else if input.B0Tesla == 0 {
		input.B0Tesla = cfg.Physics.B0Tesla
	}
	input.GammaHzPerTesla = cfg.Physics.GammaHzPerTesla
	if *gamma > 0 {
		input.GammaHzPerTesla = *gamma
	}
	input.Heuristics = kspace.Heuristics{
		ExcitationMaxFlipDeg:     cfg.Classification.ExcitationMaxFlipDeg,
		SaturationMinDurationSec: cfg.Classification.SaturationMinDurationMs * 1e-3,
		SaturationPPMMin:         cfg.Classification.SaturationPPMMin,
		SaturationPPMMax:         cfg.Classification.SaturationPPMMax,
		FallbackB0Tesla:          cfg.Physics.FallbackB0Tesla,
	}

	if cfg.Output.Verbose {
		fmt.Println("Step 1: Loaded sequence description...")
		fmt.Printf("- Blocks: %d\n", len(input.Blocks))
		fmt.Printf("- ADC samples: %d\n", len(input.ADCTimes))
	}

	start := time.Now()
	result := kspace.Compute(input)
	elapsed := time.Since(start)

	if cfg.Output.Verbose {
		fmt.Println("Step 2: Computed k-space trajectory...")
	}
	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	if err := writeTrajectoryCSV(*outputPath, result.T, result.Kx, result.Ky, result.Kz, cfg.Output.Precision); err != nil {
		log.Fatalf("Failed to write trajectory: %v", err)
	}
	if cfg.Output.Verbose {
		fmt.Printf("Step 3: Dense trajectory saved to: %s\n", *outputPath)
	}

	if *adcOutputPath != "" {
		if err := writeTrajectoryCSV(*adcOutputPath, result.TADC, result.KxADC, result.KyADC, result.KzADC, cfg.Output.Precision); err != nil {
			log.Fatalf("Failed to write ADC trajectory: %v", err)
		}
		if cfg.Output.Verbose {
			fmt.Printf("Step 4: ADC trajectory saved to: %s\n", *adcOutputPath)
		}
	}

	metrics := kspace.ComputeMetrics(result)
	fmt.Printf("\nTrajectory computed in %.3f ms\n\n", float64(elapsed.Microseconds())/1000.0)
	fmt.Printf("Trajectory summary:\n")
	fmt.Printf("===================\n")
	fmt.Printf("Grid points: %d\n", metrics.GridPoints)
	fmt.Printf("ADC samples: %d\n", metrics.ADCSamples)
	fmt.Printf("Peak |kx|: %.4f 1/m\n", metrics.PeakKx)
	fmt.Printf("Peak |ky|: %.4f 1/m\n", metrics.PeakKy)
	fmt.Printf("Peak |kz|: %.4f 1/m\n", metrics.PeakKz)
	fmt.Printf("Max radius: %.4f 1/m\n", metrics.MaxRadius)
	fmt.Printf("Mean radius: %.4f 1/m\n", metrics.MeanRadius)
	fmt.Printf("Excitations: %d, refocusings: %d\n",
		len(result.ExcitationTimes), len(result.RefocusingTimes))
	if result.RFUseGuessed {
		fmt.Println("RF use was guessed; the trajectory may be approximate.")
	}
}

// writeTrajectoryCSV writes parallel time/kx/ky/kz arrays. NaN samples
// (plot break markers) are written as empty fields.
func writeTrajectoryCSV(path string, t, kx, ky, kz []float64, precision int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer f.Close()

	if precision <= 0 {
		precision = 9
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"t_s", "kx_1_per_m", "ky_1_per_m", "kz_1_per_m"}); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	format := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', precision, 64)
	}
	for i := range t {
		record := []string{format(t[i]), format(kx[i]), format(ky[i]), format(kz[i])}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("error writing record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("error flushing output: %w", err)
	}
	return nil
}
