package visualizer

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sine(freq float64, n int) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return samples
}

func TestComputeBandsSilenceIsZero(t *testing.T) {
	bands := ComputeBands(make([]float64, windowSize), hannWindow(windowSize))
	for i, b := range bands {
		if b != 0 {
			t.Errorf("bands[%d] = %v for silence, want 0", i, b)
		}
	}
}

func TestComputeBandsNormalizedToLoudest(t *testing.T) {
	bands := ComputeBands(sine(1000, windowSize), hannWindow(windowSize))

	maxVal := 0.0
	for _, b := range bands {
		if b < 0 || b > 1 {
			t.Fatalf("band value %v outside [0, 1]", b)
		}
		if b > maxVal {
			maxVal = b
		}
	}
	if maxVal != 1.0 {
		t.Errorf("loudest band = %v, want exactly 1.0", maxVal)
	}
}

func TestComputeBandsLowToneExcitesLowBands(t *testing.T) {
	bands := ComputeBands(sine(100, windowSize), hannWindow(windowSize))

	peak := 0
	for i, b := range bands {
		if b > bands[peak] {
			peak = i
		}
	}
	if peak > NumBands/2 {
		t.Errorf("100Hz tone peaked in band %d of %d, want the lower half", peak, NumBands)
	}
}

func TestSmoothConvergesToTarget(t *testing.T) {
	var display [NumBands]float64
	var targets [NumBands]float64
	targets[0] = 1.0

	for i := 0; i < 120; i++ {
		Smooth(&display, targets, 33*time.Millisecond)
	}
	if display[0] < 0.95 {
		t.Errorf("display[0] = %v after 4s of smoothing, want near 1.0", display[0])
	}
}

func TestSmoothCapsFallRate(t *testing.T) {
	var display [NumBands]float64
	display[0] = 1.0
	var targets [NumBands]float64

	dt := 33 * time.Millisecond
	Smooth(&display, targets, dt)

	maxFall := maxFallPerSecond * dt.Seconds()
	if fell := 1.0 - display[0]; fell > maxFall+1e-9 {
		t.Errorf("band fell %v in one frame, cap is %v", fell, maxFall)
	}
}

func TestPipelineProducesFrames(t *testing.T) {
	p := NewPipeline(testLogger())
	defer p.Close()

	in := p.SampleInput()
	for _, s := range sine(440, windowSize*2) {
		in <- s
	}

	deadline := time.After(5 * time.Second)
	for {
		if frame, ok := p.Latest(); ok {
			sum := 0.0
			for _, b := range frame {
				sum += b
			}
			if sum == 0 {
				t.Error("frame for a pure tone is all zeros")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("pipeline produced no frame")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipelineCloseIsIdempotent(t *testing.T) {
	p := NewPipeline(testLogger())
	p.Close()
	p.Close()
}
