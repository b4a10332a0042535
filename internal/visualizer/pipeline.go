// Package visualizer turns the raw sample tap from the audio backend into a
// small set of frequency-band magnitudes suitable for drawing. Heavy work
// (windowing, FFT, band folding) runs on a dedicated goroutine; the UI
// thread only drains a channel and applies frame-rate smoothing.
package visualizer

import (
	"math"
	"math/cmplx"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// NumBands is the number of frequency bands produced per frame.
	NumBands = 32

	// windowSize is the FFT length. Power of two.
	windowSize = 1024

	// hopSize gives 50% overlap between consecutive analysis windows.
	hopSize = windowSize / 2

	// minFreq anchors the lowest band edge in Hz.
	minFreq = 31.25

	// sampleRate assumed for band placement. The tap does not carry rate
	// information, so band edges are fixed against the common output rate.
	sampleRate = 48000.0

	// smoothingRate controls how fast displayed bands chase targets.
	smoothingRate = 12.0

	// maxFallPerSecond caps how fast a band may drop, in normalized units.
	maxFallPerSecond = 1.5
)

// Pipeline consumes mono samples and emits band frames. Samples arrive on
// the input channel from the audio goroutine; frames leave on a small
// buffered channel drained by the UI each tick.
type Pipeline struct {
	logger *logrus.Logger

	samples chan float64
	frames  chan [NumBands]float64
	quit    chan struct{}
	done    chan struct{}
}

// NewPipeline creates and starts the analysis goroutine.
func NewPipeline(logger *logrus.Logger) *Pipeline {
	p := &Pipeline{
		logger:  logger,
		samples: make(chan float64, 4096),
		frames:  make(chan [NumBands]float64, 8),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// SampleInput is the channel the audio tap writes to. Senders must never
// block on it; dropped samples only cost visual fidelity.
func (p *Pipeline) SampleInput() chan<- float64 {
	return p.samples
}

// Latest drains the frame channel and returns the newest frame, or false
// when no new frame arrived since the last call.
func (p *Pipeline) Latest() ([NumBands]float64, bool) {
	var frame [NumBands]float64
	got := false
	for {
		select {
		case frame = <-p.frames:
			got = true
		default:
			return frame, got
		}
	}
}

// Close stops the analysis goroutine and waits for it to exit. Idempotent.
func (p *Pipeline) Close() {
	select {
	case <-p.quit:
		return
	default:
	}
	close(p.quit)
	<-p.done
}

func (p *Pipeline) run() {
	defer close(p.done)

	window := hannWindow(windowSize)
	buf := make([]float64, 0, windowSize)

	for {
		select {
		case <-p.quit:
			return
		case s := <-p.samples:
			buf = append(buf, s)
			if len(buf) < windowSize {
				continue
			}
			frame := ComputeBands(buf, window)
			select {
			case p.frames <- frame:
			default:
				// UI is behind; drop the oldest frame for the new one.
				select {
				case <-p.frames:
				default:
				}
				select {
				case p.frames <- frame:
				default:
				}
			}
			copy(buf, buf[hopSize:])
			buf = buf[:windowSize-hopSize]
		}
	}
}

// ComputeBands windows the samples, runs the FFT, folds bin powers into
// logarithmically spaced bands, converts to decibels and normalizes so the
// loudest band is 1.0. A silent window yields all zeros.
func ComputeBands(samples, window []float64) [NumBands]float64 {
	input := make([]complex128, windowSize)
	for i := 0; i < windowSize; i++ {
		input[i] = complex(samples[i]*window[i], 0)
	}
	spectrum := fft(input)

	edges := bandEdges()

	var bands [NumBands]float64
	maxVal := 0.0
	for b := 0; b < NumBands; b++ {
		lo, hi := edges[b], edges[b+1]
		if hi <= lo {
			hi = lo + 1
		}
		power := 0.0
		for bin := lo; bin < hi && bin < windowSize/2; bin++ {
			power += real(spectrum[bin])*real(spectrum[bin]) +
				imag(spectrum[bin])*imag(spectrum[bin])
		}
		magnitude := math.Sqrt(power)
		db := 0.0
		if magnitude > 1e-10 {
			db = 20 * math.Log10(magnitude)
		}
		if db < 0 {
			db = 0
		}
		bands[b] = db
		if db > maxVal {
			maxVal = db
		}
	}

	if maxVal > 0 {
		for b := range bands {
			bands[b] /= maxVal
		}
	}
	return bands
}

// bandEdges maps NumBands+1 logarithmically spaced frequencies from minFreq
// to Nyquist onto FFT bin indices.
func bandEdges() [NumBands + 1]int {
	nyquist := sampleRate / 2
	binWidth := sampleRate / windowSize

	var edges [NumBands + 1]int
	ratio := math.Pow(nyquist/minFreq, 1.0/NumBands)
	freq := minFreq
	for i := 0; i <= NumBands; i++ {
		bin := int(freq / binWidth)
		if bin > windowSize/2 {
			bin = windowSize / 2
		}
		edges[i] = bin
		freq *= ratio
	}
	return edges
}

// Smooth advances displayed band values toward targets using exponential
// easing with a capped fall rate, so bars rise quickly and decay without
// flicker. dt is the frame delta.
func Smooth(display *[NumBands]float64, targets [NumBands]float64, dt time.Duration) {
	step := smoothingRate * dt.Seconds()
	alpha := 1 - math.Exp(-step)
	maxFall := maxFallPerSecond * dt.Seconds()

	for i := range display {
		next := display[i] + (targets[i]-display[i])*alpha
		if fall := display[i] - next; fall > maxFall {
			next = display[i] - maxFall
		}
		display[i] = next
	}
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// fft is an iterative radix-2 Cooley-Tukey transform. Input length must be a
// power of two; the input slice is reused as scratch.
func fft(x []complex128) []complex128 {
	n := len(x)
	if n <= 1 {
		return x
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wl := cmplx.Exp(complex(0, angle))
		for start := 0; start < n; start += length {
			w := complex(1, 0)
			for k := 0; k < length/2; k++ {
				even := x[start+k]
				odd := x[start+k+length/2] * w
				x[start+k] = even + odd
				x[start+k+length/2] = even - odd
				w *= wl
			}
		}
	}
	return x
}
