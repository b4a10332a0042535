package audio

import "github.com/gopxl/beep/v2"

// Tap is a streamer wrapper that forwards a mono mix of the samples passing
// through it onto a channel for visualization. It sits in the audio pipeline
// between the decoder and the speaker, so it must never block: when the
// channel is full the sample is dropped.
type Tap struct {
	s   beep.Streamer
	out chan<- float64
}

// NewTap wraps a streamer, forwarding samples to out. A nil channel
// disables the tap.
func NewTap(s beep.Streamer, out chan<- float64) *Tap {
	return &Tap{s: s, out: out}
}

// Stream passes audio through while copying a mono mix to the tap channel.
func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	if t.out != nil {
		for i := 0; i < n; i++ {
			select {
			case t.out <- (samples[i][0] + samples[i][1]) / 2:
			default:
				// Visualization is best-effort; audio always wins.
			}
		}
	}
	return n, ok
}

// Err returns the underlying streamer's error.
func (t *Tap) Err() error {
	return t.s.Err()
}
