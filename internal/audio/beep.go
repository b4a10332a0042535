package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/sirupsen/logrus"
)

// DefaultDeviceName identifies the system default output.
const DefaultDeviceName = "default"

const speakerBufferLen = time.Second / 10

// The speaker is process-global and speaker.Init wipes its mixer, so only
// one sink ever has a live stream. Closing a sink that has already been
// replaced must not touch the mixer, or it would tear down its successor.
var (
	activeMu   sync.Mutex
	activeSink *beepSink
)

func registerActive(s *beepSink) {
	activeMu.Lock()
	activeSink = s
	activeMu.Unlock()
}

// BeepDriver implements Driver on top of the beep speaker. The speaker mixes
// on the default system output, so this driver exposes a single device; the
// Driver interface still lets the engine treat device selection uniformly.
type BeepDriver struct {
	logger    *logrus.Logger
	sampleTap chan<- float64 // installed on every opened sink, may be nil
}

// NewBeepDriver creates a driver. Samples of everything played are forwarded
// to sampleTap (mono mix) for visualization; pass nil to disable.
func NewBeepDriver(logger *logrus.Logger, sampleTap chan<- float64) *BeepDriver {
	return &BeepDriver{logger: logger, sampleTap: sampleTap}
}

func (d *BeepDriver) OpenDevice(name string) (Device, error) {
	if name != "" && name != DefaultDeviceName {
		return nil, fmt.Errorf("%w: %q", ErrDevice, name)
	}
	return &beepDevice{driver: d}, nil
}

func (d *BeepDriver) DeviceNames() []string {
	return []string{DefaultDeviceName}
}

type beepDevice struct {
	driver *BeepDriver
}

func (d *beepDevice) Name() string { return DefaultDeviceName }

// Open decodes the file and starts a paused pipeline on the speaker:
// decoder -> tap -> ctrl -> volume -> speaker, with a completion callback
// appended so IsEmpty can report track end without polling the streamer.
func (d *beepDevice) Open(path string) (Sink, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: unsupported container %q", ErrDecode, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(speakerBufferLen)); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	s := &beepSink{
		streamer: streamer,
		format:   format,
		vol:      1.0,
	}
	tap := NewTap(streamer, d.driver.sampleTap)
	s.ctrl = &beep.Ctrl{
		Streamer: beep.Seq(tap, beep.Callback(func() { s.done.Store(true) })),
		Paused:   true,
	}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2}

	speaker.Play(s.volume)
	registerActive(s)

	if d.driver.logger != nil {
		d.driver.logger.WithFields(logrus.Fields{
			"path":        path,
			"sample_rate": int(format.SampleRate),
			"channels":    format.NumChannels,
		}).Debug("Opened audio stream")
	}
	return s, nil
}

func (d *beepDevice) Close() error {
	// The speaker is process-global; nothing to release per device.
	return nil
}

type beepSink struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	vol      float64
	done     atomic.Bool
	closed   atomic.Bool
}

func (s *beepSink) Play() {
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
}

func (s *beepSink) Pause() {
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

func (s *beepSink) IsPaused() bool {
	speaker.Lock()
	paused := s.ctrl.Paused
	speaker.Unlock()
	return paused
}

func (s *beepSink) SetVolume(v float64) {
	v = math.Max(0, math.Min(1, v))
	speaker.Lock()
	s.vol = v
	if v == 0 {
		s.volume.Silent = true
	} else {
		s.volume.Silent = false
		// effects.Volume is logarithmic: 0 is unity gain with base 2.
		s.volume.Volume = math.Log2(v)
	}
	speaker.Unlock()
}

func (s *beepSink) Volume() float64 {
	speaker.Lock()
	v := s.vol
	speaker.Unlock()
	return v
}

func (s *beepSink) Position() time.Duration {
	speaker.Lock()
	pos := s.streamer.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos)
}

func (s *beepSink) Seek(pos time.Duration) error {
	// Once the beep.Seq has run the completion callback the mixer has moved
	// past this stream; repositioning the decoder cannot bring it back.
	if s.done.Load() {
		return fmt.Errorf("%w: stream already finished", ErrSeek)
	}
	n := s.format.SampleRate.N(pos)
	if n < 0 || n > s.streamer.Len() {
		return fmt.Errorf("%w: %v out of range", ErrSeek, pos)
	}
	speaker.Lock()
	err := s.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSeek, err)
	}
	return nil
}

func (s *beepSink) IsEmpty() bool {
	return s.done.Load()
}

func (s *beepSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	activeMu.Lock()
	if activeSink == s {
		activeSink = nil
		speaker.Clear()
	}
	activeMu.Unlock()
	return s.streamer.Close()
}
