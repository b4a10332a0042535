// Package audio defines the decode/output backend consumed by the playback
// engine and provides an implementation on top of gopxl/beep. The engine
// only ever talks to the interfaces here, so playback logic stays testable
// without a sound card.
package audio

import (
	"errors"
	"strings"
	"time"
)

// Sentinel errors for the backend taxonomy. Callers match with errors.Is.
var (
	// ErrDecode means the file could not be opened or decoded into a stream.
	ErrDecode = errors.New("audio: cannot decode stream")
	// ErrSeek means the stream does not support seeking to the requested position.
	ErrSeek = errors.New("audio: cannot seek to position")
	// ErrDevice means the output device could not be opened.
	ErrDevice = errors.New("audio: cannot open output device")
)

// supportedExtensions are the audio file extensions the application accepts,
// lowercase with leading dot.
var supportedExtensions = []string{".mp3", ".m4a", ".wav", ".flac", ".ogg", ".opus"}

// SupportedExtension reports whether ext names a playable audio format.
func SupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range supportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// SupportedExtensions returns the accepted extensions.
func SupportedExtensions() []string {
	return append([]string(nil), supportedExtensions...)
}

// Sink is one loaded audio stream on an output device. A sink plays exactly
// one track; loading the next track means closing the sink and opening a new
// one. All methods are synchronous and safe to call from the UI thread.
type Sink interface {
	Play()
	Pause()
	IsPaused() bool

	// SetVolume sets the playback volume in [0, 1].
	SetVolume(v float64)
	Volume() float64

	// Position reports the current playback position.
	Position() time.Duration

	// Seek moves playback to the given position. Returns ErrSeek if the
	// stream cannot seek there; playback state is unaffected on failure.
	Seek(pos time.Duration) error

	// IsEmpty reports whether the stream has played to completion.
	IsEmpty() bool

	// Close stops playback and releases the stream.
	Close() error
}

// Device is an opened audio output. It decodes files into sinks.
type Device interface {
	Name() string

	// Open decodes the file at path into a sink on this device, ready to
	// play but not yet playing. Returns ErrDecode on open/decode failure.
	Open(path string) (Sink, error)

	Close() error
}

// Driver enumerates and opens output devices.
type Driver interface {
	// OpenDevice opens the named output device. An empty name selects the
	// default device. Returns ErrDevice if the device cannot be opened.
	OpenDevice(name string) (Device, error)

	// DeviceNames lists the outputs available to OpenDevice.
	DeviceNames() []string
}
