// Package player implements the playback engine: the component that owns
// what is playing now, what plays next, and why. It drives the audio backend
// through the interfaces in internal/audio and keeps queue, history and
// playback flags consistent across user actions and backend failures.
package player

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"aria/internal/audio"
	"aria/pkg/models"

	"github.com/sirupsen/logrus"
)

// ErrNoHistory means there is no previously played track to go back to.
var ErrNoHistory = errors.New("player: no previous track")

// historyLimit bounds the play history; the oldest entry is evicted once it
// is exceeded. History is never persisted.
const historyLimit = 100

// Engine owns the play queue, play history, shuffle/repeat/mute flags and
// the live audio backend. It is owned by the UI thread; all operations are
// synchronous and mutate state in place. The backend (device + sink) is
// non-nil exactly while a track is loaded.
type Engine struct {
	logger *logrus.Logger
	driver audio.Driver

	deviceName string
	device     audio.Device
	sink       audio.Sink
	nowPlaying *models.Track

	queue   []models.Track
	history []models.Track

	repeat            bool
	shuffleRestore    []models.Track // pre-shuffle queue order, nil when shuffle is off
	muted             bool
	volumeBeforeMute  float64
	volume            float64
	pausedBeforeScrub *bool // nil when not scrubbing
}

// NewEngine creates an idle engine. The output device is opened lazily on
// the first load.
func NewEngine(driver audio.Driver, deviceName string, logger *logrus.Logger) *Engine {
	return &Engine{
		logger:     logger,
		driver:     driver,
		deviceName: deviceName,
		volume:     1.0,
	}
}

// NowPlaying returns a copy of the current track, or nil when idle.
func (e *Engine) NowPlaying() *models.Track {
	if e.nowPlaying == nil {
		return nil
	}
	t := *e.nowPlaying
	return &t
}

// Queue returns a copy of the pending tracks.
func (e *Engine) Queue() []models.Track {
	return append([]models.Track(nil), e.queue...)
}

// History returns a copy of the previously played tracks, oldest first.
func (e *Engine) History() []models.Track {
	return append([]models.Track(nil), e.history...)
}

// LoadAndPlay stops any current playback and starts the given track. On
// open or decode failure the engine ends up idle, nothing is pushed to
// history, and the error is returned. On success the previously playing
// track (if any) is pushed onto history.
func (e *Engine) LoadAndPlay(track models.Track) error {
	return e.load(track, true)
}

func (e *Engine) load(track models.Track, pushPrevious bool) error {
	previous := e.nowPlaying
	e.dropSink()
	e.nowPlaying = nil

	if e.device == nil {
		device, err := e.driver.OpenDevice(e.deviceName)
		if err != nil {
			return err
		}
		e.device = device
	}

	sink, err := e.device.Open(track.Path)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"file_path": track.Path,
			"error":     err.Error(),
		}).Error("Failed to load track")
		return err
	}
	sink.SetVolume(e.effectiveVolume())
	sink.Play()
	e.sink = sink

	if pushPrevious && previous != nil {
		e.pushHistory(*previous)
	}
	t := track
	e.nowPlaying = &t

	e.logger.WithFields(logrus.Fields{
		"title":  track.Title,
		"artist": track.Artist,
	}).Info("Now playing")
	return nil
}

func (e *Engine) pushHistory(track models.Track) {
	e.history = append(e.history, track)
	if len(e.history) > historyLimit {
		e.history = e.history[len(e.history)-historyLimit:]
	}
}

func (e *Engine) dropSink() {
	if e.sink != nil {
		if err := e.sink.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close audio sink")
		}
		e.sink = nil
	}
}

// Stop tears down playback and returns the engine to idle. Queue and
// history are untouched.
func (e *Engine) Stop() {
	e.dropSink()
	e.nowPlaying = nil
}

// PlayOrPause toggles the sink's pause state. No-op when idle.
func (e *Engine) PlayOrPause() {
	if e.sink == nil {
		return
	}
	if e.sink.IsPaused() {
		e.sink.Play()
	} else {
		e.sink.Pause()
	}
}

// Resume unpauses playback. No-op when idle.
func (e *Engine) Resume() {
	if e.sink != nil {
		e.sink.Play()
	}
}

// IsPaused reports whether playback is paused. False when idle.
func (e *Engine) IsPaused() bool {
	return e.sink != nil && e.sink.IsPaused()
}

// TrackFinished reports whether the loaded track has played to completion.
// The coordinator polls this once per tick and calls Advance; an idle
// engine never reports finished, which makes redundant polls harmless.
func (e *Engine) TrackFinished() bool {
	return e.sink != nil && e.sink.IsEmpty()
}

// Enqueue appends the track to the back of the queue.
func (e *Engine) Enqueue(track models.Track) {
	e.queue = append(e.queue, track)
}

// EnqueueNext inserts the track at the front of the queue.
func (e *Engine) EnqueueNext(track models.Track) {
	e.queue = append([]models.Track{track}, e.queue...)
}

// RemoveFromQueue removes the track at index. Out-of-range is a no-op.
func (e *Engine) RemoveFromQueue(index int) {
	if index < 0 || index >= len(e.queue) {
		return
	}
	e.queue = append(e.queue[:index], e.queue[index+1:]...)
}

// MoveInQueue moves the track at from to position to.
func (e *Engine) MoveInQueue(from, to int) {
	if from < 0 || from >= len(e.queue) || to < 0 || to >= len(e.queue) {
		return
	}
	track := e.queue[from]
	e.queue = append(e.queue[:from], e.queue[from+1:]...)
	rest := append([]models.Track(nil), e.queue[to:]...)
	e.queue = append(append(e.queue[:to:to], track), rest...)
}

// ClearQueue drops the queue, history, shuffle snapshot and repeat flag.
func (e *Engine) ClearQueue() {
	e.queue = nil
	e.history = nil
	e.shuffleRestore = nil
	e.repeat = false
}

// Advance moves playback to the next track. It is the only path that
// consumes the queue front: when the queue is non-empty the front is popped
// and loaded; with an empty queue and repeat enabled the current track is
// replayed; otherwise the engine goes idle. Called once per completion by
// the coordinator and by manual skip.
func (e *Engine) Advance() error {
	if len(e.queue) > 0 {
		next := e.queue[0]
		e.queue = e.queue[1:]
		return e.load(next, true)
	}

	if e.repeat && e.nowPlaying != nil {
		// Replaying the same track does not touch history.
		return e.load(*e.nowPlaying, false)
	}

	e.dropSink()
	e.nowPlaying = nil
	return nil
}

// PlayPrevious pops the most recent history entry and loads it. The policy
// of previous-versus-restart lives at the call site; this is the primitive.
func (e *Engine) PlayPrevious() error {
	if len(e.history) == 0 {
		return ErrNoHistory
	}
	previous := e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	return e.load(previous, false)
}

// Seek moves playback to pos. Failure leaves engine state untouched.
func (e *Engine) Seek(pos time.Duration) error {
	if e.sink == nil {
		return nil
	}
	return e.sink.Seek(pos)
}

// Position reports the current playback position, zero when idle.
func (e *Engine) Position() time.Duration {
	if e.sink == nil {
		return 0
	}
	return e.sink.Position()
}

// Repeat reports the repeat flag.
func (e *Engine) Repeat() bool { return e.repeat }

// SetRepeat sets the repeat flag.
func (e *Engine) SetRepeat(repeat bool) { e.repeat = repeat }

// Volume returns the user-facing volume, which is retained while muted.
func (e *Engine) Volume() float64 { return e.volume }

// IsMuted reports the muted flag.
func (e *Engine) IsMuted() bool { return e.muted }

func (e *Engine) effectiveVolume() float64 {
	if e.muted {
		return 0
	}
	return e.volume
}

func (e *Engine) applyVolume() {
	if e.sink != nil {
		e.sink.SetVolume(e.effectiveVolume())
	}
}

// Mute silences output, remembering the volume for Unmute.
func (e *Engine) Mute() {
	if e.muted {
		return
	}
	e.muted = true
	e.volumeBeforeMute = e.volume
	e.applyVolume()
}

// Unmute restores the volume in effect when Mute was called.
func (e *Engine) Unmute() {
	if !e.muted {
		return
	}
	e.muted = false
	e.volume = e.volumeBeforeMute
	e.applyVolume()
}

// ToggleMute flips between Mute and Unmute.
func (e *Engine) ToggleMute() {
	if e.muted {
		e.Unmute()
	} else {
		e.Mute()
	}
}

// SetVolume sets the volume, clamped to [0, 1]. Setting the volume manually
// clears the muted flag: the explicit choice wins over the remembered one.
func (e *Engine) SetVolume(v float64) {
	e.volume = math.Max(0, math.Min(1, v))
	e.muted = false
	e.applyVolume()
}

// AdjustVolumeBy shifts the volume by delta, clamped to [0, 1].
func (e *Engine) AdjustVolumeBy(delta float64) {
	e.SetVolume(e.volume + delta)
}

// ShuffleActive reports whether the queue is currently shuffled.
func (e *Engine) ShuffleActive() bool { return e.shuffleRestore != nil }

// ToggleShuffle randomizes the queue order, keeping a snapshot of the
// original order; toggling again restores the snapshot. No track is ever
// dropped either way.
func (e *Engine) ToggleShuffle() {
	if e.shuffleRestore != nil {
		e.queue = e.shuffleRestore
		e.shuffleRestore = nil
		return
	}
	e.shuffleRestore = append([]models.Track(nil), e.queue...)
	rand.Shuffle(len(e.queue), func(i, j int) {
		e.queue[i], e.queue[j] = e.queue[j], e.queue[i]
	})
}

// SwitchAudioDevice rebuilds the backend on the named device, reloading the
// current track at its last known position. If the new device or stream
// cannot be opened the previous backend stays in place.
func (e *Engine) SwitchAudioDevice(name string) error {
	newDevice, err := e.driver.OpenDevice(name)
	if err != nil {
		return fmt.Errorf("failed to open output device %q: %w", name, err)
	}

	if e.nowPlaying == nil {
		if e.device != nil {
			e.device.Close()
		}
		e.device = newDevice
		e.deviceName = name
		return nil
	}

	pos := e.sink.Position()
	paused := e.sink.IsPaused()

	newSink, err := newDevice.Open(e.nowPlaying.Path)
	if err != nil {
		newDevice.Close()
		return err
	}

	e.dropSink()
	if e.device != nil {
		e.device.Close()
	}
	e.device = newDevice
	e.deviceName = name
	e.sink = newSink

	newSink.SetVolume(e.effectiveVolume())
	if err := newSink.Seek(pos); err != nil {
		e.logger.WithError(err).Warn("Could not restore playback position on new device")
	}
	if !paused {
		newSink.Play()
	}
	return nil
}

// DeviceNames lists the output devices available for SwitchAudioDevice.
func (e *Engine) DeviceNames() []string {
	return e.driver.DeviceNames()
}

// DeviceName reports the configured output device.
func (e *Engine) DeviceName() string { return e.deviceName }

// BeginScrub pauses playback for the duration of a seek-bar drag,
// remembering whether it was already paused. No-op when idle or already
// scrubbing.
func (e *Engine) BeginScrub() {
	if e.sink == nil || e.pausedBeforeScrub != nil {
		return
	}
	paused := e.sink.IsPaused()
	e.pausedBeforeScrub = &paused
	e.sink.Pause()
}

// EndScrub seeks to the released position and resumes playback if it was
// playing when the drag started.
func (e *Engine) EndScrub(pos time.Duration) error {
	if e.pausedBeforeScrub == nil {
		return nil
	}
	wasPaused := *e.pausedBeforeScrub
	e.pausedBeforeScrub = nil

	err := e.Seek(pos)
	if !wasPaused && e.sink != nil {
		e.sink.Play()
	}
	return err
}
