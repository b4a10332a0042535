// Package app wires the playback engine, library watcher, playlist store,
// visualizer and stats into one coordinator driven by the UI loop. All
// methods run on the UI thread; background components communicate through
// channels drained in Tick.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"aria/internal/audio"
	"aria/internal/config"
	"aria/internal/notify"
	"aria/internal/player"
	"aria/internal/playlist"
	"aria/internal/stats"
	"aria/internal/visualizer"
	"aria/internal/watcher"
	"aria/pkg/models"

	"github.com/sirupsen/logrus"
)

// rewindThreshold decides whether "previous" restarts the current track or
// goes back through history.
const rewindThreshold = 10 * time.Second

// App is the application coordinator. It owns the library state the UI
// renders from and translates user intents into engine and store calls.
type App struct {
	logger  *logrus.Logger
	cfg     *config.Config
	cfgPath string

	engine    *player.Engine
	watcher   *watcher.Watcher
	playlists *playlist.Store
	vis       *visualizer.Pipeline
	notices   *notify.Center
	stats     *stats.Store

	tracks   []models.Track
	bands    [visualizer.NumBands]float64
	lastTick time.Time
}

// New assembles the coordinator from already constructed parts. stats may be
// nil when disabled.
func New(cfg *config.Config, cfgPath string, engine *player.Engine, w *watcher.Watcher,
	playlists *playlist.Store, vis *visualizer.Pipeline, notices *notify.Center,
	st *stats.Store, logger *logrus.Logger) *App {
	return &App{
		logger:    logger,
		cfg:       cfg,
		cfgPath:   cfgPath,
		engine:    engine,
		watcher:   w,
		playlists: playlists,
		vis:       vis,
		notices:   notices,
		stats:     st,
	}
}

// Tick advances everything that happens between frames: it drains library
// snapshots from the watcher, advances playback when the current track
// finished, and eases the visualizer bands toward their latest targets.
// Called once per UI frame.
func (a *App) Tick() {
	now := time.Now()
	dt := now.Sub(a.lastTick)
	if a.lastTick.IsZero() || dt > time.Second {
		dt = time.Second / 30
	}
	a.lastTick = now

	select {
	case snapshot := <-a.watcher.Results():
		a.tracks = snapshot.Tracks
		a.playlists.Replace(snapshot.Playlists)
	default:
	}

	a.checkForNextTrack()

	if targets, ok := a.vis.Latest(); ok {
		visualizer.Smooth(&a.bands, targets, dt)
	} else {
		visualizer.Smooth(&a.bands, [visualizer.NumBands]float64{}, dt)
	}
}

// checkForNextTrack advances playback once per track completion. Advance
// tears the finished sink down, so a completion is observed exactly once.
func (a *App) checkForNextTrack() {
	if !a.engine.TrackFinished() {
		return
	}

	if finished := a.engine.NowPlaying(); finished != nil {
		a.recordPlay(finished.Path)
	}

	if err := a.engine.Advance(); err != nil {
		a.notices.Push(notify.Error, fmt.Sprintf("Could not play next track: %v", err))
	}
}

func (a *App) recordPlay(path string) {
	if a.stats == nil {
		return
	}
	if err := a.stats.RecordPlay(path); err != nil {
		a.logger.WithError(err).Warn("Failed to record play")
	}
}

// Tracks returns the current library track list.
func (a *App) Tracks() []models.Track { return a.tracks }

// Engine exposes the playback engine for direct control surfaces.
func (a *App) Engine() *player.Engine { return a.engine }

// Playlists exposes the playlist store.
func (a *App) Playlists() *playlist.Store { return a.playlists }

// Notices exposes the notification center.
func (a *App) Notices() *notify.Center { return a.notices }

// VisualizerBands returns the smoothed band values for drawing.
func (a *App) VisualizerBands() [visualizer.NumBands]float64 { return a.bands }

// PlayTrack starts the given track immediately, leaving the queue alone.
func (a *App) PlayTrack(track models.Track) {
	if err := a.engine.LoadAndPlay(track); err != nil {
		a.notices.Push(notify.Error, fmt.Sprintf("Could not play %q: %v", track.Title, err))
	}
}

// PlayNext skips to the next queued track.
func (a *App) PlayNext() {
	if err := a.engine.Advance(); err != nil {
		a.notices.Push(notify.Error, fmt.Sprintf("Could not play next track: %v", err))
	}
}

// PlayPrevious restarts the current track when more than rewindThreshold has
// elapsed or when there is nothing to go back to; otherwise it returns to
// the previously played track.
func (a *App) PlayPrevious() {
	if a.engine.Position() > rewindThreshold || len(a.engine.History()) == 0 {
		if err := a.engine.Seek(0); err != nil {
			a.notices.Push(notify.Error, fmt.Sprintf("Could not restart track: %v", err))
		}
		a.engine.Resume()
		return
	}

	if err := a.engine.PlayPrevious(); err != nil && !errors.Is(err, player.ErrNoHistory) {
		a.notices.Push(notify.Error, fmt.Sprintf("Could not play previous track: %v", err))
	}
}

// playRotation replaces the queue with tracks rotated to begin at start and
// plays the first entry. Order wraps: [start..end) then [0..start).
func (a *App) playRotation(tracks []models.Track, start int) {
	if len(tracks) == 0 {
		return
	}
	if start < 0 || start >= len(tracks) {
		start = 0
	}

	a.engine.ClearQueue()
	rotated := append(append([]models.Track(nil), tracks[start:]...), tracks[:start]...)
	for _, t := range rotated[1:] {
		a.engine.Enqueue(t)
	}
	a.PlayTrack(rotated[0])
}

// PlayLibraryFrom plays the library starting at the track index, queueing
// the rest of the library in wrapped order.
func (a *App) PlayLibraryFrom(index int) {
	a.playRotation(a.tracks, index)
}

// PlayPlaylist plays the playlist starting at the track index, queueing the
// remaining playlist tracks in wrapped order.
func (a *App) PlayPlaylist(key string, index int) {
	p, ok := a.playlists.Get(key)
	if !ok {
		a.notices.Push(notify.Error, "Playlist no longer exists")
		return
	}
	a.playRotation(p.Tracks, index)
}

// SetLibraryDirectory points the library at a new directory. The watcher
// rescans and the next Tick picks up the fresh snapshot.
func (a *App) SetLibraryDirectory(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		a.notices.Push(notify.Error, fmt.Sprintf("%s is not a directory", path))
		return
	}
	a.cfg.Library.Path = path
	a.watcher.ChangeWatchedPath(path)
}

// RefreshLibrary forces a rescan of the library directory.
func (a *App) RefreshLibrary() {
	a.watcher.Refresh()
}

// HandleDroppedFile copies a file dropped onto the window into the library
// directory, where the watcher will pick it up.
func (a *App) HandleDroppedFile(path string) {
	if !audio.SupportedExtension(filepath.Ext(path)) {
		a.notices.Push(notify.Warning, fmt.Sprintf("%s is not a supported audio file", filepath.Base(path)))
		return
	}

	dst := filepath.Join(a.cfg.Library.Path, filepath.Base(path))
	if err := copyFile(path, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			a.notices.Push(notify.Warning, fmt.Sprintf("%s is already in the library", filepath.Base(path)))
		} else {
			a.notices.Push(notify.Error, fmt.Sprintf("Could not import %s: %v", filepath.Base(path), err))
		}
		return
	}
	a.notices.Push(notify.Info, fmt.Sprintf("Imported %s", filepath.Base(path)))
	a.watcher.Refresh()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	// Exclusive create: a same-named file already in the library must never
	// be overwritten by an import.
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// Close shuts everything down and persists the volatile settings (volume,
// output device) back to the config file.
func (a *App) Close() {
	a.watcher.Shutdown()
	a.engine.Stop()
	a.vis.Close()
	if a.stats != nil {
		if err := a.stats.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close stats database")
		}
	}

	a.cfg.Audio.Volume = a.engine.Volume()
	a.cfg.Audio.OutputDevice = a.engine.DeviceName()
	if err := a.cfg.SaveToFile(a.cfgPath); err != nil {
		a.logger.WithError(err).Error("Failed to save configuration")
	}
}
