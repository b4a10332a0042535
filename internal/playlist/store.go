package playlist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aria/pkg/models"

	"github.com/sirupsen/logrus"
)

// Store errors. Callers match with errors.Is.
var (
	// ErrNotFound means the playlist or track key is not present.
	ErrNotFound = errors.New("playlist: not found")
	// ErrDuplicate means the track is already in the playlist.
	ErrDuplicate = errors.New("playlist: track already in playlist")
)

// Store holds the playlist collection. Playlists are keyed by their backing
// .m3u path. The store is owned by the UI thread and not safe for concurrent
// use; background rescans hand replacement sets through Replace.
type Store struct {
	playlists []models.Playlist
	logger    *logrus.Logger
}

// NewStore creates an empty playlist store.
func NewStore(logger *logrus.Logger) *Store {
	return &Store{logger: logger}
}

// Replace swaps the whole collection for a freshly scanned one.
func (s *Store) Replace(playlists []models.Playlist) {
	s.playlists = playlists
}

// All returns the playlists in creation order.
func (s *Store) All() []models.Playlist {
	return s.playlists
}

// Get returns the playlist keyed by m3u path.
func (s *Store) Get(key string) (models.Playlist, bool) {
	for _, p := range s.playlists {
		if p.M3UPath == key {
			return p, true
		}
	}
	return models.Playlist{}, false
}

func (s *Store) index(key string) int {
	for i := range s.playlists {
		if s.playlists[i].M3UPath == key {
			return i
		}
	}
	return -1
}

// Create allocates an empty playlist named name in directory and writes its
// .m3u file immediately. A name collision with an existing file fails rather
// than silently reusing it.
func (s *Store) Create(name, directory string) (models.Playlist, error) {
	path := filepath.Join(directory, name+".m3u")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to create playlist file: %w", err)
	}
	if err := f.Close(); err != nil {
		return models.Playlist{}, fmt.Errorf("failed to create playlist file: %w", err)
	}

	p := models.Playlist{
		Name:      name,
		CreatedAt: time.Now(),
		M3UPath:   path,
	}
	s.playlists = append(s.playlists, p)

	s.logger.WithField("playlist", path).Info("Created playlist")
	return p, nil
}

// AddTrack appends the track to the playlist and rewrites the backing file.
// The in-memory playlist only changes if the write succeeds, so memory and
// disk agree regardless of the outcome.
func (s *Store) AddTrack(key string, track models.Track) error {
	i := s.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	p := &s.playlists[i]

	if models.TrackPosition(p.Tracks, track.Path) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, track.Path)
	}

	candidate := append(append([]models.Track(nil), p.Tracks...), track)
	if err := WriteM3U(p.M3UPath, candidate); err != nil {
		return fmt.Errorf("failed to write playlist file: %w", err)
	}
	p.Tracks = candidate
	return nil
}

// RemoveTrack removes the track keyed by path and rewrites the backing file.
func (s *Store) RemoveTrack(key, trackPath string) error {
	i := s.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	p := &s.playlists[i]

	pos := models.TrackPosition(p.Tracks, trackPath)
	if pos < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, trackPath)
	}

	candidate := append([]models.Track(nil), p.Tracks[:pos]...)
	candidate = append(candidate, p.Tracks[pos+1:]...)
	if err := WriteM3U(p.M3UPath, candidate); err != nil {
		return fmt.Errorf("failed to write playlist file: %w", err)
	}
	p.Tracks = candidate
	return nil
}

// Rename renames the backing file and updates name and path together. On
// filesystem failure neither changes.
func (s *Store) Rename(key, newName string) error {
	i := s.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	p := &s.playlists[i]

	newPath := filepath.Join(filepath.Dir(p.M3UPath), newName+".m3u")
	if newPath == p.M3UPath {
		return nil
	}
	// os.Rename would silently replace an existing playlist's file, leaving
	// two entries keyed to one path.
	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("failed to rename playlist: %s already exists", newPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to rename playlist: %w", err)
	}
	if err := os.Rename(p.M3UPath, newPath); err != nil {
		return fmt.Errorf("failed to rename playlist file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"old": p.M3UPath,
		"new": newPath,
	}).Info("Renamed playlist")

	p.Name = newName
	p.M3UPath = newPath
	return nil
}

// Delete moves the backing file to the trash and removes the in-memory
// entry. If the move fails the entry stays, keeping memory and disk in sync.
func (s *Store) Delete(key string) error {
	i := s.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err := moveToTrash(s.playlists[i].M3UPath); err != nil {
		return err
	}

	s.logger.WithField("playlist", key).Info("Deleted playlist")
	s.playlists = append(s.playlists[:i], s.playlists[i+1:]...)
	return nil
}
