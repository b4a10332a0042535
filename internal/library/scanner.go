// Package library scans a directory into the track set and playlist set the
// rest of the application works from. A scan always produces a full
// replacement, never an incremental merge.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aria/internal/metadata"
	"aria/internal/playlist"
	"aria/pkg/models"

	"github.com/sirupsen/logrus"
)

// Scanner enumerates a directory's audio files and playlists.
type Scanner struct {
	extractor *metadata.Extractor
	logger    *logrus.Logger
}

// NewScanner creates a scanner using the given extractor.
func NewScanner(extractor *metadata.Extractor, logger *logrus.Logger) *Scanner {
	return &Scanner{extractor: extractor, logger: logger}
}

// Scan enumerates the immediate files of dir (non-recursive), extracts
// metadata for every supported audio file, and parses the .m3u playlists
// found alongside them. Per-file failures are logged and skipped; a single
// corrupt file never aborts the scan. The two collections are returned as
// one atomic snapshot.
func (s *Scanner) Scan(dir string) (models.Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to read library directory: %w", err)
	}

	var tracks []models.Track
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !s.extractor.IsAudioFile(path) {
			continue
		}
		track, err := s.extractor.ExtractFromFile(path)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"file_path": path,
				"error":     err.Error(),
			}).Warn("Skipping unreadable audio file")
			continue
		}
		tracks = append(tracks, track)
	}
	models.SortTracks(tracks, models.SortByTitle, models.Ascending)

	var playlists []models.Playlist
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".m3u") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := playlist.LoadM3U(path, tracks, s.logger)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"file_path": path,
				"error":     err.Error(),
			}).Warn("Skipping unreadable playlist file")
			continue
		}
		playlists = append(playlists, p)
	}
	sort.SliceStable(playlists, func(i, j int) bool {
		return playlists[i].CreatedAt.Before(playlists[j].CreatedAt)
	})

	s.logger.WithFields(logrus.Fields{
		"directory": dir,
		"tracks":    len(tracks),
		"playlists": len(playlists),
	}).Info("Scanned library directory")

	return models.Snapshot{Tracks: tracks, Playlists: playlists}, nil
}
