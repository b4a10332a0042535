// Package playlist owns the in-memory playlist collection and keeps it
// consistent with the .m3u files backing it: every mutating operation
// rewrites the whole file, and in-memory state only changes once the disk
// write has succeeded.
package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aria/pkg/models"

	"github.com/sirupsen/logrus"
)

// WriteM3U serializes the playlist's track paths to path: UTF-8, one
// absolute file path per line, trailing newline. The whole file is rewritten
// on every call; there is no partial diffing.
func WriteM3U(path string, tracks []models.Track) error {
	var b strings.Builder
	for _, t := range tracks {
		b.WriteString(t.Path)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// LoadM3U parses the .m3u file at path into a Playlist, resolving each line
// against the given track set. Blank lines and #-prefixed lines are ignored;
// lines whose path has no corresponding track are dropped with a warning.
func LoadM3U(path string, library []models.Track, logger *logrus.Logger) (models.Playlist, error) {
	if !strings.EqualFold(filepath.Ext(path), ".m3u") {
		return models.Playlist{}, fmt.Errorf("not an m3u file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to read playlist: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var tracks []models.Track
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		track, ok := models.FindTrackByPath(library, trimmed)
		if !ok {
			logger.WithFields(logrus.Fields{
				"playlist":   path,
				"track_path": trimmed,
			}).Warn("Playlist entry has no matching track in the library, dropping")
			continue
		}
		tracks = append(tracks, track)
	}

	createdAt := time.Now()
	if info, err := os.Stat(path); err == nil {
		createdAt = info.ModTime()
	}

	return models.Playlist{
		Name:      name,
		CreatedAt: createdAt,
		Tracks:    tracks,
		M3UPath:   path,
	}, nil
}
