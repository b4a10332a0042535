package models

import (
	"sort"
	"strings"
	"time"
)

// Track represents one audio file's parsed metadata. Tracks are immutable
// once constructed; a rescan re-creates them rather than updating in place.
// Identity is the absolute file path: no two tracks in a library share one.
type Track struct {
	Title      string        `json:"title"`
	Artist     string        `json:"artist,omitempty"`
	Album      string        `json:"album,omitempty"`
	Duration   time.Duration `json:"duration"`
	Artwork    []byte        `json:"-"` // first embedded picture, verbatim
	Codec      string        `json:"codec"`
	SampleRate int           `json:"sampleRate,omitempty"` // Hz, 0 if unknown
	Path       string        `json:"-"`                    // absolute file path, the track key
}

// Playlist is a named, ordered, persisted collection of tracks backed by an
// .m3u file. The in-memory track order always matches the on-disk line order.
type Playlist struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Tracks    []Track   `json:"tracks"`
	M3UPath   string    `json:"-"` // backing file, the playlist key
}

// Snapshot is one atomic scan result: the full track set of a directory
// together with the playlists discovered alongside it. Consumers never see
// tracks without their playlists or vice versa.
type Snapshot struct {
	Tracks    []Track
	Playlists []Playlist
}

// SortBy selects the field tracks are ordered on.
type SortBy int

const (
	SortByTitle SortBy = iota
	SortByArtist
	SortByAlbum
	SortByDuration
)

// SortOrder selects ascending or descending ordering.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// SortTracks orders tracks in place by the given field and direction.
// Ties fall back to the path so the order is deterministic.
func SortTracks(tracks []Track, by SortBy, order SortOrder) {
	sort.SliceStable(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		var less bool
		switch by {
		case SortByArtist:
			less = compareOrPath(a.Artist, b.Artist, a.Path, b.Path)
		case SortByAlbum:
			less = compareOrPath(a.Album, b.Album, a.Path, b.Path)
		case SortByDuration:
			if a.Duration == b.Duration {
				less = a.Path < b.Path
			} else {
				less = a.Duration < b.Duration
			}
		default:
			less = compareOrPath(a.Title, b.Title, a.Path, b.Path)
		}
		if order == Descending {
			return !less
		}
		return less
	})
}

func compareOrPath(a, b, pathA, pathB string) bool {
	ca := strings.ToLower(a)
	cb := strings.ToLower(b)
	if ca == cb {
		return pathA < pathB
	}
	return ca < cb
}

// FindTrackByPath returns the track with the given path, if present.
func FindTrackByPath(tracks []Track, path string) (Track, bool) {
	for _, t := range tracks {
		if t.Path == path {
			return t, true
		}
	}
	return Track{}, false
}

// TrackPosition returns the index of the track with the given path, or -1.
func TrackPosition(tracks []Track, path string) int {
	for i, t := range tracks {
		if t.Path == path {
			return i
		}
	}
	return -1
}

// TotalDuration sums the durations of all tracks.
func TotalDuration(tracks []Track) time.Duration {
	var total time.Duration
	for _, t := range tracks {
		total += t.Duration
	}
	return total
}
