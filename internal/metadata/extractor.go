package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aria/pkg/models"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

// Extraction errors. Callers match with errors.Is.
var (
	// ErrNotAFile means the path does not reference a regular file.
	ErrNotAFile = errors.New("metadata: not a regular file")
	// ErrUnreadableContainer means the format parser could not open the container.
	ErrUnreadableContainer = errors.New("metadata: unreadable container")
	// ErrNoMetadata means the container has no tag block.
	ErrNoMetadata = errors.New("metadata: no tags found")
)

// Extractor reads one audio file's tags and stream properties into a Track.
// It performs no I/O beyond the single read and has no side effects.
type Extractor struct {
	supportedExts []string
	logger        *logrus.Logger
}

// NewExtractor creates an extractor for the given extension set. Extensions
// are matched case-insensitively and include the leading dot.
func NewExtractor(supportedExts []string, logger *logrus.Logger) *Extractor {
	return &Extractor{
		supportedExts: supportedExts,
		logger:        logger,
	}
}

// ExtractFromFile parses the audio file at path into a Track. The title
// falls back to the file's base name when the tag has none; artist and album
// are left empty rather than fabricated.
func (e *Extractor) ExtractFromFile(filePath string) (models.Track, error) {
	info, err := os.Stat(filePath)
	if err != nil || !info.Mode().IsRegular() {
		return models.Track{}, fmt.Errorf("%w: %s", ErrNotAFile, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return models.Track{}, fmt.Errorf("%w: %v", ErrUnreadableContainer, err)
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return models.Track{}, fmt.Errorf("%w: %s", ErrNoMetadata, filePath)
		}
		return models.Track{}, fmt.Errorf("%w: %v", ErrUnreadableContainer, err)
	}

	// Stream properties come from a per-container probe since the tag
	// block carries no duration.
	duration, sampleRate, err := e.probeStream(filePath)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"file_path": filePath,
			"error":     err.Error(),
		}).Debug("Could not probe stream properties")
	}

	title := meta.Title()
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	var artwork []byte
	if picture := meta.Picture(); picture != nil {
		artwork = picture.Data
	}

	return models.Track{
		Title:      title,
		Artist:     meta.Artist(),
		Album:      meta.Album(),
		Duration:   duration,
		Artwork:    artwork,
		Codec:      string(meta.FileType()),
		SampleRate: sampleRate,
		Path:       filePath,
	}, nil
}

// probeStream reads duration and sample rate from the container itself.
func (e *Extractor) probeStream(filePath string) (time.Duration, int, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return probeMP3(filePath)
	case ".flac":
		return probeFLAC(filePath)
	case ".wav":
		return probeWAV(filePath)
	case ".m4a":
		return probeM4A(filePath)
	default:
		// ogg/opus properties are not probed; the tag block is still read.
		return 0, 0, fmt.Errorf("no stream probe for %s", ext)
	}
}

// IsAudioFile checks whether the path has a supported audio extension.
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supported := range e.supportedExts {
		if ext == strings.ToLower(supported) {
			return true
		}
	}
	return false
}

// readFull is a small indirection so the atom scanner reads like the rest
// of the probes.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}
