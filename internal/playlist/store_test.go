package playlist

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aria/pkg/models"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCreateWritesFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(testLogger())

	p, err := store.Create("roadtrip", dir)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if p.Name != "roadtrip" {
		t.Errorf("Name = %q, want roadtrip", p.Name)
	}
	if _, err := os.Stat(p.M3UPath); err != nil {
		t.Errorf("playlist file missing: %v", err)
	}
	if got := len(store.All()); got != 1 {
		t.Errorf("len(All()) = %d, want 1", got)
	}
}

func TestCreateRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(testLogger())

	if _, err := store.Create("dup", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create("dup", dir); err == nil {
		t.Error("Create() with an existing file succeeded")
	}
}

func TestAddTrackRewritesFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(testLogger())

	p, err := store.Create("mix", dir)
	if err != nil {
		t.Fatal(err)
	}

	trackPath := filepath.Join(dir, "song.mp3")
	if err := store.AddTrack(p.M3UPath, models.Track{Title: "Song", Path: trackPath}); err != nil {
		t.Fatalf("AddTrack() error = %v", err)
	}

	data, err := os.ReadFile(p.M3UPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != trackPath+"\n" {
		t.Errorf("file content = %q, want one line with the track path", got)
	}

	got, _ := store.Get(p.M3UPath)
	if len(got.Tracks) != 1 || got.Tracks[0].Path != trackPath {
		t.Errorf("in-memory tracks = %v, want [%s]", got.Tracks, trackPath)
	}
}

func TestAddTrackRejectsDuplicate(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(testLogger())

	p, err := store.Create("mix", dir)
	if err != nil {
		t.Fatal(err)
	}
	track := models.Track{Path: filepath.Join(dir, "song.mp3")}
	if err := store.AddTrack(p.M3UPath, track); err != nil {
		t.Fatal(err)
	}

	if err := store.AddTrack(p.M3UPath, track); !errors.Is(err, ErrDuplicate) {
		t.Errorf("AddTrack() duplicate error = %v, want ErrDuplicate", err)
	}
	got, _ := store.Get(p.M3UPath)
	if len(got.Tracks) != 1 {
		t.Errorf("duplicate add changed track count to %d", len(got.Tracks))
	}
}

func TestRemoveTrack(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(testLogger())

	p, err := store.Create("mix", dir)
	if err != nil {
		t.Fatal(err)
	}
	a := models.Track{Path: filepath.Join(dir, "a.mp3")}
	b := models.Track{Path: filepath.Join(dir, "b.mp3")}
	for _, tr := range []models.Track{a, b} {
		if err := store.AddTrack(p.M3UPath, tr); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.RemoveTrack(p.M3UPath, a.Path); err != nil {
		t.Fatalf("RemoveTrack() error = %v", err)
	}

	data, err := os.ReadFile(p.M3UPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != b.Path+"\n" {
		t.Errorf("file content = %q, want only b.mp3", got)
	}

	if err := store.RemoveTrack(p.M3UPath, a.Path); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveTrack() of absent track error = %v, want ErrNotFound", err)
	}
}

func TestRenameMovesFileAndUpdatesKey(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(testLogger())

	p, err := store.Create("old", dir)
	if err != nil {
		t.Fatal(err)
	}
	oldPath := p.M3UPath

	if err := store.Rename(oldPath, "new"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("old playlist file still exists")
	}
	newPath := filepath.Join(dir, "new.m3u")
	if _, err := os.Stat(newPath); err != nil {
		t.Errorf("renamed playlist file missing: %v", err)
	}

	got, ok := store.Get(newPath)
	if !ok {
		t.Fatal("playlist not found under new key")
	}
	if got.Name != "new" {
		t.Errorf("Name = %q, want new", got.Name)
	}
	if _, ok := store.Get(oldPath); ok {
		t.Error("playlist still reachable under old key")
	}
}

func TestRenameRefusesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(testLogger())

	first, err := store.Create("first", dir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Create("second", dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.AddTrack(second.M3UPath, models.Track{Path: filepath.Join(dir, "keep.mp3")}); err != nil {
		t.Fatal(err)
	}

	if err := store.Rename(first.M3UPath, "second"); err == nil {
		t.Fatal("Rename() onto an existing playlist succeeded")
	}

	// Both playlists must survive the refused rename untouched.
	if _, ok := store.Get(first.M3UPath); !ok {
		t.Error("source playlist lost after refused rename")
	}
	got, ok := store.Get(second.M3UPath)
	if !ok {
		t.Fatal("target playlist lost after refused rename")
	}
	if len(got.Tracks) != 1 {
		t.Errorf("target playlist tracks = %v, want its original content", got.Tracks)
	}
	data, err := os.ReadFile(second.M3UPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("target playlist file was truncated by the refused rename")
	}
}

func TestRenameToSameNameIsNoop(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(testLogger())

	p, err := store.Create("keep", dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Rename(p.M3UPath, "keep"); err != nil {
		t.Errorf("Rename() to the current name error = %v", err)
	}
	if _, err := os.Stat(p.M3UPath); err != nil {
		t.Errorf("playlist file missing after same-name rename: %v", err)
	}
}

func TestDeleteMovesFileToTrash(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	store := NewStore(testLogger())

	p, err := store.Create("doomed", dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(p.M3UPath); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(p.M3UPath); !os.IsNotExist(err) {
		t.Error("deleted playlist file still exists at original path")
	}
	if got := len(store.All()); got != 0 {
		t.Errorf("len(All()) = %d after delete, want 0", got)
	}

	home := os.Getenv("HOME")
	trashed := filepath.Join(home, ".local", "share", "Trash", "files", "doomed.m3u")
	if _, err := os.Stat(trashed); err != nil {
		t.Errorf("playlist file not found in trash: %v", err)
	}
}

func TestLoadM3UResolvesAgainstLibrary(t *testing.T) {
	dir := t.TempDir()

	known := models.Track{Title: "Known", Path: filepath.Join(dir, "known.mp3")}
	missing := filepath.Join(dir, "missing.mp3")

	m3uPath := filepath.Join(dir, "mix.m3u")
	content := strings.Join([]string{
		"# a comment",
		"",
		known.Path,
		missing,
	}, "\n") + "\n"
	if err := os.WriteFile(m3uPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadM3U(m3uPath, []models.Track{known}, testLogger())
	if err != nil {
		t.Fatalf("LoadM3U() error = %v", err)
	}

	if p.Name != "mix" {
		t.Errorf("Name = %q, want mix", p.Name)
	}
	if len(p.Tracks) != 1 || p.Tracks[0].Path != known.Path {
		t.Errorf("Tracks = %v, want only the resolvable entry", p.Tracks)
	}
}

func TestWriteM3URoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.m3u")

	tracks := []models.Track{
		{Title: "One", Path: filepath.Join(dir, "one.mp3")},
		{Title: "Two", Path: filepath.Join(dir, "two.flac")},
	}
	if err := WriteM3U(path, tracks); err != nil {
		t.Fatalf("WriteM3U() error = %v", err)
	}

	p, err := LoadM3U(path, tracks, testLogger())
	if err != nil {
		t.Fatalf("LoadM3U() error = %v", err)
	}
	if len(p.Tracks) != 2 {
		t.Fatalf("len(Tracks) = %d, want 2", len(p.Tracks))
	}
	for i := range tracks {
		if p.Tracks[i].Path != tracks[i].Path {
			t.Errorf("Tracks[%d].Path = %s, want %s", i, p.Tracks[i].Path, tracks[i].Path)
		}
	}
}
