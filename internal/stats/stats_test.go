package stats

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := Open(filepath.Join(t.TempDir(), "stats.db"), logger)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPlayCountUnknownTrackIsZero(t *testing.T) {
	s := openTestStore(t)

	count, err := s.PlayCount("/music/never.mp3")
	if err != nil {
		t.Fatalf("PlayCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("PlayCount() = %d, want 0", count)
	}
}

func TestRecordPlayAccumulates(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.RecordPlay("/music/hit.mp3"); err != nil {
			t.Fatalf("RecordPlay() error = %v", err)
		}
	}

	count, err := s.PlayCount("/music/hit.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("PlayCount() = %d, want 3", count)
	}
}

func TestMostPlayedOrdersByCount(t *testing.T) {
	s := openTestStore(t)

	plays := map[string]int{
		"/music/a.mp3": 1,
		"/music/b.mp3": 5,
		"/music/c.mp3": 3,
	}
	for path, n := range plays {
		for i := 0; i < n; i++ {
			if err := s.RecordPlay(path); err != nil {
				t.Fatal(err)
			}
		}
	}

	records, err := s.MostPlayed(2)
	if err != nil {
		t.Fatalf("MostPlayed() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Path != "/music/b.mp3" || records[0].PlayCount != 5 {
		t.Errorf("records[0] = %+v, want b.mp3 with 5 plays", records[0])
	}
	if records[1].Path != "/music/c.mp3" {
		t.Errorf("records[1] = %+v, want c.mp3", records[1])
	}
}
