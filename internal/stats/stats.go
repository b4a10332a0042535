// Package stats persists per-track play counts in a local SQLite database.
// Playback itself never depends on it; a stats failure is logged and the
// music keeps playing.
package stats

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// PlayRecord is one track's accumulated play history.
type PlayRecord struct {
	Path       string
	PlayCount  int
	LastPlayed time.Time
}

// Store wraps the SQLite connection. Safe for concurrent use because the
// underlying *sql.DB is.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// Open opens (or creates) the stats database at path and ensures the schema
// exists. Caller should Close it when finished.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	conn.SetMaxOpenConns(2)
	conn.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to configure stats database: %w", err)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS plays (
		path        TEXT PRIMARY KEY,
		play_count  INTEGER NOT NULL DEFAULT 0,
		last_played TIMESTAMP NOT NULL
	);`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stats schema: %w", err)
	}

	logger.WithField("path", path).Debug("Opened stats database")
	return &Store{conn: conn, logger: logger}, nil
}

// RecordPlay bumps the play count for the track path and stamps the time.
func (s *Store) RecordPlay(path string) error {
	query := `INSERT INTO plays (path, play_count, last_played)
		VALUES (?, 1, ?)
		ON CONFLICT(path) DO UPDATE SET
			play_count = play_count + 1,
			last_played = excluded.last_played;`
	if _, err := s.conn.Exec(query, path, time.Now()); err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}

// PlayCount returns the number of recorded plays for a track, zero when it
// was never played.
func (s *Store) PlayCount(path string) (int, error) {
	var count int
	err := s.conn.QueryRow(
		`SELECT play_count FROM plays WHERE path = ?;`, path).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query play count: %w", err)
	}
	return count, nil
}

// MostPlayed returns up to limit records ordered by play count descending.
func (s *Store) MostPlayed(limit int) ([]PlayRecord, error) {
	rows, err := s.conn.Query(
		`SELECT path, play_count, last_played FROM plays
		 ORDER BY play_count DESC, last_played DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query most played: %w", err)
	}
	defer rows.Close()

	var records []PlayRecord
	for rows.Next() {
		var r PlayRecord
		if err := rows.Scan(&r.Path, &r.PlayCount, &r.LastPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan play record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
