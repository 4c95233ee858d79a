package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"reon/models"
)

// ErrNotFavorite is returned when an operation names a song id that was
// never saved.
var ErrNotFavorite = errors.New("song is not a favorite")

type Database struct {
	db *sql.DB
}

// PlayRecord is one row of play history.
type PlayRecord struct {
	ID       int64
	Song     models.Song
	PlayedAt time.Time
}

// MostPlayedRecord aggregates play counts per song.
type MostPlayedRecord struct {
	Song       models.Song
	PlayCount  int
	LastPlayed time.Time
}

// FavoriteRecord is a saved song.
type FavoriteRecord struct {
	ID      int64
	Song    models.Song
	AddedAt time.Time
}

// New opens (or creates) the library database. An empty dbPath falls back to
// the DB_PATH env var, then /app/data/reon.db.
func New(dbPath string) (*Database, error) {
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}
	if dbPath == "" {
		dbPath = "/app/data/reon.db"
	}

	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Infof("Database initialized at %s", dbPath)
	return d, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			song_id TEXT NOT NULL,
			title TEXT NOT NULL,
			artist TEXT NOT NULL DEFAULT '',
			artwork_url TEXT NOT NULL DEFAULT '',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			played_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_play_history_played_at ON play_history(played_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_play_history_song_id ON play_history(song_id)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			song_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			artist TEXT NOT NULL DEFAULT '',
			artwork_url TEXT NOT NULL DEFAULT '',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_added_at ON favorites(added_at DESC)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return nil
}

// RecordPlay inserts a play-history row for the song.
func (d *Database) RecordPlay(song models.Song) error {
	_, err := d.db.Exec(
		`INSERT INTO play_history (song_id, title, artist, artwork_url, duration_seconds, played_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		song.ID, song.Title, song.Artist, song.ArtworkURL, song.DurationSeconds,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}

// GetHistory returns the most recent plays, newest first.
func (d *Database) GetHistory(limit int) ([]PlayRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := d.db.Query(
		`SELECT id, song_id, title, artist, artwork_url, duration_seconds, played_at
		 FROM play_history
		 ORDER BY played_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []PlayRecord
	for rows.Next() {
		var r PlayRecord
		var playedAt string
		if err := rows.Scan(&r.ID, &r.Song.ID, &r.Song.Title, &r.Song.Artist,
			&r.Song.ArtworkURL, &r.Song.DurationSeconds, &playedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.PlayedAt = parseStoredTime(playedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRecentSongs returns the most recently played songs, dedup-ed by id.
// This backs the home screen "recently played" shelf and the seed set for
// local filtering.
func (d *Database) GetRecentSongs(limit int) ([]models.Song, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.db.Query(
		`SELECT song_id, title, artist, artwork_url, duration_seconds, MAX(played_at) as last_played
		 FROM play_history
		 GROUP BY song_id
		 ORDER BY last_played DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent songs: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var s models.Song
		var lastPlayed string
		if err := rows.Scan(&s.ID, &s.Title, &s.Artist, &s.ArtworkURL, &s.DurationSeconds, &lastPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan recent song row: %w", err)
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// GetMostPlayed returns the most played songs.
func (d *Database) GetMostPlayed(limit int) ([]MostPlayedRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := d.db.Query(
		`SELECT song_id, title, artist, artwork_url, duration_seconds,
		        COUNT(*) as play_count, MAX(played_at) as last_played
		 FROM play_history
		 GROUP BY song_id
		 ORDER BY play_count DESC, last_played DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query most played: %w", err)
	}
	defer rows.Close()

	var records []MostPlayedRecord
	for rows.Next() {
		var r MostPlayedRecord
		var lastPlayedStr string
		if err := rows.Scan(&r.Song.ID, &r.Song.Title, &r.Song.Artist, &r.Song.ArtworkURL,
			&r.Song.DurationSeconds, &r.PlayCount, &lastPlayedStr); err != nil {
			return nil, fmt.Errorf("failed to scan most played row: %w", err)
		}
		r.LastPlayed = parseStoredTime(lastPlayedStr)
		records = append(records, r)
	}
	return records, rows.Err()
}

// AddFavorite saves a song. Silently ignores duplicates.
func (d *Database) AddFavorite(song models.Song) error {
	_, err := d.db.Exec(
		`INSERT OR IGNORE INTO favorites (song_id, title, artist, artwork_url, duration_seconds, added_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		song.ID, song.Title, song.Artist, song.ArtworkURL, song.DurationSeconds,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// IsFavorite returns true if the song is already saved.
func (d *Database) IsFavorite(songID string) bool {
	var count int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM favorites WHERE song_id = ?`,
		songID,
	).Scan(&count)
	return err == nil && count > 0
}

// GetFavorites returns saved songs, newest first.
func (d *Database) GetFavorites(limit int) ([]FavoriteRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.db.Query(
		`SELECT id, song_id, title, artist, artwork_url, duration_seconds, added_at
		 FROM favorites
		 ORDER BY added_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FavoriteRecord
	for rows.Next() {
		var r FavoriteRecord
		var addedAt string
		if err := rows.Scan(&r.ID, &r.Song.ID, &r.Song.Title, &r.Song.Artist,
			&r.Song.ArtworkURL, &r.Song.DurationSeconds, &addedAt); err != nil {
			return nil, err
		}
		r.AddedAt = parseStoredTime(addedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// RemoveFavorite deletes a saved song by id. Returns the removed title, or
// ErrNotFavorite when the song was never saved.
func (d *Database) RemoveFavorite(songID string) (string, error) {
	var title string
	err := d.db.QueryRow(
		`SELECT title FROM favorites WHERE song_id = ?`, songID,
	).Scan(&title)
	if err == sql.ErrNoRows {
		return "", ErrNotFavorite
	}
	if err != nil {
		return "", err
	}

	_, err = d.db.Exec(`DELETE FROM favorites WHERE song_id = ?`, songID)
	return title, err
}

// parseStoredTime handles the timestamp formats found in sqlite DATETIME
// columns: RFC3339 variants for rows we wrote, the bare sqlite format for
// rows created by CURRENT_TIMESTAMP defaults.
func parseStoredTime(value string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	log.Warnf("failed to parse stored timestamp '%s' with all known formats", value)
	return time.Now()
}
