package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reon/models"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestRecordPlayAndHistory(t *testing.T) {
	d := newTestDB(t)

	for _, s := range []models.Song{
		{ID: "a", Title: "First", Artist: "X", DurationSeconds: 100},
		{ID: "b", Title: "Second", Artist: "Y", DurationSeconds: 200},
	} {
		if err := d.RecordPlay(s); err != nil {
			t.Fatalf("RecordPlay(%s): %v", s.ID, err)
		}
		time.Sleep(2 * time.Millisecond) // distinct timestamps for ordering
	}

	history, err := d.GetHistory(10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want 2", len(history))
	}
	if history[0].Song.ID != "b" {
		t.Errorf("newest first: got %s, want b", history[0].Song.ID)
	}
	if history[1].Song.Title != "First" || history[1].Song.DurationSeconds != 100 {
		t.Errorf("row round-trip mismatch: %+v", history[1].Song)
	}
}

func TestGetRecentSongsDedup(t *testing.T) {
	d := newTestDB(t)

	plays := []string{"a", "b", "a", "c", "a"}
	for _, id := range plays {
		if err := d.RecordPlay(models.Song{ID: id, Title: "song " + id}); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	songs, err := d.GetRecentSongs(10)
	if err != nil {
		t.Fatalf("GetRecentSongs: %v", err)
	}
	if len(songs) != 3 {
		t.Fatalf("len = %d, want 3 unique songs", len(songs))
	}
	if songs[0].ID != "a" {
		t.Errorf("most recently played = %s, want a", songs[0].ID)
	}
}

func TestGetMostPlayed(t *testing.T) {
	d := newTestDB(t)

	plays := []string{"a", "b", "b", "b", "c", "c"}
	for _, id := range plays {
		if err := d.RecordPlay(models.Song{ID: id, Title: "song " + id}); err != nil {
			t.Fatal(err)
		}
	}

	records, err := d.GetMostPlayed(2)
	if err != nil {
		t.Fatalf("GetMostPlayed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].Song.ID != "b" || records[0].PlayCount != 3 {
		t.Errorf("top = %s x%d, want b x3", records[0].Song.ID, records[0].PlayCount)
	}
	if records[1].Song.ID != "c" || records[1].PlayCount != 2 {
		t.Errorf("second = %s x%d, want c x2", records[1].Song.ID, records[1].PlayCount)
	}
}

func TestFavorites(t *testing.T) {
	d := newTestDB(t)
	song := models.Song{ID: "fav1", Title: "Kept Song", Artist: "Artist"}

	if d.IsFavorite(song.ID) {
		t.Error("song should not be a favorite yet")
	}
	if err := d.AddFavorite(song); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}
	// Duplicate add is silently ignored.
	if err := d.AddFavorite(song); err != nil {
		t.Fatalf("duplicate AddFavorite: %v", err)
	}
	if !d.IsFavorite(song.ID) {
		t.Error("song should be a favorite")
	}

	favs, err := d.GetFavorites(10)
	if err != nil {
		t.Fatalf("GetFavorites: %v", err)
	}
	if len(favs) != 1 {
		t.Fatalf("favorites len = %d, want 1", len(favs))
	}
	if favs[0].Song.Title != "Kept Song" {
		t.Errorf("favorite title = %q", favs[0].Song.Title)
	}

	title, err := d.RemoveFavorite(song.ID)
	if err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
	if title != "Kept Song" {
		t.Errorf("removed title = %q, want Kept Song", title)
	}
	if d.IsFavorite(song.ID) {
		t.Error("song should no longer be a favorite")
	}

	// Removing again reports the song was never saved.
	title, err = d.RemoveFavorite(song.ID)
	if !errors.Is(err, ErrNotFavorite) {
		t.Errorf("second remove err = %v, want ErrNotFavorite", err)
	}
	if title != "" {
		t.Errorf("second remove title = %q, want empty", title)
	}
}

func TestParseStoredTime(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"rfc3339nano", "1999-08-29T10:00:00.123456789Z", true},
		{"rfc3339", "1999-08-29T10:00:00Z", true},
		{"sqlite_default", "1999-08-29 10:00:00", true},
		{"garbage", "yesterday-ish", false}, // falls back to now
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseStoredTime(tt.value)
			parsed := got.Year() == 1999
			if parsed != tt.ok {
				t.Errorf("parseStoredTime(%q) = %v, parsed=%t want %t", tt.value, got, parsed, tt.ok)
			}
		})
	}
}
