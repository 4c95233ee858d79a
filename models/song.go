package models

import (
	"fmt"
	"strings"
	"time"
)

// Song is a single playable content item. Identity is the ID field; two songs
// with the same ID are the same song regardless of the source that returned them.
type Song struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Album           string `json:"album,omitempty"`
	ArtworkURL      string `json:"artwork_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	ViewCount       int64  `json:"view_count,omitempty"`
	LikeCount       int64  `json:"like_count,omitempty"`
	ChannelID       string `json:"channel_id,omitempty"`
	ChannelTitle    string `json:"channel_title,omitempty"`
}

// Display returns "Artist - Title", falling back to the title alone when
// the artist is unknown.
func (s Song) Display() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Artist + " - " + s.Title
}

// Duration returns the song length as a time.Duration.
func (s Song) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// FormatDuration renders the song length as m:ss (or h:mm:ss for long tracks).
func (s Song) FormatDuration() string {
	total := s.DurationSeconds
	if total <= 0 {
		return "0:00"
	}
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

// WatchURL returns the canonical YouTube watch URL for the song.
func (s Song) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + s.ID
}

// MatchesQuery reports whether the song's title or artist contains the query,
// case-insensitively. Used to filter already-loaded sets locally.
func (s Song) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Title), q) ||
		strings.Contains(strings.ToLower(s.Artist), q)
}
