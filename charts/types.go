package charts

import "reon/models"

// ChartRequest is a parsed Apple Music chart/playlist URL.
type ChartRequest struct {
	PlaylistID string
	AlbumID    string
	Country    string // e.g., "us"
}

// Chart is a scraped chart or editorial playlist: its display metadata plus
// the songs used to seed a chart-detail accumulator.
type Chart struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Curator    string        `json:"curator,omitempty"`
	ArtworkURL string        `json:"artwork_url,omitempty"`
	Songs      []models.Song `json:"songs"`
}
