package spotify

import (
	"context"
	"errors"
	"strings"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyclient "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"reon/config"
	"reon/models"
)

var Spotify *spotifyclient.Client

// ErrNotConfigured is returned when no client credentials were provided and
// the catalog lookups are disabled.
var ErrNotConfigured = errors.New("spotify client not configured")

type SpotifyRequest struct {
	TrackID    string
	ArtistID   string
	PlaylistID string
}

// ArtistInfo is the artist-detail metadata: real aggregate counts from the
// catalog, not placeholder values.
type ArtistInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Followers  uint     `json:"followers"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
}

func NewSpotifyClient() error {
	ctx := context.Background()
	conf := &clientcredentials.Config{
		ClientID:     config.Config.Spotify.ClientID,
		ClientSecret: config.Config.Spotify.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := conf.Token(ctx)
	if err != nil {
		sentry.CaptureException(err)
		return err
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	client := spotifyclient.New(httpClient)
	Spotify = client
	return nil
}

// GetArtist fetches artist metadata, including the follower count shown on
// the artist-detail screen.
func GetArtist(ctx context.Context, artistID string) (*ArtistInfo, error) {
	log.Tracef("Fetching artist from Spotify API: %s", artistID)

	if Spotify == nil {
		return nil, ErrNotConfigured
	}

	span := sentry.StartSpan(ctx, "spotify.get_artist")
	span.Description = "Get artist from Spotify API"
	span.SetTag("artist_id", artistID)
	defer span.Finish()

	artist, err := Spotify.GetArtist(ctx, spotifyclient.ID(artistID))
	if err != nil {
		log.Errorf("Failed to fetch Spotify artist %s: %v", artistID, err)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError

		// Note: zmb3/spotify client doesn't provide typed errors, so we parse error strings.
		errStr := err.Error()
		if strings.Contains(errStr, "404") || strings.Contains(errStr, "Not Found") {
			return nil, errors.New("artist not found")
		}
		return nil, err
	}

	info := &ArtistInfo{
		ID:         artistID,
		Name:       artist.Name,
		Followers:  uint(artist.Followers.Count),
		Popularity: int(artist.Popularity),
		Genres:     artist.Genres,
	}
	if len(artist.Images) > 0 {
		info.ImageURL = artist.Images[0].URL
	}

	span.Status = sentry.SpanStatusOK
	return info, nil
}

// GetArtistTopSongs returns the artist's top tracks, used to seed the
// artist-detail accumulator before any paging happens.
func GetArtistTopSongs(ctx context.Context, artistID string) ([]models.Song, error) {
	if Spotify == nil {
		return nil, ErrNotConfigured
	}

	span := sentry.StartSpan(ctx, "spotify.get_artist_top_songs")
	span.Description = "Get artist top songs from Spotify API"
	span.SetTag("artist_id", artistID)
	defer span.Finish()

	results, err := Spotify.GetArtistsTopTracks(ctx, spotifyclient.ID(artistID), "US")
	if err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}

	songs := make([]models.Song, 0, len(results))
	for _, track := range results {
		artists := make([]string, 0, len(track.Artists))
		for _, artist := range track.Artists {
			artists = append(artists, artist.Name)
		}
		song := models.Song{
			ID:              string(track.ID),
			Title:           track.Name,
			Artist:          strings.Join(artists, ", "),
			Album:           track.Album.Name,
			DurationSeconds: int(track.Duration) / 1000,
		}
		if len(track.Album.Images) > 0 {
			song.ArtworkURL = track.Album.Images[0].URL
		}
		songs = append(songs, song)
	}

	span.Status = sentry.SpanStatusOK
	span.SetData("tracks_count", len(songs))
	return songs, nil
}

func ParseSpotifyURL(url string) (SpotifyRequest, error) {
	if strings.HasPrefix(url, "https://open.spotify.com/") {
		parts := strings.Split(url, "/")
		if len(parts) < 5 {
			log.Warnf("Invalid Spotify URL format (too few parts): %s", url)
			return SpotifyRequest{}, errors.New("invalid Spotify URL")
		}

		request := SpotifyRequest{}

		// Strip query parameters from ID (e.g., ?si=tracking_id)
		id := strings.Split(parts[4], "?")[0]

		switch parts[3] {
		case "artist":
			request.ArtistID = id
			log.Tracef("Parsed Spotify artist URL: %s", id)
		case "track":
			request.TrackID = id
			log.Tracef("Parsed Spotify track URL: %s", id)
		case "playlist":
			request.PlaylistID = id
			log.Tracef("Parsed Spotify playlist URL: %s", id)
		}

		return request, nil
	}

	log.Warnf("URL does not start with https://open.spotify.com/: %s", url)
	return SpotifyRequest{}, errors.New("invalid Spotify URL")
}
