package lyrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

type SearchResult struct {
	ID           int    `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	AlbumName    string `json:"albumName"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New() *Client {
	return &Client{
		baseURL: "https://lrclib.net",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

var syncTagRe = regexp.MustCompile(`\[\d+:\d+\.\d+\]`)

// Search looks up lyrics for the query and returns (lyrics, "Track - Artist").
// Lyrics may be empty when lrclib only knows the track.
func (c *Client) Search(query string) (string, string, error) {
	u := fmt.Sprintf("%s/api/search?q=%s", c.baseURL, url.QueryEscape(query))
	resp, err := c.httpClient.Get(u)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("lrclib API returned status %d", resp.StatusCode)
	}

	var results []SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", "", err
	}

	if len(results) == 0 {
		return "", "", nil
	}

	res := results[0]

	var text string
	if res.PlainLyrics != "" {
		text = res.PlainLyrics
	} else if res.SyncedLyrics != "" {
		text = syncTagRe.ReplaceAllString(res.SyncedLyrics, "")
		text = strings.TrimSpace(text)
	}

	trackInfo := res.TrackName + " - " + res.ArtistName
	return text, trackInfo, nil
}
