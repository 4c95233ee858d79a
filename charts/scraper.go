package charts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"reon/models"
)

var httpClient = &http.Client{
	Timeout: 10 * time.Second,
}

// scrapeChart fetches an Apple Music chart/playlist page and extracts its
// name and track list.
func scrapeChart(ctx context.Context, country, playlistID string) (*Chart, error) {
	pageURL := fmt.Sprintf("https://music.apple.com/%s/playlist/chart/%s", country, playlistID)

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, err
	}

	// Set realistic User-Agent to avoid blocks
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	log.Tracef("Fetching chart page: %s", pageURL)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	chart, err := extractChartFromJSONLD(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to extract chart metadata: %w", err)
	}
	chart.ID = playlistID

	// Open Graph image is more reliable than anything inside JSON-LD.
	if artwork, ok := doc.Find("meta[property='og:image']").Attr("content"); ok {
		chart.ArtworkURL = artwork
	}

	return chart, nil
}

// extractChartFromJSONLD parses the JSON-LD MusicPlaylist block.
func extractChartFromJSONLD(doc *goquery.Document) (*Chart, error) {
	var chart *Chart

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			log.Tracef("Failed to parse JSON-LD block %d: %v", i, err)
			return true // Continue to next script tag
		}

		if typeVal, ok := data["@type"].(string); !ok || typeVal != "MusicPlaylist" {
			return true
		}

		name := getString(data, "name")
		if name == "" {
			return true
		}

		chart = &Chart{Name: name}

		if author, ok := data["author"].(map[string]interface{}); ok {
			chart.Curator = getString(author, "name")
		}

		tracks, _ := data["track"].([]interface{})
		for _, raw := range tracks {
			trackMap, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			song := songFromTrackData(trackMap)
			if song.ID == "" || song.Title == "" {
				continue
			}
			chart.Songs = append(chart.Songs, song)
		}

		return false // Found what we need, stop iteration
	})

	if chart == nil {
		return nil, errors.New("no JSON-LD MusicPlaylist data found")
	}
	if len(chart.Songs) == 0 {
		return nil, errors.New("no tracks found in JSON-LD playlist")
	}

	return chart, nil
}

func songFromTrackData(data map[string]interface{}) models.Song {
	song := models.Song{
		Title: getString(data, "name"),
	}

	if artistData, ok := data["byArtist"].(map[string]interface{}); ok {
		song.Artist = getString(artistData, "name")
	} else if artistArray, ok := data["byArtist"].([]interface{}); ok {
		names := []string{}
		for _, a := range artistArray {
			if artistMap, ok := a.(map[string]interface{}); ok {
				if name := getString(artistMap, "name"); name != "" {
					names = append(names, name)
				}
			}
		}
		song.Artist = strings.Join(names, ", ")
	}

	song.ID = extractTrackID(getString(data, "url"))
	song.DurationSeconds = parseISODuration(getString(data, "duration"))

	return song
}

// extractTrackID pulls the stable track id out of an Apple Music track URL:
// the ?i= query param when present, otherwise the trailing numeric path id.
func extractTrackID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if id := parsed.Query().Get("i"); id != "" {
		return id
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	last := parts[len(parts)-1]
	if _, err := strconv.Atoi(last); err == nil {
		return last
	}
	return ""
}

// getString safely extracts a string value from a map
func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}

// parseISODuration converts an ISO-8601 duration (PT#H#M#S) into seconds.
func parseISODuration(duration string) int {
	duration = strings.TrimPrefix(duration, "PT")

	seconds := 0
	if idx := strings.Index(duration, "H"); idx != -1 {
		h, _ := strconv.Atoi(duration[:idx])
		seconds += h * 3600
		duration = duration[idx+1:]
	}
	if idx := strings.Index(duration, "M"); idx != -1 {
		m, _ := strconv.Atoi(duration[:idx])
		seconds += m * 60
		duration = duration[idx+1:]
	}
	if idx := strings.Index(duration, "S"); idx != -1 {
		s, _ := strconv.Atoi(duration[:idx])
		seconds += s
	}

	return seconds
}
