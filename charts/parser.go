package charts

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	playlistRegex = regexp.MustCompile(`/playlist/[^/]+/(pl\.[a-zA-Z0-9-]+)`)
	albumRegex    = regexp.MustCompile(`/album/[^/]+/(\d+)`)
)

// ParseChartURL parses an Apple Music chart/playlist URL into its ids.
func ParseChartURL(rawURL string) (ChartRequest, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ChartRequest{}, err
	}

	if !strings.Contains(parsedURL.Host, "apple.com") {
		log.Warnf("URL does not contain apple.com: %s", rawURL)
		return ChartRequest{}, errors.New("not an Apple Music URL")
	}

	request := ChartRequest{}

	// Country code is the first path segment (e.g., /us/playlist/...)
	pathParts := strings.Split(strings.TrimPrefix(parsedURL.Path, "/"), "/")
	if len(pathParts) > 0 {
		request.Country = pathParts[0]
	}

	if strings.Contains(parsedURL.Path, "/playlist/") {
		if matches := playlistRegex.FindStringSubmatch(parsedURL.Path); len(matches) > 1 {
			request.PlaylistID = matches[1]
			log.Tracef("Parsed chart playlist URL: %s", request.PlaylistID)
		}
	} else if strings.Contains(parsedURL.Path, "/album/") {
		if matches := albumRegex.FindStringSubmatch(parsedURL.Path); len(matches) > 1 {
			request.AlbumID = matches[1]
			log.Tracef("Parsed chart album URL: %s", request.AlbumID)
		}
	}

	if request.PlaylistID == "" && request.AlbumID == "" {
		log.Warnf("Could not parse chart URL (no IDs extracted): %s", rawURL)
		return ChartRequest{}, errors.New("could not parse chart URL")
	}

	return request, nil
}
