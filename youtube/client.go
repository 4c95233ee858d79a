package youtube

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"reon/config"
	"reon/models"
	"reon/ranking"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// Client is the paged-search collaborator backed by the YouTube Data API.
// The accumulator asks for numbered pages; the API speaks continuation
// tokens, so the client keeps a per-key page->token map and walks it
// sequentially.
type Client struct {
	service         *ytapi.Service
	maxDurationMins int
	rankCtx         ranking.Context

	mu         sync.Mutex
	pageTokens map[string]map[int]string
}

func NewClient(ctx context.Context) (*Client, error) {
	apiKey := config.Config.Youtube.APIKey
	service, err := ytapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		log.Errorf("error creating YouTube client: %v", err)
		return nil, fmt.Errorf("error creating YouTube client: %w", err)
	}

	return &Client{
		service:         service,
		maxDurationMins: config.Config.Youtube.MaxDurationMins,
		rankCtx:         ranking.NewContext(config.Config.Browse.TrustedChannels),
		pageTokens:      make(map[string]map[int]string),
	}, nil
}

// derivedQuery biases results toward actual music uploads rather than
// interviews, reactions, and shorts.
func derivedQuery(key string) string {
	return key + " (official music video|official audio|lyrics|audio|Audio)"
}

// SearchPaged fetches one page of ranked songs for the key. Page 1 starts a
// fresh walk; page N requires the token learned from page N-1.
func (c *Client) SearchPaged(ctx context.Context, key string, page int, limit int) ([]models.Song, error) {
	logger := log.WithFields(log.Fields{"module": "youtube", "method": "SearchPaged", "key": key, "page": page})

	span := sentry.StartSpan(ctx, "youtube.search")
	span.Description = "Search YouTube API"
	span.SetTag("query", key)
	span.SetTag("page", strconv.Itoa(page))
	defer span.Finish()

	if limit <= 0 || limit > 50 {
		limit = 50
	}

	call := c.service.Search.List([]string{"snippet"}).
		Context(ctx).
		Q(derivedQuery(key)).
		MaxResults(int64(limit)).
		Type("video").
		VideoCategoryId("10")

	if token := c.tokenFor(key, page); token != "" {
		call = call.PageToken(token)
	} else if page > 1 {
		// No continuation learned for this page: the walk ends here.
		logger.Trace("no continuation token, reporting exhaustion")
		span.Status = sentry.SpanStatusOK
		return nil, nil
	}

	response, err := call.Do()
	if err != nil {
		logger.Errorf("error querying YouTube: %v", err)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("error querying YouTube: %w", err)
	}
	c.storeToken(key, page+1, response.NextPageToken)

	videoIDs := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Id.Kind == "youtube#video" {
			videoIDs = append(videoIDs, item.Id.VideoId)
		}
	}
	if len(videoIDs) == 0 {
		span.Status = sentry.SpanStatusOK
		return nil, nil
	}

	songs, err := c.fetchDetails(ctx, videoIDs)
	if err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}

	ranking.Sort(songs, c.rankCtx)

	span.Status = sentry.SpanStatusOK
	span.SetData("results_count", len(songs))
	logger.Tracef("found %d songs", len(songs))
	return songs, nil
}

// SearchUnlimited walks pages for the key over a channel until the ceiling,
// the end of results, or ctx cancellation. A mid-stream failure ends the
// stream; the already-delivered batches stand.
func (c *Client) SearchUnlimited(ctx context.Context, key string, ceiling int) (<-chan []models.Song, error) {
	if c.service == nil {
		return nil, fmt.Errorf("youtube service not initialized")
	}
	if ceiling <= 0 {
		ceiling = config.Config.Browse.UnlimitedCeiling
	}

	out := make(chan []models.Song)
	go func() {
		defer close(out)
		logger := log.WithFields(log.Fields{"module": "youtube", "method": "SearchUnlimited", "key": key})

		delivered := 0
		for page := 1; delivered < ceiling; page++ {
			batch, err := c.SearchPaged(ctx, key, page, 50)
			if err != nil {
				logger.Warnf("unlimited walk stopped on page %d: %v", page, err)
				return
			}
			if len(batch) == 0 {
				return
			}
			if remaining := ceiling - delivered; len(batch) > remaining {
				batch = batch[:remaining]
			}
			select {
			case out <- batch:
				delivered += len(batch)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// fetchDetails resolves statistics and durations in a single batch call and
// drops tracks past the duration cap.
func (c *Client) fetchDetails(ctx context.Context, videoIDs []string) ([]models.Song, error) {
	call := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Context(ctx).
		Id(videoIDs...)
	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("error getting video details: %w", err)
	}

	songs := make([]models.Song, 0, len(response.Items))
	for _, item := range response.Items {
		seconds := parseISODuration(item.ContentDetails.Duration)
		if seconds > c.maxDurationMins*60 {
			continue
		}

		title := html.UnescapeString(item.Snippet.Title)
		artist, track := SplitTitle(title, item.Snippet.ChannelTitle)

		song := models.Song{
			ID:              item.Id,
			Title:           track,
			Artist:          artist,
			DurationSeconds: seconds,
			ChannelID:       item.Snippet.ChannelId,
			ChannelTitle:    item.Snippet.ChannelTitle,
		}
		if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
			song.ArtworkURL = item.Snippet.Thumbnails.High.Url
		}
		if item.Statistics != nil {
			song.ViewCount = int64(item.Statistics.ViewCount)
			song.LikeCount = int64(item.Statistics.LikeCount)
		}
		songs = append(songs, song)
	}
	return songs, nil
}

// GetSongByID resolves a single video id into a Song.
func (c *Client) GetSongByID(ctx context.Context, videoID string) (models.Song, error) {
	songs, err := c.fetchDetails(ctx, []string{videoID})
	if err != nil {
		log.Errorf("error querying YouTube: %v", err)
		return models.Song{}, err
	}
	if len(songs) == 0 {
		return models.Song{}, fmt.Errorf("no video found")
	}
	return songs[0], nil
}

func (c *Client) tokenFor(key string, page int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tokens, ok := c.pageTokens[key]; ok {
		return tokens[page]
	}
	return ""
}

func (c *Client) storeToken(key string, page int, token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pageTokens[key]; !ok {
		c.pageTokens[key] = make(map[int]string)
	}
	c.pageTokens[key][page] = token
}

// ParseYoutubeUrl extracts the video id from a youtube.com watch URL, or ""
// if the URL is not one.
func ParseYoutubeUrl(_url string) string {
	parsedURL, err := url.Parse(_url)
	if err != nil {
		return ""
	}

	if parsedURL.Host == "www.youtube.com" || parsedURL.Host == "youtube.com" {
		return parsedURL.Query().Get("v")
	}

	return ""
}

// SplitTitle splits a "Artist - Track" video title; when there is no
// separator the channel title stands in for the artist.
func SplitTitle(title string, channelTitle string) (artist string, track string) {
	if idx := strings.Index(title, " - "); idx > 0 {
		return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
	}
	return channelTitle, title
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
