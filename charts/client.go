package charts

import (
	"context"
	"errors"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// GetChart fetches a chart/playlist from Apple Music via web scraping. The
// returned songs seed a chart-detail accumulator.
func GetChart(ctx context.Context, country, playlistID string) (*Chart, error) {
	log.Tracef("Fetching chart: country=%s, playlist=%s", country, playlistID)

	span := sentry.StartSpan(ctx, "charts.get_chart")
	span.Description = "Get chart tracks via web scraping"
	span.SetTag("country", country)
	span.SetTag("playlist_id", playlistID)
	defer span.Finish()

	if country == "" {
		country = "us" // Default to US if not specified
	}
	if playlistID == "" {
		err := errors.New("playlistID is required")
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInvalidArgument
		return nil, err
	}

	chart, err := scrapeChart(ctx, country, playlistID)
	if err != nil {
		log.Errorf("Failed to fetch chart: %v", err)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}

	if len(chart.Songs) == 0 {
		err := errors.New("chart has no tracks")
		log.Warnf("Chart %s has no tracks", playlistID)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusNotFound
		return nil, err
	}

	log.Debugf("Successfully fetched chart: '%s' (%d tracks)", chart.Name, len(chart.Songs))
	span.Status = sentry.SpanStatusOK
	span.SetData("chart_name", chart.Name)
	span.SetData("tracks_count", len(chart.Songs))

	return chart, nil
}
