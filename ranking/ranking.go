// Package ranking orders search results for the browse surfaces. The score is
// a plain weighted sum over song metadata so the ordering is testable in
// isolation from any search backend.
package ranking

import (
	"math"
	"sort"
	"strings"

	"reon/models"
)

// Weight constants. Views and likes are log-scaled so a viral video does not
// drown out everything else; the trusted-channel bonus outweighs any single
// popularity signal.
const (
	TrustedChannelBonus = 50.0
	OfficialTitleBonus  = 20.0
	LyricsTitleBonus    = 10.0
	ViewWeight          = 4.0
	LikeRatioWeight     = 15.0
	CoverPenalty        = 15.0
	ShortTrackPenalty   = 25.0

	minTrackSeconds = 60
)

// Context carries the scoring inputs that are not part of the song itself.
type Context struct {
	TrustedChannels map[string]struct{}
}

// NewContext builds a scoring context from a channel-id allowlist.
func NewContext(trustedChannels []string) Context {
	set := make(map[string]struct{}, len(trustedChannels))
	for _, id := range trustedChannels {
		set[id] = struct{}{}
	}
	return Context{TrustedChannels: set}
}

// Score returns the priority score for a song. Higher is better.
func Score(song models.Song, ctx Context) float64 {
	score := 0.0

	if _, ok := ctx.TrustedChannels[song.ChannelID]; ok {
		score += TrustedChannelBonus
	}

	title := strings.ToLower(song.Title)
	switch {
	case strings.Contains(title, "official audio"),
		strings.Contains(title, "official music video"),
		strings.Contains(title, "official video"):
		score += OfficialTitleBonus
	case strings.Contains(title, "lyric"):
		score += LyricsTitleBonus
	}
	if strings.Contains(title, "cover") || strings.Contains(title, "remix") {
		score -= CoverPenalty
	}

	if song.ViewCount > 0 {
		score += ViewWeight * math.Log10(float64(song.ViewCount))
	}
	if song.ViewCount > 0 && song.LikeCount > 0 {
		ratio := float64(song.LikeCount) / float64(song.ViewCount)
		if ratio > 1 {
			ratio = 1
		}
		score += LikeRatioWeight * ratio
	}

	if song.DurationSeconds > 0 && song.DurationSeconds < minTrackSeconds {
		score -= ShortTrackPenalty
	}

	return score
}

// Sort orders songs by descending score. The sort is stable so equally scored
// songs keep the order the backend returned them in.
func Sort(items []models.Song, ctx Context) {
	sort.SliceStable(items, func(i, j int) bool {
		return Score(items[i], ctx) > Score(items[j], ctx)
	})
}
