package config

import (
	"os"
	"strconv"
	"strings"
)

type ConfigStruct struct {
	Youtube Youtube
	Spotify Spotify
	Gemini  Gemini
	Browse  Browse
	Options Options
}

type Youtube struct {
	APIKey          string
	MaxDurationMins int
}

type Spotify struct {
	ClientID     string
	ClientSecret string
	Enabled      bool
}

type Gemini struct {
	Enabled bool
	APIKey  string
}

// Browse holds the paging knobs for the incremental result accumulators.
type Browse struct {
	PageSize         int // batch-size hint per fetch
	MinBatch         int // fewer unique new items than this ends paging
	LookbackWindow   int // rows from the end that count as "near end"
	UnlimitedCeiling int // max results streamed in unlimited mode
	TrustedChannels  []string
}

type Options struct {
	Port              string
	DBPath            string
	Release           string
	SessionTTLMinutes int
}

func (s *Spotify) IsConfigured() bool {
	return s.Enabled && s.ClientID != "" && s.ClientSecret != ""
}

var Config *ConfigStruct

func NewConfig() {
	config := &ConfigStruct{
		Youtube: Youtube{
			APIKey:          os.Getenv("YOUTUBE_API_KEY"),
			MaxDurationMins: getMaxDuration(),
		},
		Spotify: Spotify{
			ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
			ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
			Enabled:      os.Getenv("SPOTIFY_ENABLED") == "true",
		},
		Gemini: Gemini{
			Enabled: os.Getenv("GEMINI_ENABLED") == "true",
			APIKey:  os.Getenv("GEMINI_API_KEY"),
		},
		Browse: Browse{
			PageSize:         getPageSize(),
			MinBatch:         getMinBatch(),
			LookbackWindow:   getLookbackWindow(),
			UnlimitedCeiling: getUnlimitedCeiling(),
			TrustedChannels:  getTrustedChannels(),
		},
		Options: Options{
			Port:              os.Getenv("PORT"),
			DBPath:            os.Getenv("DB_PATH"),
			Release:           os.Getenv("RELEASE"),
			SessionTTLMinutes: getSessionTTL(),
		},
	}

	Config = config
}

func getPageSize() int {
	sizeStr := os.Getenv("BROWSE_PAGE_SIZE")
	if sizeStr == "" {
		return 50
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		return 50
	}
	if size > 50 {
		return 50 // YouTube API max per page
	}
	return size
}

func getMinBatch() int {
	batchStr := os.Getenv("BROWSE_MIN_BATCH")
	if batchStr == "" {
		return 20
	}
	batch, err := strconv.Atoi(batchStr)
	if err != nil || batch <= 0 {
		return 20
	}
	return batch
}

func getLookbackWindow() int {
	windowStr := os.Getenv("BROWSE_LOOKBACK_WINDOW")
	if windowStr == "" {
		return 5
	}
	window, err := strconv.Atoi(windowStr)
	if err != nil || window <= 0 {
		return 5
	}
	return window
}

func getUnlimitedCeiling() int {
	ceilingStr := os.Getenv("BROWSE_UNLIMITED_CEILING")
	if ceilingStr == "" {
		return 1000
	}
	ceiling, err := strconv.Atoi(ceilingStr)
	if err != nil || ceiling <= 0 {
		return 1000
	}
	if ceiling > 1000 {
		return 1000
	}
	return ceiling
}

func getMaxDuration() int {
	durStr := os.Getenv("YOUTUBE_MAX_DURATION_MINS")
	if durStr == "" {
		return 12
	}
	dur, err := strconv.Atoi(durStr)
	if err != nil || dur <= 0 {
		return 12
	}
	return dur
}

func getSessionTTL() int {
	ttlStr := os.Getenv("SESSION_TTL_MINUTES")
	if ttlStr == "" {
		return 30
	}
	ttl, err := strconv.Atoi(ttlStr)
	if err != nil || ttl <= 0 {
		return 30
	}
	return ttl
}

func getTrustedChannels() []string {
	raw := os.Getenv("TRUSTED_CHANNEL_IDS")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	channels := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			channels = append(channels, p)
		}
	}
	return channels
}
