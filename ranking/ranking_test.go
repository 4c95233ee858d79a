package ranking

import (
	"testing"

	"reon/models"
)

func TestScoreTrustedChannel(t *testing.T) {
	ctx := NewContext([]string{"UC-trusted"})

	trusted := models.Song{ID: "a", Title: "Song", ChannelID: "UC-trusted"}
	unknown := models.Song{ID: "b", Title: "Song", ChannelID: "UC-other"}

	if Score(trusted, ctx) <= Score(unknown, ctx) {
		t.Error("trusted channel must outscore an unknown channel")
	}
	if got := Score(trusted, ctx) - Score(unknown, ctx); got != TrustedChannelBonus {
		t.Errorf("trusted delta = %v, want %v", got, TrustedChannelBonus)
	}
}

func TestScoreTitleFlags(t *testing.T) {
	ctx := NewContext(nil)
	tests := []struct {
		name  string
		title string
		want  float64
	}{
		{"official_audio", "Artist - Song (Official Audio)", OfficialTitleBonus},
		{"official_video", "Artist - Song (Official Video)", OfficialTitleBonus},
		{"official_music_video", "Song [Official Music Video]", OfficialTitleBonus},
		{"lyric_video", "Song (Lyric Video)", LyricsTitleBonus},
		{"lyrics", "Song (Lyrics)", LyricsTitleBonus},
		{"plain", "Song", 0},
		{"cover", "Song (Acoustic Cover)", -CoverPenalty},
		{"remix", "Song [Remix]", -CoverPenalty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(models.Song{ID: "x", Title: tt.title}, ctx); got != tt.want {
				t.Errorf("Score(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestScorePopularityLogScaled(t *testing.T) {
	ctx := NewContext(nil)

	small := Score(models.Song{ID: "a", ViewCount: 1_000}, ctx)
	big := Score(models.Song{ID: "b", ViewCount: 1_000_000}, ctx)

	if big <= small {
		t.Error("more views must score higher")
	}
	// Log scaling: 1000x the views is exactly 3 decades, not 1000x the score.
	if delta := big - small; delta != 3*ViewWeight {
		t.Errorf("view delta = %v, want %v", delta, 3*ViewWeight)
	}
}

func TestScoreLikeRatioCapped(t *testing.T) {
	ctx := NewContext(nil)

	// LikeCount above ViewCount (bad data) must not exceed the full ratio bonus.
	weird := Score(models.Song{ID: "a", ViewCount: 10, LikeCount: 1000}, ctx)
	perfect := Score(models.Song{ID: "b", ViewCount: 10, LikeCount: 10}, ctx)
	if weird != perfect {
		t.Errorf("ratio must cap at 1: got %v vs %v", weird, perfect)
	}
}

func TestScoreShortTrackPenalty(t *testing.T) {
	ctx := NewContext(nil)
	short := Score(models.Song{ID: "a", DurationSeconds: 30}, ctx)
	normal := Score(models.Song{ID: "b", DurationSeconds: 210}, ctx)
	if short >= normal {
		t.Error("sub-minute tracks must be penalized")
	}
}

func TestSortStable(t *testing.T) {
	ctx := NewContext(nil)
	items := []models.Song{
		{ID: "tie-1", Title: "Song"},
		{ID: "tie-2", Title: "Song"},
		{ID: "winner", Title: "Song (Official Audio)"},
	}
	Sort(items, ctx)

	if items[0].ID != "winner" {
		t.Errorf("items[0] = %s, want winner", items[0].ID)
	}
	if items[1].ID != "tie-1" || items[2].ID != "tie-2" {
		t.Errorf("tied items reordered: %s, %s", items[1].ID, items[2].ID)
	}
}
