// Package recommend derives radio continuation queries from listening
// history, using Gemini when enabled. Everything degrades to empty output so
// the radio queue can fall back to its artist-based query.
package recommend

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"reon/config"
	"reon/models"
	"reon/radio"
)

type Recommender struct{}

func New() *Recommender {
	return &Recommender{}
}

// ContinuationQuery asks the model for a short search query that continues
// the listening session. Returns "" when Gemini is disabled or fails.
func (r *Recommender) ContinuationQuery(ctx context.Context, last models.Song, recent []radio.SongHistoryEntry) string {
	if !config.Config.Gemini.Enabled {
		return ""
	}

	prompt := buildContinuationPrompt(last, recent)
	response := generateResponse(ctx, genai.Text(prompt))
	return sanitizeQuery(response)
}

func buildContinuationPrompt(last models.Song, recent []radio.SongHistoryEntry) string {
	var sb strings.Builder
	sb.WriteString(`Instructions: You pick the next songs for a music radio session.
Given the songs below, respond with ONE short search query (under 8 words) that would find
similar music: same mood, genre, or era. Respond with the query only, no quotes, no
explanation, no markdown.
Recently played:
`)
	for _, e := range recent {
		fmt.Fprintf(&sb, "- %s - %s\n", e.Artist, e.Title)
	}
	fmt.Fprintf(&sb, "Just finished: %s\n", last.Display())
	return sb.String()
}

// sanitizeQuery strips the decoration models add despite instructions.
func sanitizeQuery(response string) string {
	query := strings.TrimSpace(response)
	query = strings.Trim(query, "\"'`")
	if idx := strings.IndexByte(query, '\n'); idx != -1 {
		query = query[:idx]
	}
	if len(query) > 100 {
		return ""
	}
	return query
}

func generateResponse(ctx context.Context, prompt genai.Text) string {
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.Config.Gemini.APIKey))
	if err != nil {
		log.Errorf("failed to create gemini client: %v", err)
		return ""
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-2.0-flash")
	resp, err := model.GenerateContent(ctx, prompt)
	if err != nil {
		log.Errorf("failed to generate content: %v", err)
		return ""
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				sb.WriteString(fmt.Sprint(part))
			}
		}
	}
	return sb.String()
}
