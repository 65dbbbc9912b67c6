package main

import (
	"bytes"
	"testing"

	vibecheck "vibecheck/agents/vibe-check"
	"vibecheck/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &vibecheck.AnalyzeResponse{
		Video: vibecheck.VideoSummary{
			Title:        "Never Gonna Give You Up",
			ChannelTitle: "Rick Astley",
			ViewCount:    1_500_000_000,
			LikeCount:    17_000_000,
			PublishedAt:  "14 years ago",
		},
		Sentiment: models.Distribution{Positive: 70, Neutral: 20, Negative: 10},
		Insights: vibecheck.Insights{
			Summary:               "Viewers love it.",
			TrendingTopics:        []string{"Nostalgia", "Memes"},
			TotalCommentsAnalyzed: 500,
			Degraded:              true,
		},
		TopComments: []vibecheck.CommentView{
			{Text: "Classic", Author: "@ana", Sentiment: models.SentimentPositive, Likes: 1200},
		},
		Cached: true,
	})

	out := buf.String()
	assert.Contains(t, out, "1.5B views")
	assert.Contains(t, out, "17.0M likes")
	assert.Contains(t, out, "(cached result)")
	assert.Contains(t, out, "70% positive, 20% neutral, 10% negative")
	assert.Contains(t, out, "keyword fallback")
	assert.Contains(t, out, "Trending: Nostalgia, Memes")
	assert.Contains(t, out, "[positive] @ana (1.2K likes) Classic")
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	analyze, _, err := root.Find([]string{"analyze"})
	assert.NoError(t, err)
	assert.NotNil(t, analyze.Flags().Lookup("refresh"))
	assert.NotNil(t, analyze.Flags().Lookup("json"))

	serve, _, err := root.Find([]string{"serve"})
	assert.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())
}
