package main

import (
	"fmt"
	"io"
	"strings"

	vibecheck "vibecheck/agents/vibe-check"
)

func printReport(w io.Writer, r *vibecheck.AnalyzeResponse) {
	v := r.Video
	fmt.Fprintf(w, "%s\n%s · %s views · %s likes · %s\n", v.Title, v.ChannelTitle,
		vibecheck.FormatCount(v.ViewCount), vibecheck.FormatCount(v.LikeCount), v.PublishedAt)
	if r.Cached {
		fmt.Fprintln(w, "(cached result)")
	}

	fmt.Fprintf(w, "\nSentiment over %d comments: %d%% positive, %d%% neutral, %d%% negative\n",
		r.Insights.TotalCommentsAnalyzed, r.Sentiment.Positive, r.Sentiment.Neutral, r.Sentiment.Negative)
	if r.Insights.Degraded {
		fmt.Fprintln(w, "Note: keyword fallback used, results are approximate")
	}
	fmt.Fprintf(w, "\n%s\n", r.Insights.Summary)

	if len(r.Insights.TrendingTopics) > 0 {
		fmt.Fprintf(w, "\nTrending: %s\n", strings.Join(r.Insights.TrendingTopics, ", "))
	}
	for _, insight := range r.Insights.KeyInsights {
		fmt.Fprintf(w, "  - %s\n", insight)
	}

	if len(r.TopComments) > 0 {
		fmt.Fprintln(w, "\nTop comments:")
	}
	for _, c := range r.TopComments {
		fmt.Fprintf(w, "  [%s] %s (%s likes) %s\n", c.Sentiment, c.Author, vibecheck.FormatCount(c.Likes), c.Text)
	}
}
