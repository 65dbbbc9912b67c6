package ai

import (
	"fmt"
	"strings"

	"vibecheck/internal/models"
	"vibecheck/shared/sanitize"

	"google.golang.org/genai"
)

const (
	trendingTopicCount  = 3
	keyEmotionCount     = 3
	minTopComments      = 10
	maxTopComments      = 15
	promptCommentLength = 600
)

func buildSentimentPrompt(batch []models.Comment) string {
	var b strings.Builder
	b.WriteString("Analyze the sentiment of these YouTube comments and provide insights.\n\nComments:\n")

	for i, c := range batch {
		text := strings.Join(strings.Fields(c.Text), " ")
		fmt.Fprintf(&b, "%d. %q (%d likes) - by %s\n", i+1, sanitize.Truncate(text, promptCommentLength), c.Likes, c.Author)
	}

	fmt.Fprintf(&b, `
Respond with JSON matching the response schema:
- overall: percentages of positive, negative and neutral comments; they must add up to 100
- insights.summary: 2-3 sentences on the overall sentiment and key themes
- insights.trending_topics: exactly %d meaningful topics (not generic words)
- insights.key_emotions: exactly %d specific emotions (excited, frustrated, amazed, ...)
- top_comments: between %d and %d of the most engaging and representative comments,
  copied verbatim with their author and likes, each labelled positive, negative or neutral

Be accurate and honest in the sentiment analysis.`,
		trendingTopicCount, keyEmotionCount, minTopComments, maxTopComments)

	return b.String()
}

func sentimentSchema() *genai.Schema {
	number := &genai.Schema{Type: genai.TypeNumber}
	text := &genai.Schema{Type: genai.TypeString}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overall": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"positive": number,
					"negative": number,
					"neutral":  number,
				},
				Required: []string{"positive", "negative", "neutral"},
			},
			"insights": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"summary":         text,
					"trending_topics": {Type: genai.TypeArray, Items: text},
					"key_emotions":    {Type: genai.TypeArray, Items: text},
				},
				Required: []string{"summary", "trending_topics", "key_emotions"},
			},
			"top_comments": {
				Type:     genai.TypeArray,
				MinItems: genai.Ptr[int64](minTopComments),
				MaxItems: genai.Ptr[int64](maxTopComments),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text":   text,
						"author": text,
						"sentiment": {
							Type: genai.TypeString,
							Enum: []string{"positive", "negative", "neutral"},
						},
						"likes": number,
					},
					Required: []string{"text", "author", "sentiment", "likes"},
				},
			},
		},
		Required: []string{"overall", "insights", "top_comments"},
	}
}
