package ai

import (
	"strings"

	"vibecheck/internal/models"
	"vibecheck/shared/sanitize"
)

const (
	fallbackSummary       = "Analysis completed using fallback method due to API limitations."
	fallbackTopComments   = 6
	fallbackCommentLength = 150
)

var (
	positiveKeywords = []string{"good", "great", "awesome", "love", "amazing", "perfect", "excellent", "fantastic"}
	negativeKeywords = []string{"bad", "hate", "terrible", "awful", "worst", "horrible", "stupid", "trash"}

	fallbackTopics   = []string{"General Discussion", "Video Content", "Community"}
	fallbackEmotions = []string{"Mixed", "Engaged", "Responsive"}
)

// Classify labels a single comment with the keyword classifier. Keywords
// match as lower-case substrings; a comment hitting both lists, or
// neither, is neutral.
func Classify(text string) models.Sentiment {
	lower := strings.ToLower(text)
	hasPositive := containsAny(lower, positiveKeywords)
	hasNegative := containsAny(lower, negativeKeywords)

	switch {
	case hasPositive && !hasNegative:
		return models.SentimentPositive
	case hasNegative && !hasPositive:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// ClassifyAll returns the keyword distribution over texts.
func ClassifyAll(texts []string) models.Distribution {
	var positive, neutral, negative int
	for _, text := range texts {
		switch Classify(text) {
		case models.SentimentPositive:
			positive++
		case models.SentimentNegative:
			negative++
		default:
			neutral++
		}
	}
	return Percentages(positive, neutral, negative)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func fallbackAnalysis(batch []models.Comment) *Result {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	n := min(fallbackTopComments, len(batch))
	top := make([]ScoredComment, 0, n)
	for _, c := range batch[:n] {
		top = append(top, ScoredComment{
			Text:      sanitize.Truncate(c.Text, fallbackCommentLength),
			Author:    c.Author,
			Sentiment: models.SentimentNeutral,
			Likes:     c.Likes,
		})
	}

	return &Result{
		Overall:        ClassifyAll(texts),
		Summary:        fallbackSummary,
		TrendingTopics: append([]string(nil), fallbackTopics...),
		KeyEmotions:    append([]string(nil), fallbackEmotions...),
		TopComments:    top,
		Analyzed:       len(batch),
		Degraded:       true,
	}
}
