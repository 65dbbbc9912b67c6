package models

import (
	"strings"
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment maps a free-form label onto one of the three sentiments.
// Anything unrecognised is neutral.
func ParseSentiment(label string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(label))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Distribution holds whole-number percentages. A valid distribution sums to 100.
type Distribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (d Distribution) Total() int {
	return d.Positive + d.Neutral + d.Negative
}

type TopicSize string

const (
	TopicSizeSmall  TopicSize = "sm"
	TopicSizeMedium TopicSize = "md"
	TopicSizeLarge  TopicSize = "lg"
	TopicSizeXL     TopicSize = "xl"
)

type TopicColor string

const (
	TopicColorEmerald TopicColor = "emerald"
	TopicColorBlue    TopicColor = "blue"
	TopicColorPurple  TopicColor = "purple"
	TopicColorYellow  TopicColor = "yellow"
	TopicColorRed     TopicColor = "red"
	TopicColorIndigo  TopicColor = "indigo"
	TopicColorTeal    TopicColor = "teal"
	TopicColorViolet  TopicColor = "violet"
)

// TopicPalette is the fixed color rotation applied to trending topics.
var TopicPalette = []TopicColor{
	TopicColorEmerald, TopicColorBlue, TopicColorPurple, TopicColorYellow,
	TopicColorRed, TopicColorIndigo, TopicColorTeal, TopicColorViolet,
}

type Topic struct {
	Text  string     `json:"text"`
	Size  TopicSize  `json:"size"`
	Color TopicColor `json:"color"`
}

type TimelinePoint struct {
	Label    string `json:"label"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
}

type SentimentAggregate struct {
	ID             int64           `json:"id"`
	VideoKey       int64           `json:"video_key"`
	Distribution   Distribution    `json:"distribution"`
	TotalComments  int             `json:"total_comments"`
	Summary        string          `json:"summary"`
	TrendingTopics []Topic         `json:"trending_topics"`
	Timeline       []TimelinePoint `json:"timeline"`
	KeyInsights    []string        `json:"key_insights"`
	Degraded       bool            `json:"degraded"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TopComment is a representative comment selected by the analyzer.
type TopComment struct {
	ID        int64     `json:"id"`
	VideoKey  int64     `json:"video_key"`
	VideoID   string    `json:"video_id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Likes     int64     `json:"likes"`
	Replies   int64     `json:"replies"`
	Sentiment Sentiment `json:"sentiment"`
	Timestamp string    `json:"timestamp,omitempty"`
	URL       string    `json:"url"`
}
