package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vibecheck/internal/models"
	"vibecheck/shared/config"
	"vibecheck/shared/sanitize"

	"github.com/goccy/go-json"
	"google.golang.org/genai"
)

const (
	DefaultBatchSize = 500
	emptySummary     = "No comments available for analysis."
)

// Generator is a text-generation call constrained by a response schema.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

type ScoredComment struct {
	Text      string           `json:"text"`
	Author    string           `json:"author"`
	Sentiment models.Sentiment `json:"sentiment"`
	Likes     int64            `json:"likes"`
}

type Result struct {
	Overall        models.Distribution `json:"overall"`
	Summary        string              `json:"summary"`
	TrendingTopics []string            `json:"trending_topics"`
	KeyEmotions    []string            `json:"key_emotions"`
	TopComments    []ScoredComment     `json:"top_comments"`
	Analyzed       int                 `json:"analyzed"`
	Degraded       bool                `json:"degraded"`
}

type SentimentAnalyzer struct {
	generator Generator
	batchSize int
}

// NewAnalyzer wires a SentimentAnalyzer to Gemini using cfg.
func NewAnalyzer(ctx context.Context, cfg *config.AIConfig) (*SentimentAnalyzer, error) {
	gen, err := NewGeminiGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewSentimentAnalyzer(gen, cfg.BatchSize), nil
}

func NewSentimentAnalyzer(gen Generator, batchSize int) *SentimentAnalyzer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SentimentAnalyzer{generator: gen, batchSize: batchSize}
}

// Analyze classifies comments in received order. Only the first batchSize
// comments are considered. A failing or unusable model response degrades
// to the keyword classifier; Analyze itself never fails.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, comments []models.Comment) *Result {
	if len(comments) == 0 {
		return &Result{
			Overall:        models.Distribution{Neutral: 100},
			Summary:        emptySummary,
			TrendingTopics: []string{},
			KeyEmotions:    []string{},
			TopComments:    []ScoredComment{},
		}
	}

	batch := comments[:min(a.batchSize, len(comments))]

	start := time.Now()
	slog.Info("starting sentiment analysis", "comments", len(batch))

	result, err := a.analyzeWithModel(ctx, batch)
	if err != nil {
		slog.Warn("model analysis failed, using keyword fallback",
			"comments", len(batch), "error", err, "elapsed", time.Since(start))
		return fallbackAnalysis(batch)
	}

	slog.Info("sentiment analysis complete",
		"comments", len(batch), "top_comments", len(result.TopComments), "elapsed", time.Since(start))
	return result
}

func (a *SentimentAnalyzer) analyzeWithModel(ctx context.Context, batch []models.Comment) (*Result, error) {
	if a.generator == nil {
		return nil, errors.New("no generator configured")
	}

	raw, err := a.generator.Generate(ctx, buildSentimentPrompt(batch), sentimentSchema())
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}

	parsed, err := parseModelResponse(raw)
	if err != nil {
		return nil, err
	}

	overall, err := Normalize(parsed.Overall.Positive, parsed.Overall.Neutral, parsed.Overall.Negative)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Overall:        overall,
		Summary:        sanitize.Text(parsed.Insights.Summary),
		TrendingTopics: cleanLabels(parsed.Insights.TrendingTopics, trendingTopicCount),
		KeyEmotions:    cleanLabels(parsed.Insights.KeyEmotions, keyEmotionCount),
		TopComments:    make([]ScoredComment, 0, min(len(parsed.TopComments), maxTopComments)),
		Analyzed:       len(batch),
	}

	for _, c := range parsed.TopComments {
		if len(result.TopComments) == maxTopComments {
			break
		}
		text := sanitize.Text(c.Text)
		if text == "" {
			continue
		}
		likes := int64(c.Likes)
		if likes < 0 {
			likes = 0
		}
		result.TopComments = append(result.TopComments, ScoredComment{
			Text:      text,
			Author:    sanitize.Text(c.Author),
			Sentiment: models.ParseSentiment(c.Sentiment),
			Likes:     likes,
		})
	}

	return result, nil
}

type modelResponse struct {
	Overall struct {
		Positive float64 `json:"positive"`
		Negative float64 `json:"negative"`
		Neutral  float64 `json:"neutral"`
	} `json:"overall"`
	Insights struct {
		Summary        string   `json:"summary"`
		TrendingTopics []string `json:"trending_topics"`
		KeyEmotions    []string `json:"key_emotions"`
	} `json:"insights"`
	TopComments []struct {
		Text      string  `json:"text"`
		Author    string  `json:"author"`
		Sentiment string  `json:"sentiment"`
		Likes     float64 `json:"likes"`
	} `json:"top_comments"`
}

var ErrEmptyResponse = errors.New("empty response from model")

func parseModelResponse(response string) (*modelResponse, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("no JSON object found in model response")
	}

	jsonStr := response[startIdx : endIdx+1]

	var result modelResponse
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		repaired := repairJSON(jsonStr)
		if repairErr := json.Unmarshal([]byte(repaired), &result); repairErr != nil {
			return nil, fmt.Errorf("failed to unmarshal model response: %w (repaired version also failed: %v)", err, repairErr)
		}
		slog.Warn("model response needed JSON repair")
	}

	return &result, nil
}

// repairJSON escapes stray double quotes inside single-line string values,
// the most common way model output breaks JSON.
func repairJSON(jsonStr string) string {
	lines := strings.Split(jsonStr, "\n")
	repaired := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx != -1 {
			beforeColon := line[:colonIdx+1]
			afterColon := strings.TrimSpace(line[colonIdx+1:])

			if strings.HasPrefix(afterColon, "\"") {
				lastQuoteIdx := strings.LastIndex(afterColon, "\"")
				if lastQuoteIdx > 0 {
					content := afterColon[1:lastQuoteIdx]
					content = strings.ReplaceAll(content, `\"`, `"`)
					content = strings.ReplaceAll(content, `"`, `\"`)
					line = beforeColon + " \"" + content + "\"" + afterColon[lastQuoteIdx+1:]
				}
			}
		}

		repaired = append(repaired, line)
	}

	return strings.Join(repaired, "\n")
}

func cleanLabels(labels []string, limit int) []string {
	out := make([]string, 0, min(len(labels), limit))
	for _, l := range labels {
		if len(out) == limit {
			break
		}
		if l = sanitize.Text(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
