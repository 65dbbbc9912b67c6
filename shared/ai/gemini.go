package ai

import (
	"context"
	"fmt"
	"time"

	"vibecheck/shared/config"

	"google.golang.org/genai"
)

// GeminiGenerator implements Generator on the Gemini API with JSON output.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiGenerator(ctx context.Context, cfg *config.AIConfig) (*GeminiGenerator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      genai.Ptr[float32](0.2),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}

	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
