// Package summarization condenses meeting transcripts with Gemini.
package summarization

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const summaryPrompt = `You are an assistant that summarizes meeting transcripts.
Write a single concise paragraph covering the key points, decisions and action items.
Respond with the paragraph only, no headings or bullet points.

Transcript:
---
%s
---`

// Config holds the Gemini settings.
type Config struct {
	APIKey string
	Model  string
}

// Client produces one-paragraph summaries of transcripts.
type Client struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewClient creates a summarization client.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: client, model: cfg.Model, logger: logger}, nil
}

// Summarize returns a single-paragraph summary of the transcript.
// An empty model response is an error.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	prompt := fmt.Sprintf(summaryPrompt, transcript)

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model %s", c.model)
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty summary from model %s", c.model)
	}
	c.logger.Debug("summary generated", zap.Int("summary_len", len(text)))
	return text, nil
}
