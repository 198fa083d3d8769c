// Package gemini adapts the Gemini API to the pipeline's model ports.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/kodjooo/content-from-rss/internal/config"
)

// Client wraps one genai connection and serves the relevance judge,
// the post generator and the image generator ports.
type Client struct {
	client *genai.Client
	cfg    config.Gemini
}

// NewClient dials the Gemini API.
func NewClient(ctx context.Context, cfg config.Gemini) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, cfg: cfg}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Judge sends a relevance prompt and returns the raw text answer.
func (c *Client) Judge(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.cfg.ModelRank)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("relevance request: %w", err)
	}
	return textFromResponse(resp)
}

// GeneratePost sends a post prompt, asking for a JSON response.
func (c *Client) GeneratePost(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.cfg.ModelPost)
	model.ResponseMIMEType = "application/json"
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("post request: %w", err)
	}
	return textFromResponse(resp)
}

// GenerateImage asks an image-capable model for a picture and returns the
// inline image bytes of the first blob part.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	model := c.client.GenerativeModel(c.cfg.ModelImage)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				return blob.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("no image data in model response")
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty model response")
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if chunk, ok := part.(genai.Text); ok {
			text += string(chunk)
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text parts in model response")
	}
	return text, nil
}
