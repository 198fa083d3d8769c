// Package imagehost uploads image bytes to a FreeImageHost-style endpoint.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/kodjooo/content-from-rss/internal/config"
)

// Client is the image hosting adapter.
type Client struct {
	cfg    config.ImageHost
	client *http.Client
}

// NewClient constructs a Client.
func NewClient(cfg config.ImageHost) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type uploadResponse struct {
	Image struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"image"`
}

// Upload posts the bytes as a multipart form and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("key", c.cfg.APIKey); err != nil {
		return "", fmt.Errorf("write api key field: %w", err)
	}
	part, err := writer.CreateFormFile("source", "image.jpg")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write image payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image host error: status %d", resp.StatusCode)
	}

	var payload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if payload.Image.URL != "" {
		return payload.Image.URL, nil
	}
	return payload.Image.DisplayURL, nil
}
