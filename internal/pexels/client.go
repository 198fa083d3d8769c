// Package pexels implements the image search port against the Pexels API.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kodjooo/content-from-rss/internal/config"
)

const searchEndpoint = "https://api.pexels.com/v1/search"

// Client queries Pexels for one best-matching photo.
type Client struct {
	cfg      config.Pexels
	client   *http.Client
	endpoint string
}

// NewClient constructs a Client.
func NewClient(cfg config.Pexels) *Client {
	return &Client{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: searchEndpoint,
	}
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Large2x string `json:"large2x"`
			Large   string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// Search returns the URL of the largest rendition of the first hit,
// or an empty string when nothing matched.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build pexels request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pexels request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pexels API error: status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode pexels response: %w", err)
	}
	if len(payload.Photos) == 0 {
		return "", nil
	}

	src := payload.Photos[0].Src
	if src.Large2x != "" {
		return src.Large2x, nil
	}
	return src.Large, nil
}
