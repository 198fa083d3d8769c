// Package images resolves a hosted image for a post via a chain of sources.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kodjooo/content-from-rss/internal/models"
	"github.com/kodjooo/content-from-rss/internal/retry"
)

// ErrResolution means every image source and/or the upload step failed.
var ErrResolution = errors.New("image resolution failed")

// Searcher queries an external image search service. An empty URL with a
// nil error means no result.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Generator produces raw image bytes from a text prompt.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// Uploader pushes raw bytes to the hosting endpoint and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// candidate is a not-yet-uploaded image pick.
type candidate struct {
	data   []byte
	source models.ImageSource
	prompt string
}

// Resolver tries its sources in strict order: embedded feed media, external
// search (optional), generative fallback. The winner is uploaded to the host.
type Resolver struct {
	client    *http.Client
	searcher  Searcher // nil when search is disabled by configuration
	generator Generator
	uploader  Uploader
	policy    retry.Policy
	log       *slog.Logger
}

// NewResolver constructs a Resolver. Pass a nil searcher to skip the
// external search source entirely.
func NewResolver(searcher Searcher, generator Generator, uploader Uploader, policy retry.Policy, log *slog.Logger) *Resolver {
	return &Resolver{
		client:    &http.Client{Timeout: 30 * time.Second},
		searcher:  searcher,
		generator: generator,
		uploader:  uploader,
		policy:    policy,
		log:       log,
	}
}

// strategy returns nil when its source yields nothing; errors inside a
// strategy are logged by the caller and cause fallthrough, never an abort.
type strategy func(ctx context.Context, news models.NewsItem, post models.GeneratedPost) (*candidate, error)

// Select resolves and uploads an image for the post.
func (r *Resolver) Select(ctx context.Context, news models.NewsItem, post models.GeneratedPost) (models.ImageAsset, error) {
	strategies := []strategy{r.fromFeedMedia, r.fromSearch, r.fromGenerator}

	var winner *candidate
	for _, source := range strategies {
		picked, err := source(ctx, news, post)
		if err != nil {
			r.log.Warn("image source failed, trying next", "link", news.Link, "error", err)
			continue
		}
		if picked != nil {
			winner = picked
			break
		}
	}
	if winner == nil {
		return models.ImageAsset{}, fmt.Errorf("%w: all sources exhausted", ErrResolution)
	}

	url, err := r.upload(ctx, winner.data)
	if err != nil {
		return models.ImageAsset{}, err
	}

	return models.ImageAsset{URL: url, Source: winner.source, Prompt: winner.prompt}, nil
}

// fromFeedMedia downloads the item's embedded media URL, accepting only
// responses whose content type indicates an image.
func (r *Resolver) fromFeedMedia(ctx context.Context, news models.NewsItem, _ models.GeneratedPost) (*candidate, error) {
	if news.MediaURL == "" {
		return nil, nil
	}

	data, contentType, err := r.download(ctx, news.MediaURL)
	if err != nil {
		return nil, fmt.Errorf("download feed media: %w", err)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, nil
	}
	return &candidate{data: data, source: models.ImageSourceRSS}, nil
}

// fromSearch asks the search service using hashtags, falling back to the
// item title as the query. Skipped entirely when search is disabled.
func (r *Resolver) fromSearch(ctx context.Context, news models.NewsItem, post models.GeneratedPost) (*candidate, error) {
	if r.searcher == nil {
		return nil, nil
	}

	query := strings.Join(post.Hashtags, " ")
	if query == "" {
		query = news.Title
	}
	if query == "" {
		query = "artificial intelligence"
	}

	imageURL, err := r.searcher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("image search: %w", err)
	}
	if imageURL == "" {
		return nil, nil
	}

	data, _, err := r.download(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("download search result: %w", err)
	}
	return &candidate{data: data, source: models.ImageSourcePexels}, nil
}

// fromGenerator is the last resort: generate an image from a prompt built
// out of the news and post text.
func (r *Resolver) fromGenerator(ctx context.Context, news models.NewsItem, post models.GeneratedPost) (*candidate, error) {
	prompt := buildImagePrompt(news, post)
	data, err := r.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &candidate{data: data, source: models.ImageSourceGenerated, prompt: prompt}, nil
}

// upload pushes the bytes to the host with retry. A response without a
// usable URL is a hard failure: there is no further fallback after upload.
func (r *Resolver) upload(ctx context.Context, data []byte) (string, error) {
	var url string
	err := retry.Do(ctx, r.policy, func() error {
		var upErr error
		url, upErr = r.uploader.Upload(ctx, data)
		return upErr
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload: %v", ErrResolution, err)
	}
	if url == "" {
		return "", fmt.Errorf("%w: host returned no image URL", ErrResolution)
	}
	return url, nil
}

func (r *Resolver) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func buildImagePrompt(news models.NewsItem, post models.GeneratedPost) string {
	return fmt.Sprintf(
		"Photorealistic illustration for an article about artificial intelligence.\n"+
			"Headline: %s\nSummary: %s\nPost gist: %s",
		news.Title, truncate(news.Summary, 200), truncate(post.LongBody, 200),
	)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
