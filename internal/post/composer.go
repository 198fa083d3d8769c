// Package post composes the structured post text for an accepted item.
package post

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kodjooo/content-from-rss/internal/config"
	"github.com/kodjooo/content-from-rss/internal/models"
	"github.com/kodjooo/content-from-rss/internal/retry"
)

// ErrGeneration marks a content-generation failure: the model response
// was rejected by the composer's quality gate.
var ErrGeneration = errors.New("post generation failed")

var (
	errBadJSON   = fmt.Errorf("%w: response is not valid JSON", ErrGeneration)
	errBadLength = fmt.Errorf("%w: long body length out of bounds", ErrGeneration)
)

// Regeneration limits per failure class.
const (
	jsonRetries   = 1
	lengthRetries = 2
)

// Generator produces the raw JSON payload for a post prompt.
type Generator interface {
	GeneratePost(ctx context.Context, prompt string) (string, error)
}

// payload mirrors the JSON object the generator must return.
type payload struct {
	Title           string   `json:"title"`
	TranslatedTitle string   `json:"translated_title"`
	Summary         string   `json:"summary"`
	ShortBody       string   `json:"short_body"`
	LongBody        string   `json:"long_body"`
	Hashtags        []string `json:"hashtags"`
}

// Composer generates and validates posts.
type Composer struct {
	cfg       config.Post
	generator Generator
	policy    retry.Policy
	log       *slog.Logger
}

// NewComposer constructs a Composer.
func NewComposer(cfg config.Post, generator Generator, policy retry.Policy, log *slog.Logger) *Composer {
	return &Composer{cfg: cfg, generator: generator, policy: policy, log: log}
}

// Generate requests a post and validates it against the field and length
// contract. Invalid payloads are regenerated within a small budget, never
// repaired in place.
func (c *Composer) Generate(ctx context.Context, item models.NewsItem) (models.GeneratedPost, error) {
	var lastErr error
	jsonFailures, lengthFailures := 0, 0

	for {
		raw, err := c.request(ctx, item)
		if err != nil {
			return models.GeneratedPost{}, err
		}

		post, err := c.parseAndValidate(raw)
		if err == nil {
			return post, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, errBadJSON) && jsonFailures < jsonRetries:
			jsonFailures++
		case errors.Is(err, errBadLength) && lengthFailures < lengthRetries:
			lengthFailures++
		default:
			return models.GeneratedPost{}, lastErr
		}
		c.log.Warn("regenerating post", "link", item.Link, "reason", err)
	}
}

// request performs the transport call with the standard retry policy.
func (c *Composer) request(ctx context.Context, item models.NewsItem) (string, error) {
	var raw string
	err := retry.Do(ctx, c.policy, func() error {
		var reqErr error
		raw, reqErr = c.generator.GeneratePost(ctx, c.buildPrompt(item))
		if reqErr != nil {
			return reqErr
		}
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("empty model response")
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return raw, nil
}

func (c *Composer) buildPrompt(item models.NewsItem) string {
	keywords := strings.Join(item.Keywords, ", ")
	if keywords == "" {
		keywords = "AI"
	}
	return fmt.Sprintf(
		"You are an AI industry analyst writing for IT specialists and business owners.\n"+
			"Write in Russian. Produce a single JSON object with exactly these fields:\n"+
			"title — headline up to 100 characters;\n"+
			"translated_title — the original headline translated;\n"+
			"summary — 300-400 character digest;\n"+
			"short_body — condensed version up to %d characters, no hashtags;\n"+
			"long_body — analytical version of %d-%d characters with first-person "+
			"conclusions, **bold** for key points, no hashtags;\n"+
			"hashtags — list of 3-4 Russian words without the # symbol.\n"+
			"No extra fields, no markdown outside **bold**.\n\n"+
			"News title: %s\nNews summary: %s\nKeywords: %s",
		c.cfg.ShortBodyMax, c.cfg.LongBodyMin, c.cfg.LongBodyMax,
		item.Title, item.Summary, keywords,
	)
}

func (c *Composer) parseAndValidate(raw string) (models.GeneratedPost, error) {
	var p payload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &p); err != nil {
		return models.GeneratedPost{}, errBadJSON
	}

	required := map[string]string{
		"title":            p.Title,
		"translated_title": p.TranslatedTitle,
		"summary":          p.Summary,
		"short_body":       p.ShortBody,
		"long_body":        p.LongBody,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return models.GeneratedPost{}, fmt.Errorf("%w: missing field %s", ErrGeneration, field)
		}
	}

	longLen := utf8.RuneCountInString(p.LongBody)
	if longLen < c.cfg.LongBodyMin || longLen > c.cfg.LongBodyMax {
		return models.GeneratedPost{}, fmt.Errorf("%w: %d not in [%d,%d]", errBadLength, longLen, c.cfg.LongBodyMin, c.cfg.LongBodyMax)
	}
	if utf8.RuneCountInString(p.ShortBody) > c.cfg.ShortBodyMax {
		return models.GeneratedPost{}, fmt.Errorf("%w: short body exceeds %d characters", ErrGeneration, c.cfg.ShortBodyMax)
	}

	hashtags := dedupeHashtags(p.Hashtags)
	if len(hashtags) < 3 || len(hashtags) > 4 {
		return models.GeneratedPost{}, fmt.Errorf("%w: hashtag count must be 3-4, got %d", ErrGeneration, len(hashtags))
	}

	return models.GeneratedPost{
		Title:           strings.TrimSpace(p.Title),
		TranslatedTitle: strings.TrimSpace(p.TranslatedTitle),
		Summary:         strings.TrimSpace(p.Summary),
		ShortBody:       strings.TrimSpace(p.ShortBody),
		LongBody:        p.LongBody,
		Hashtags:        hashtags,
	}, nil
}

// dedupeHashtags drops empty and repeated tags, keeping original order.
func dedupeHashtags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(tag, "#"))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// stripCodeFence unwraps ```json fences some models insist on adding.
// The JSON inside is still parsed as-is.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
