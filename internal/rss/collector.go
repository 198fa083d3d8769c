// Package rss collects, filters and normalizes feed entries.
package rss

import (
	"context"
	"log/slog"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/mmcdole/gofeed"

	"github.com/kodjooo/content-from-rss/internal/config"
	"github.com/kodjooo/content-from-rss/internal/models"
)

// defaultSources is used when no feed sources are configured.
var defaultSources = []string{
	"https://techcrunch.com/category/artificial-intelligence/feed/",
	"https://venturebeat.com/category/ai/feed/",
	"https://www.technologyreview.com/feed/",
	"https://www.theverge.com/artificial-intelligence/rss/index.xml",
	"https://openai.com/blog/rss/",
	"https://ai.googleblog.com/feeds/posts/default",
	"https://www.anthropic.com/news/rss",
}

// FeedFetcher pulls one feed by URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// GofeedFetcher is the production FeedFetcher backed by gofeed.
type GofeedFetcher struct {
	parser *gofeed.Parser
}

// NewGofeedFetcher builds the default fetcher.
func NewGofeedFetcher() *GofeedFetcher {
	return &GofeedFetcher{parser: gofeed.NewParser()}
}

// Fetch downloads and parses a single feed.
func (f *GofeedFetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	return f.parser.ParseURLWithContext(url, ctx)
}

// Collector turns raw feed entries into filtered, deduplicated news items.
type Collector struct {
	cfg        config.RSS
	fetcher    FeedFetcher
	similarity *metrics.Levenshtein
	log        *slog.Logger
}

// NewCollector constructs a Collector.
func NewCollector(cfg config.RSS, fetcher FeedFetcher, log *slog.Logger) *Collector {
	return &Collector{
		cfg:        cfg,
		fetcher:    fetcher,
		similarity: metrics.NewLevenshtein(),
		log:        log,
	}
}

// Collect iterates the configured sources and returns at most MaxItems
// normalized news items. A failing source is skipped, never fatal.
func (c *Collector) Collect(ctx context.Context) []models.NewsItem {
	seenLinks := make(map[string]struct{})
	var seenTitles []string
	var result []models.NewsItem

	for _, source := range c.sources() {
		feed, err := c.fetcher.Fetch(ctx, source)
		if err != nil {
			c.log.Warn("feed fetch failed, skipping source", "source", source, "error", err)
			continue
		}

		for _, item := range feed.Items {
			raw := toRawEntry(source, item)
			if raw.Link == "" {
				continue
			}
			if _, dup := seenLinks[raw.Link]; dup {
				continue
			}
			if !c.matchesKeywords(raw) {
				continue
			}
			if c.isSimilar(raw.Title, seenTitles) {
				continue
			}

			result = append(result, c.normalize(raw))
			seenLinks[raw.Link] = struct{}{}
			seenTitles = append(seenTitles, raw.Title)
			if len(result) >= c.cfg.MaxItems {
				return result
			}
		}
	}

	return result
}

func (c *Collector) sources() []string {
	if len(c.cfg.Sources) > 0 {
		return c.cfg.Sources
	}
	return defaultSources
}

// matchesKeywords accepts everything when no keywords are configured,
// otherwise requires a case-insensitive substring hit in title+summary.
func (c *Collector) matchesKeywords(raw models.RawEntry) bool {
	if len(c.cfg.Keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(raw.Title + " " + raw.Summary)
	for _, keyword := range c.cfg.Keywords {
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// isSimilar compares a title against every earlier-accepted title.
// Earlier-seen titles anchor the comparison, so the pass is order-dependent.
func (c *Collector) isSimilar(title string, seenTitles []string) bool {
	lowered := strings.ToLower(title)
	for _, seen := range seenTitles {
		ratio := strutil.Similarity(lowered, strings.ToLower(seen), c.similarity)
		if ratio >= c.cfg.SimilarityThreshold {
			return true
		}
	}
	return false
}

func (c *Collector) normalize(raw models.RawEntry) models.NewsItem {
	haystack := strings.ToLower(raw.Title + " " + raw.Summary)
	var matched []string
	for _, keyword := range c.cfg.Keywords {
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			matched = append(matched, keyword)
		}
	}

	return models.NewsItem{
		Source:    raw.Source,
		Title:     raw.Title,
		Link:      raw.Link,
		Summary:   raw.Summary,
		Published: raw.Published,
		Keywords:  matched,
		MediaURL:  raw.MediaURL,
	}
}

func toRawEntry(source string, item *gofeed.Item) models.RawEntry {
	return models.RawEntry{
		Source:    source,
		Title:     strings.TrimSpace(item.Title),
		Link:      strings.TrimSpace(item.Link),
		Summary:   stripHTML(item.Description),
		Published: item.PublishedParsed,
		MediaURL:  extractMediaURL(item),
	}
}

// extractMediaURL tries enclosures first, then media extension content,
// then the item image. First non-empty URL wins.
func extractMediaURL(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && enclosure.URL != "" {
			return enclosure.URL
		}
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, content := range media["content"] {
			if url := content.Attrs["url"]; url != "" {
				return url
			}
		}
	}
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}
