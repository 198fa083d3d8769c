// Package storage keeps the on-disk relevance score cache.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// CachedScore is one persisted evaluation keyed by news link.
type CachedScore struct {
	Score int    `json:"score"`
	Notes string `json:"notes,omitempty"`
}

// ScoreCache is a link-keyed score store backed by a single JSON file.
// It is loaded once at construction and rewritten after every Put.
type ScoreCache struct {
	filePath string
	items    map[string]CachedScore
	log      *slog.Logger
}

// NewScoreCache loads the cache from dir/relevance_cache.json.
// A corrupted file is discarded and the cache starts empty.
func NewScoreCache(dir string, log *slog.Logger) (*ScoreCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	cache := &ScoreCache{
		filePath: filepath.Join(dir, "relevance_cache.json"),
		items:    make(map[string]CachedScore),
		log:      log,
	}
	cache.load()
	return cache, nil
}

func (c *ScoreCache) load() {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("cannot read score cache, starting empty", "path", c.filePath, "error", err)
		}
		return
	}
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, &c.items); err != nil {
		c.log.Warn("score cache is corrupted, rebuilding", "path", c.filePath, "error", err)
		c.items = make(map[string]CachedScore)
	}
}

// Get returns the cached evaluation for a link, if any.
func (c *ScoreCache) Get(link string) (CachedScore, bool) {
	item, ok := c.items[link]
	return item, ok
}

// Put stores one evaluation and flushes the cache to disk immediately,
// so a crash mid-batch loses no completed work.
func (c *ScoreCache) Put(link string, item CachedScore) error {
	c.items[link] = item
	return c.save()
}

// Len reports the number of cached evaluations.
func (c *ScoreCache) Len() int {
	return len(c.items)
}

func (c *ScoreCache) save() error {
	data, err := json.MarshalIndent(c.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal score cache: %w", err)
	}
	if err := os.WriteFile(c.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write score cache: %w", err)
	}
	return nil
}
