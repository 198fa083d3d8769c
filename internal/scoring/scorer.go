// Package scoring ranks news items via an external judgment call.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/kodjooo/content-from-rss/internal/models"
	"github.com/kodjooo/content-from-rss/internal/retry"
	"github.com/kodjooo/content-from-rss/internal/storage"
)

// scorePattern grabs the first 1-2 digit run in the judge's free text.
var scorePattern = regexp.MustCompile(`\d{1,2}`)

// Judge produces free text containing an embedded relevance score.
type Judge interface {
	Judge(ctx context.Context, prompt string) (string, error)
}

// Scorer evaluates news relevance, caching results by link so repeat runs
// never re-score the same item.
type Scorer struct {
	judge  Judge
	cache  *storage.ScoreCache
	policy retry.Policy
	log    *slog.Logger
}

// NewScorer constructs a Scorer.
func NewScorer(judge Judge, cache *storage.ScoreCache, policy retry.Policy, log *slog.Logger) *Scorer {
	return &Scorer{judge: judge, cache: cache, policy: policy, log: log}
}

// EvaluateMany scores a batch. Items that fail to score are skipped,
// the rest of the batch continues.
func (s *Scorer) EvaluateMany(ctx context.Context, items []models.NewsItem) []models.RankedNews {
	results := make([]models.RankedNews, 0, len(items))
	for _, item := range items {
		if ranked, ok := s.Evaluate(ctx, item); ok {
			results = append(results, ranked)
		}
	}
	return results
}

// Evaluate returns the score for one item. The cache is consulted first;
// a hit avoids the external call entirely.
func (s *Scorer) Evaluate(ctx context.Context, item models.NewsItem) (models.RankedNews, bool) {
	if cached, ok := s.cache.Get(item.Link); ok {
		return models.RankedNews{News: item, Score: cached.Score, Notes: cached.Notes}, true
	}

	var text string
	err := retry.Do(ctx, s.policy, func() error {
		var reqErr error
		text, reqErr = s.judge.Judge(ctx, buildPrompt(item))
		return reqErr
	})
	if err != nil {
		s.log.Error("relevance request failed", "link", item.Link, "error", err)
		return models.RankedNews{}, false
	}

	score, ok := parseScore(text)
	if !ok {
		// No digit in the response is a content failure, not worth a retry.
		s.log.Warn("no score found in judge response", "link", item.Link)
		return models.RankedNews{}, false
	}

	if err := s.cache.Put(item.Link, storage.CachedScore{Score: score, Notes: text}); err != nil {
		s.log.Warn("cannot persist score cache", "link", item.Link, "error", err)
	}

	return models.RankedNews{News: item, Score: score, Notes: text}, true
}

func buildPrompt(item models.NewsItem) string {
	return fmt.Sprintf(
		"Rate from 1 to 10 how much practical value, debate potential or insight "+
			"this news offers to AI practitioners and business owners.\n"+
			"Answer in the form 'score: <number> — <short comment>'.\n\n"+
			"Title: %s\nSummary: %s\nLink: %s",
		item.Title, item.Summary, item.Link,
	)
}

// parseScore extracts the first embedded integer and clamps it into [1,10].
func parseScore(text string) (int, bool) {
	match := scorePattern.FindString(text)
	if match == "" {
		return 0, false
	}
	score := 0
	for _, ch := range match {
		score = score*10 + int(ch-'0')
	}
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score, true
}
