package scoring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodjooo/content-from-rss/internal/models"
	"github.com/kodjooo/content-from-rss/internal/retry"
	"github.com/kodjooo/content-from-rss/internal/storage"
)

type fakeJudge struct {
	responses []string
	err       error
	calls     int
}

func (j *fakeJudge) Judge(_ context.Context, _ string) (string, error) {
	j.calls++
	if j.err != nil {
		return "", j.err
	}
	response := j.responses[0]
	if len(j.responses) > 1 {
		j.responses = j.responses[1:]
	}
	return response, nil
}

func newTestScorer(t *testing.T, judge Judge) *Scorer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache, err := storage.NewScoreCache(t.TempDir(), log)
	require.NoError(t, err)
	policy := retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
	return NewScorer(judge, cache, policy, log)
}

func newsItem(link string) models.NewsItem {
	return models.NewsItem{
		Source:  "https://example.com/feed",
		Title:   "AI breakthrough",
		Link:    link,
		Summary: "New AI model released",
	}
}

func TestEvaluateParsesScore(t *testing.T) {
	judge := &fakeJudge{responses: []string{"score: 9 — worth publishing"}}
	scorer := newTestScorer(t, judge)

	ranked, ok := scorer.Evaluate(context.Background(), newsItem("https://example.com/1"))

	require.True(t, ok)
	assert.Equal(t, 9, ranked.Score)
	assert.Equal(t, "score: 9 — worth publishing", ranked.Notes)
	assert.Equal(t, 1, judge.calls)
}

func TestEvaluateClampsScore(t *testing.T) {
	tests := []struct {
		response string
		want     int
	}{
		{"score: 99", 10},
		{"score: 0", 1},
		{"10 out of 10", 10},
		{"just a 5", 5},
	}
	for _, tt := range tests {
		t.Run(tt.response, func(t *testing.T) {
			scorer := newTestScorer(t, &fakeJudge{responses: []string{tt.response}})
			ranked, ok := scorer.Evaluate(context.Background(), newsItem("https://example.com/clamp"))
			require.True(t, ok)
			assert.Equal(t, tt.want, ranked.Score)
		})
	}
}

func TestEvaluateDropsResponseWithoutDigits(t *testing.T) {
	judge := &fakeJudge{responses: []string{"no idea, sorry"}}
	scorer := newTestScorer(t, judge)

	_, ok := scorer.Evaluate(context.Background(), newsItem("https://example.com/1"))

	assert.False(t, ok)
	// Content failures are not retried.
	assert.Equal(t, 1, judge.calls)
}

func TestEvaluateUsesCache(t *testing.T) {
	judge := &fakeJudge{responses: []string{"score: 8"}}
	scorer := newTestScorer(t, judge)
	item := newsItem("https://example.com/1")

	first, ok := scorer.Evaluate(context.Background(), item)
	require.True(t, ok)
	second, ok := scorer.Evaluate(context.Background(), item)
	require.True(t, ok)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, 1, judge.calls)
}

func TestEvaluateRetriesTransportFailures(t *testing.T) {
	judge := &fakeJudge{err: fmt.Errorf("timeout")}
	scorer := newTestScorer(t, judge)

	_, ok := scorer.Evaluate(context.Background(), newsItem("https://example.com/1"))

	assert.False(t, ok)
	assert.Equal(t, 2, judge.calls)
}

func TestEvaluateManySkipsFailures(t *testing.T) {
	judge := &fakeJudge{responses: []string{"score: 7", "gibberish", "score: 10"}}
	scorer := newTestScorer(t, judge)

	ranked := scorer.EvaluateMany(context.Background(), []models.NewsItem{
		newsItem("https://example.com/1"),
		newsItem("https://example.com/2"),
		newsItem("https://example.com/3"),
	})

	require.Len(t, ranked, 2)
	assert.Equal(t, 7, ranked[0].Score)
	assert.Equal(t, 10, ranked[1].Score)
}

func TestScoreCachePersistsAcrossInstances(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	cache, err := storage.NewScoreCache(dir, log)
	require.NoError(t, err)
	policy := retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}

	judge := &fakeJudge{responses: []string{"score: 6"}}
	scorer := NewScorer(judge, cache, policy, log)
	_, ok := scorer.Evaluate(context.Background(), newsItem("https://example.com/1"))
	require.True(t, ok)

	reloaded, err := storage.NewScoreCache(dir, log)
	require.NoError(t, err)
	scorer = NewScorer(judge, reloaded, policy, log)

	ranked, ok := scorer.Evaluate(context.Background(), newsItem("https://example.com/1"))
	require.True(t, ok)
	assert.Equal(t, 6, ranked.Score)
	assert.Equal(t, 1, judge.calls)
}
