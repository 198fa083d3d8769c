// Package pipeline orchestrates one full collect-score-publish run.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/kodjooo/content-from-rss/internal/metrics"
	"github.com/kodjooo/content-from-rss/internal/models"
	"github.com/kodjooo/content-from-rss/internal/selection"
)

// Collector produces normalized news items.
type Collector interface {
	Collect(ctx context.Context) []models.NewsItem
}

// Scorer ranks items, skipping ones it cannot score.
type Scorer interface {
	EvaluateMany(ctx context.Context, items []models.NewsItem) []models.RankedNews
}

// Composer builds the post text for one accepted item.
type Composer interface {
	Generate(ctx context.Context, item models.NewsItem) (models.GeneratedPost, error)
}

// ImageResolver picks and hosts an image for one post.
type ImageResolver interface {
	Select(ctx context.Context, news models.NewsItem, post models.GeneratedPost) (models.ImageAsset, error)
}

// Store is the spreadsheet-like persistence collaborator.
type Store interface {
	AppendRecords(ctx context.Context, records []models.PublicationRecord) error
	ExistingLinks(ctx context.Context) (map[string]struct{}, error)
	ClearRecords(ctx context.Context) error
}

// Selector picks the publish set from ranked news.
type Selector func([]models.RankedNews) []models.RankedNews

// Stats summarizes one run.
type Stats struct {
	Processed int
	Accepted  int
	Published int
	Failed    int
}

// Deps wires the collaborators into a Runner.
type Deps struct {
	Collector Collector
	Scorer    Scorer
	Composer  Composer
	Images    ImageResolver
	Store     Store
	Selector  Selector // defaults to selection.Select

	Location        *time.Location
	EarliestRunHour int
	RecencyWindow   time.Duration
	Log             *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Runner drives the fixed pipeline shape:
// collect -> dedupe -> score -> select -> generate -> publish.
type Runner struct {
	collector Collector
	scorer    Scorer
	composer  Composer
	images    ImageResolver
	store     Store
	selectFn  Selector

	location        *time.Location
	earliestRunHour int
	recencyWindow   time.Duration
	now             func() time.Time
	log             *slog.Logger
}

// NewRunner constructs a Runner.
func NewRunner(deps Deps) *Runner {
	r := &Runner{
		collector:       deps.Collector,
		scorer:          deps.Scorer,
		composer:        deps.Composer,
		images:          deps.Images,
		store:           deps.Store,
		selectFn:        deps.Selector,
		location:        deps.Location,
		earliestRunHour: deps.EarliestRunHour,
		recencyWindow:   deps.RecencyWindow,
		now:             deps.Now,
		log:             deps.Log,
	}
	if r.selectFn == nil {
		r.selectFn = selection.Select
	}
	if r.location == nil {
		r.location = time.UTC
	}
	if r.recencyWindow <= 0 {
		r.recencyWindow = 12 * time.Hour
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run executes one full cycle. It always completes: per-item failures are
// isolated and counted, never propagated.
func (r *Runner) Run(ctx context.Context) Stats {
	var stats Stats

	if r.shouldResetSheet() {
		if err := r.store.ClearRecords(ctx); err != nil {
			// Proceed with stale data rather than lose the run.
			r.log.Warn("sheet reset failed, continuing", "error", err)
		} else {
			r.log.Info("sheet cleared before earliest daily run")
		}
	}

	items := r.collector.Collect(ctx)
	items = r.dropPublished(ctx, items)
	items = r.dropStale(items)
	stats.Processed = len(items)

	ranked := r.scorer.EvaluateMany(ctx, items)
	accepted := r.selectFn(ranked)
	stats.Accepted = len(accepted)

	if len(accepted) == 0 {
		r.log.Info("no relevant news to publish", "processed", stats.Processed)
		metrics.Global.RecordRun(stats.Processed, 0, 0, 0)
		return stats
	}

	var records []models.PublicationRecord
	for _, item := range accepted {
		record, err := r.processItem(ctx, item)
		if err != nil {
			stats.Failed++
			r.log.Error("item processing failed", "link", item.News.Link, "error", err)
			continue
		}
		records = append(records, record)
	}

	if len(records) > 0 {
		if err := r.store.AppendRecords(ctx, records); err != nil {
			// The batch is all-or-nothing: every record counts as failed.
			stats.Failed += len(records)
			r.log.Error("batch persistence failed", "records", len(records), "error", err)
			metrics.Global.SetError(err.Error())
		} else {
			stats.Published = len(records)
		}
	}

	r.log.Info("run complete",
		"processed", stats.Processed,
		"accepted", stats.Accepted,
		"published", stats.Published,
		"failed", stats.Failed,
	)
	metrics.Global.RecordRun(stats.Processed, stats.Accepted, stats.Published, stats.Failed)
	return stats
}

// processItem drives compose -> image -> record for one accepted item.
// An image failure is tolerated: the record is written without an asset.
func (r *Runner) processItem(ctx context.Context, item models.RankedNews) (models.PublicationRecord, error) {
	post, err := r.composer.Generate(ctx, item.News)
	if err != nil {
		return models.PublicationRecord{}, err
	}

	image, err := r.images.Select(ctx, item.News, post)
	if err != nil {
		r.log.Warn("image resolution failed, publishing without image", "link", item.News.Link, "error", err)
		image = models.ImageAsset{}
	}

	return r.buildRecord(item, post, image), nil
}

func (r *Runner) buildRecord(item models.RankedNews, post models.GeneratedPost, image models.ImageAsset) models.PublicationRecord {
	status := models.StatusWritten
	if item.Score >= 9 {
		status = models.StatusRevised
	}

	return models.PublicationRecord{
		Date:    r.now().In(r.location),
		Source:  item.News.Source,
		Title:   item.News.Title,
		Link:    item.News.Link,
		Summary: item.News.Summary,
		Post:    post,
		Image:   image,
		Score:   item.Score,
		Status:  status,
		Notes:   item.Notes,
	}
}

// dropPublished removes items whose link is already in the store.
// A failed lookup is treated as no existing links.
func (r *Runner) dropPublished(ctx context.Context, items []models.NewsItem) []models.NewsItem {
	existing, err := r.store.ExistingLinks(ctx)
	if err != nil {
		r.log.Warn("cannot read existing links, assuming none", "error", err)
		return items
	}
	if len(existing) == 0 {
		return items
	}

	fresh := items[:0]
	for _, item := range items {
		if _, published := existing[item.Link]; published {
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh
}

// dropStale removes items without a publish timestamp or older than the
// recency window. Timestamps are compared as instants, so zone differences
// between sources do not matter.
func (r *Runner) dropStale(items []models.NewsItem) []models.NewsItem {
	cutoff := r.now().Add(-r.recencyWindow)

	fresh := items[:0]
	for _, item := range items {
		if item.Published == nil || item.Published.Before(cutoff) {
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh
}

// shouldResetSheet fires when the local hour matches the earliest scheduled
// run hour. There is no per-day guard, so a second run within that hour
// would clear the sheet again.
func (r *Runner) shouldResetSheet() bool {
	return r.now().In(r.location).Hour() == r.earliestRunHour
}
