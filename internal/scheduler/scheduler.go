// Package scheduler triggers pipeline runs at fixed wall-clock hours.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Job is the work a scheduler tick triggers.
type Job func(ctx context.Context)

// Scheduler fires the job at minute zero of each configured hour in the
// configured timezone. Runs are sequential; a tick that arrives while the
// job is still draining waits for it.
type Scheduler struct {
	hours          []int
	location       *time.Location
	runOnceOnStart bool
	job            Job
	log            *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// New constructs a Scheduler.
func New(hours []int, location *time.Location, runOnceOnStart bool, job Job, log *slog.Logger) *Scheduler {
	sorted := append([]int(nil), hours...)
	sort.Ints(sorted)
	return &Scheduler{
		hours:          sorted,
		location:       location,
		runOnceOnStart: runOnceOnStart,
		job:            job,
		log:            log,
		stop:           make(chan struct{}),
	}
}

// Start blocks, running the job per schedule until Stop or context end.
func (s *Scheduler) Start(ctx context.Context) {
	if s.runOnceOnStart {
		s.log.Info("running pipeline once on start")
		s.job(ctx)
	}

	for {
		next := s.NextRun(time.Now().In(s.location))
		s.log.Info("next scheduled run", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.job(ctx)
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stop:
			timer.Stop()
			return
		}
	}
}

// Stop ends the Start loop after the current job, if any, finishes.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// NextRun returns the first scheduled instant strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	now = now.In(s.location)
	for _, hour := range s.hours {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, s.location)
		if candidate.After(now) {
			return candidate
		}
	}
	// All hours today have passed; take the earliest hour tomorrow.
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), s.hours[0], 0, 0, 0, s.location)
}
