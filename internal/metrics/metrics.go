// Package metrics tracks pipeline run counters for the monitoring endpoints.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	RunsCompleted    int64
	NewsProcessed    int64
	NewsAccepted     int64
	RecordsPublished int64
	ItemsFailed      int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

// RecordRun folds one run's statistics into the counters.
func (m *Metrics) RecordRun(processed, accepted, published, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RunsCompleted++
	m.NewsProcessed += int64(processed)
	m.NewsAccepted += int64(accepted)
	m.RecordsPublished += int64(published)
	m.ItemsFailed += int64(failed)
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs_completed":    m.RunsCompleted,
		"news_processed":    m.NewsProcessed,
		"news_accepted":     m.NewsAccepted,
		"records_published": m.RecordsPublished,
		"items_failed":      m.ItemsFailed,
		"last_run_time":     m.LastRunTime.Format(time.RFC3339),
		"last_error_time":   m.LastErrorTime.Format(time.RFC3339),
		"last_error":        m.LastError,
		"is_healthy":        m.IsHealthy,
	}
}
