package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	TotalRequests      int64
	SuccessfulRewrites int64
	FailedRewrites     int64
	DegradedDocuments  int64
	ChunkFailures      int64
	ImagesResolved     int64
	GenerationTimeouts int64
	ArticlesPublished  int64
	CacheHits          int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalRequests++
}

func (m *Metrics) IncrementSuccessfulRewrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuccessfulRewrites++
}

func (m *Metrics) IncrementFailedRewrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailedRewrites++
}

func (m *Metrics) RecordDegradedDocument(failedChunks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DegradedDocuments++
	m.ChunkFailures += int64(failedChunks)
}

func (m *Metrics) IncrementImagesResolved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ImagesResolved++
}

func (m *Metrics) IncrementGenerationTimeouts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationTimeouts++
}

func (m *Metrics) IncrementArticlesPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesPublished++
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
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
		"total_requests":             m.TotalRequests,
		"successful_rewrites":        m.SuccessfulRewrites,
		"failed_rewrites":            m.FailedRewrites,
		"degraded_documents":         m.DegradedDocuments,
		"chunk_failures":             m.ChunkFailures,
		"images_resolved":            m.ImagesResolved,
		"generation_timeouts":        m.GenerationTimeouts,
		"articles_published":         m.ArticlesPublished,
		"cache_hits":                 m.CacheHits,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
