package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/phoenixlab/rewriter/internal/logger"
)

// AIRateLimiter caps daily request counts per model backend plus an
// overall budget. Counters reset every 24 hours.
type AIRateLimiter struct {
	mu        sync.Mutex
	counts    map[string]int
	limits    map[string]int
	total     int
	maxTotal  int
	resetTime time.Time
}

// NewAIRateLimiter creates a limiter. A zero limit means unlimited for
// that backend; maxTotal zero means no overall cap.
func NewAIRateLimiter(limits map[string]int, maxTotal int) *AIRateLimiter {
	copied := make(map[string]int, len(limits))
	for name, limit := range limits {
		copied[name] = limit
	}
	return &AIRateLimiter{
		counts:    make(map[string]int),
		limits:    copied,
		maxTotal:  maxTotal,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

// Allow reports whether one more request to the backend fits the
// budgets.
func (rl *AIRateLimiter) Allow(provider string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()

	if limit := rl.limits[provider]; limit > 0 && rl.counts[provider] >= limit {
		logger.Warn("provider rate limit reached", "provider", provider, "used", rl.counts[provider], "limit", limit)
		return false
	}
	if rl.maxTotal > 0 && rl.total >= rl.maxTotal {
		logger.Warn("total rate limit reached", "used", rl.total, "limit", rl.maxTotal)
		return false
	}
	return true
}

// Use consumes one request from the backend's budget.
func (rl *AIRateLimiter) Use(provider string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()

	if limit := rl.limits[provider]; limit > 0 && rl.counts[provider] >= limit {
		return fmt.Errorf("%s rate limit exceeded", provider)
	}
	if rl.maxTotal > 0 && rl.total >= rl.maxTotal {
		return fmt.Errorf("total rate limit exceeded")
	}

	rl.counts[provider]++
	rl.total++

	logger.Debug("provider usage", "provider", provider,
		"used", rl.counts[provider], "limit", rl.limits[provider],
		"total", rl.total, "total_limit", rl.maxTotal)
	return nil
}

// GetStats returns current usage per backend.
func (rl *AIRateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  rl.total,
		"total_limit": rl.maxTotal,
		"reset_time":  rl.resetTime,
	}
	for name, limit := range rl.limits {
		stats[name+"_used"] = rl.counts[name]
		stats[name+"_limit"] = limit
	}
	return stats
}

// checkReset zeroes the counters once the window has passed. Must run
// with the mutex held.
func (rl *AIRateLimiter) checkReset() {
	if time.Now().After(rl.resetTime) {
		logger.Info("resetting rate limiter counters", "total_used", rl.total)
		rl.counts = make(map[string]int)
		rl.total = 0
		rl.resetTime = time.Now().Add(24 * time.Hour)
	}
}
