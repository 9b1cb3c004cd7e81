package metrics

import (
	"sort"
	"sync"
	"time"
)

const sampleWindow = 100

// SimpleCollector implements a basic in-memory metrics collector
type SimpleCollector struct {
	mu sync.RWMutex

	// Operation counters
	counts map[string]int64

	// Error counters by operation and error type
	errors map[string]map[string]int64

	// Timing stats by operation
	timings map[string]*TimeStats
}

// TimeStats tracks timing statistics
type TimeStats struct {
	Count   int64
	TotalUs int64
	MinUs   int64
	MaxUs   int64
	samples []int64 // last sampleWindow samples for percentiles
}

// NewSimpleCollector creates a new in-memory metrics collector
func NewSimpleCollector() *SimpleCollector {
	return &SimpleCollector{
		counts:  make(map[string]int64),
		errors:  make(map[string]map[string]int64),
		timings: make(map[string]*TimeStats),
	}
}

// IncrementMessageCount implements Collector
func (c *SimpleCollector) IncrementMessageCount(operation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[operation]++
}

// RecordProcessingTime implements Collector. Envelope operations run in
// microseconds, so durations are kept at that resolution.
func (c *SimpleCollector) RecordProcessingTime(operation string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	us := duration.Microseconds()

	stats, exists := c.timings[operation]
	if !exists {
		stats = &TimeStats{
			MinUs:   us,
			MaxUs:   us,
			samples: make([]int64, 0, sampleWindow),
		}
		c.timings[operation] = stats
	}

	stats.Count++
	stats.TotalUs += us
	if us < stats.MinUs {
		stats.MinUs = us
	}
	if us > stats.MaxUs {
		stats.MaxUs = us
	}

	if len(stats.samples) >= sampleWindow {
		stats.samples = stats.samples[1:]
	}
	stats.samples = append(stats.samples, us)
}

// IncrementErrorCount implements Collector
func (c *SimpleCollector) IncrementErrorCount(operation string, errorType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errors[operation] == nil {
		c.errors[operation] = make(map[string]int64)
	}
	c.errors[operation][errorType]++
}

// Summary returns a copy of all collected metrics
func (c *SimpleCollector) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := Summary{
		Counts:  make(map[string]int64, len(c.counts)),
		Errors:  make(map[string]map[string]int64, len(c.errors)),
		Timings: make(map[string]TimingStats, len(c.timings)),
	}

	for op, n := range c.counts {
		summary.Counts[op] = n
	}

	for op, byType := range c.errors {
		summary.Errors[op] = make(map[string]int64, len(byType))
		for errType, n := range byType {
			summary.Errors[op][errType] = n
		}
	}

	for op, stats := range c.timings {
		ts := TimingStats{
			Count: stats.Count,
			MinUs: stats.MinUs,
			MaxUs: stats.MaxUs,
		}
		if stats.Count > 0 {
			ts.AvgUs = stats.TotalUs / stats.Count
		}
		if len(stats.samples) > 0 {
			sorted := append([]int64(nil), stats.samples...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			ts.P50Us = percentile(sorted, 0.50)
			ts.P95Us = percentile(sorted, 0.95)
			ts.P99Us = percentile(sorted, 0.99)
		}
		summary.Timings[op] = ts
	}

	return summary
}

// percentile reads p from an ascending slice
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

// Reset clears all collected metrics
func (c *SimpleCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts = make(map[string]int64)
	c.errors = make(map[string]map[string]int64)
	c.timings = make(map[string]*TimeStats)
}

// Summary is a snapshot of all metrics
type Summary struct {
	Counts  map[string]int64            `json:"counts"`
	Errors  map[string]map[string]int64 `json:"errors"`
	Timings map[string]TimingStats      `json:"timings"`
}

// TimingStats are the timing statistics of one operation
type TimingStats struct {
	Count int64 `json:"count"`
	AvgUs int64 `json:"avg_us"`
	MinUs int64 `json:"min_us"`
	MaxUs int64 `json:"max_us"`
	P50Us int64 `json:"p50_us"`
	P95Us int64 `json:"p95_us"`
	P99Us int64 `json:"p99_us"`
}
