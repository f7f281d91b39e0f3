// Package metrics keeps lightweight in-process counters for a batch run, so
// the final log line can report how much work the cache actually saved.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Names of the counters the pipeline records.
const (
	UpscalePasses  = "upscale_passes"
	CacheHits      = "intermediate_cache_hits"
	OutputsWritten = "outputs_written"
	SourcesOK      = "sources_processed"
	SourcesFailed  = "sources_failed"

	// UpscaleTime accumulates the wall time spent inside model inference.
	UpscaleTime = "upscale_time"
)

// Collector accumulates named counters and durations. Safe for concurrent
// use; parallel batch workers share one instance.
type Collector struct {
	mu        sync.RWMutex
	counters  map[string]int64
	durations map[string]time.Duration
}

func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]int64),
		durations: make(map[string]time.Duration),
	}
}

// Inc adds one to the named counter.
func (c *Collector) Inc(name string) {
	c.Add(name, 1)
}

// Add adds delta to the named counter.
func (c *Collector) Add(name string, delta int64) {
	c.mu.Lock()
	c.counters[name] += delta
	c.mu.Unlock()
}

// Observe accumulates elapsed time under name.
func (c *Collector) Observe(name string, d time.Duration) {
	c.mu.Lock()
	c.durations[name] += d
	c.mu.Unlock()
}

// Time runs fn and records its duration under name, passing through fn's
// error.
func (c *Collector) Time(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.Observe(name, time.Since(start))
	return err
}

// Get returns the current value of a counter.
func (c *Collector) Get(name string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[name]
}

// Duration returns the accumulated time under name.
func (c *Collector) Duration(name string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.durations[name]
}

// Snapshot returns a stable copy of all counters, sorted by name.
func (c *Collector) Snapshot() []Counter {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Counter, 0, len(c.counters))
	for name, value := range c.counters {
		out = append(out, Counter{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears all recorded values.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.counters = make(map[string]int64)
	c.durations = make(map[string]time.Duration)
	c.mu.Unlock()
}

// Counter is one snapshot entry.
type Counter struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}
