// Package telemetry collects the in-process counters and span timings
// spec.md §9 and SPEC_FULL.md §7 call for: cache_hit, cache_miss,
// store_get, store_put, store_error, query_latency_ms, index_size.
// Uses the same atomic-counter and latency-bucket pattern as the rest
// of this codebase's instrumentation, retargeted at this system's four
// observability hooks in place of query classification.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// LatencyBucket is a histogram bucket for query_latency_ms.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// Recorder accumulates the engine's observability counters. All methods
// are safe for concurrent use; no counter here blocks the operation it
// describes.
type Recorder struct {
	cacheHit   int64
	cacheMiss  int64
	storeGet   int64
	storePut   int64
	storeError int64
	indexSize  int64

	mu         sync.Mutex
	latencies  map[LatencyBucket]int64
	spanTotals map[string]time.Duration
	spanCounts map[string]int64
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{
		latencies:  make(map[LatencyBucket]int64),
		spanTotals: make(map[string]time.Duration),
		spanCounts: make(map[string]int64),
	}
}

// CacheHit records a chunk cache hit.
func (r *Recorder) CacheHit() { atomic.AddInt64(&r.cacheHit, 1) }

// CacheMiss records a chunk cache miss.
func (r *Recorder) CacheMiss() { atomic.AddInt64(&r.cacheMiss, 1) }

// StoreGet records an object store read.
func (r *Recorder) StoreGet() { atomic.AddInt64(&r.storeGet, 1) }

// StorePut records an object store write.
func (r *Recorder) StorePut() { atomic.AddInt64(&r.storePut, 1) }

// StoreError records an object store operation that failed.
func (r *Recorder) StoreError() { atomic.AddInt64(&r.storeError, 1) }

// SetIndexSize reports the current number of vectors held by the ANN
// index (a gauge, not a counter: the caller passes the current value).
func (r *Recorder) SetIndexSize(n int) { atomic.StoreInt64(&r.indexSize, int64(n)) }

// RecordQueryLatency buckets one end-to-end query duration.
func (r *Recorder) RecordQueryLatency(d time.Duration) {
	bucket := LatencyToBucket(d)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies[bucket]++
}

// RecordSpan accumulates duration against a named pipeline stage, one of
// embed, search, resolve, respond.
func (r *Recorder) RecordSpan(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spanTotals[name] += d
	r.spanCounts[name]++
}

// Track starts timing span name and returns a function to call when the
// span ends, e.g. defer rec.Track("embed")().
func (r *Recorder) Track(name string) func() {
	start := time.Now()
	return func() { r.RecordSpan(name, time.Since(start)) }
}

// Snapshot is an immutable point-in-time view of the recorded metrics.
type Snapshot struct {
	CacheHit    int64
	CacheMiss   int64
	StoreGet    int64
	StorePut    int64
	StoreError  int64
	IndexSize   int64
	Latencies   map[LatencyBucket]int64
	SpanAverage map[string]time.Duration
}

// Snapshot copies the current counters and span averages.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	latencies := make(map[LatencyBucket]int64, len(r.latencies))
	for k, v := range r.latencies {
		latencies[k] = v
	}

	spanAverage := make(map[string]time.Duration, len(r.spanTotals))
	for name, total := range r.spanTotals {
		if count := r.spanCounts[name]; count > 0 {
			spanAverage[name] = total / time.Duration(count)
		}
	}

	return Snapshot{
		CacheHit:    atomic.LoadInt64(&r.cacheHit),
		CacheMiss:   atomic.LoadInt64(&r.cacheMiss),
		StoreGet:    atomic.LoadInt64(&r.storeGet),
		StorePut:    atomic.LoadInt64(&r.storePut),
		StoreError:  atomic.LoadInt64(&r.storeError),
		IndexSize:   atomic.LoadInt64(&r.indexSize),
		Latencies:   latencies,
		SpanAverage: spanAverage,
	}
}

// CacheHitRate returns the fraction of cache lookups that hit, or 0 if
// there have been none.
func (s Snapshot) CacheHitRate() float64 {
	total := s.CacheHit + s.CacheMiss
	if total == 0 {
		return 0
	}
	return float64(s.CacheHit) / float64(total)
}
