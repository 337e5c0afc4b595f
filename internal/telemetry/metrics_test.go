package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := New()
	r.CacheHit()
	r.CacheHit()
	r.CacheMiss()
	r.StoreGet()
	r.StorePut()
	r.StoreError()
	r.SetIndexSize(42)

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.CacheHit)
	assert.Equal(t, int64(1), snap.CacheMiss)
	assert.Equal(t, int64(1), snap.StoreGet)
	assert.Equal(t, int64(1), snap.StorePut)
	assert.Equal(t, int64(1), snap.StoreError)
	assert.Equal(t, int64(42), snap.IndexSize)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRate(), 1e-9)
}

func TestRecorderCacheHitRateWithNoLookups(t *testing.T) {
	r := New()
	assert.Equal(t, float64(0), r.Snapshot().CacheHitRate())
}

func TestLatencyToBucket(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{20 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{200 * time.Millisecond, BucketP500},
		{900 * time.Millisecond, BucketP1000},
	}
	for _, c := range cases {
		require.Equal(t, c.want, LatencyToBucket(c.d))
	}
}

func TestRecorderQueryLatency(t *testing.T) {
	r := New()
	r.RecordQueryLatency(5 * time.Millisecond)
	r.RecordQueryLatency(6 * time.Millisecond)
	r.RecordQueryLatency(900 * time.Millisecond)

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.Latencies[BucketP10])
	assert.Equal(t, int64(1), snap.Latencies[BucketP1000])
}

func TestRecorderSpans(t *testing.T) {
	r := New()

	func() {
		done := r.Track("embed")
		time.Sleep(2 * time.Millisecond)
		done()
	}()
	r.RecordSpan("embed", 4*time.Millisecond)

	snap := r.Snapshot()
	avg, ok := snap.SpanAverage["embed"]
	require.True(t, ok)
	assert.Greater(t, avg, time.Duration(0))
}

func TestRecorderConcurrentUse(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CacheHit()
			r.RecordQueryLatency(time.Millisecond)
			r.RecordSpan("search", time.Millisecond)
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.Equal(t, int64(100), snap.CacheHit)
	assert.Equal(t, int64(100), snap.Latencies[BucketP10])
}
