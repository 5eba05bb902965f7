package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RecordAndStats(t *testing.T) {
	r := NewRecorder()

	for i := 0; i < 100; i++ {
		r.Record("structure_scan", 100*time.Millisecond)
	}

	stats, ok := r.Stats("structure_scan")
	require.True(t, ok)
	assert.Equal(t, int64(100), stats.Count)
	assert.InDelta(t, 100, stats.P50Ms, 5)
	assert.InDelta(t, 100, stats.MaxMs, 5)
}

func TestRecorder_UnknownWorker(t *testing.T) {
	r := NewRecorder()
	_, ok := r.Stats("nope")
	assert.False(t, ok)
}

func TestRecorder_SnapshotSorted(t *testing.T) {
	r := NewRecorder()
	r.Record("c", time.Millisecond)
	r.Record("a", time.Millisecond)
	r.Record("b", time.Millisecond)

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].Worker)
	assert.Equal(t, "b", snap[1].Worker)
	assert.Equal(t, "c", snap[2].Worker)
}

func TestRecorder_PercentilesOrdered(t *testing.T) {
	r := NewRecorder()
	for i := 1; i <= 1000; i++ {
		r.Record("w", time.Duration(i)*time.Millisecond)
	}

	stats, ok := r.Stats("w")
	require.True(t, ok)
	assert.LessOrEqual(t, stats.P50Ms, stats.P95Ms)
	assert.LessOrEqual(t, stats.P95Ms, stats.P99Ms)
	assert.LessOrEqual(t, stats.P99Ms, stats.MaxMs)
}

func TestRecorder_ConcurrentRecord(t *testing.T) {
	r := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Record("w", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	stats, ok := r.Stats("w")
	require.True(t, ok)
	assert.Equal(t, int64(1000), stats.Count)
}

func TestRecorder_Reset(t *testing.T) {
	r := NewRecorder()
	r.Record("w", time.Millisecond)
	r.Reset()

	_, ok := r.Stats("w")
	assert.False(t, ok)
}
