package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/analysis-engine/pkg/types"
)

// brokenTier simulates an unreachable backend.
type brokenTier struct {
	name types.CacheTier
}

func (t *brokenTier) Name() types.CacheTier { return t.name }
func (t *brokenTier) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (t *brokenTier) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (t *brokenTier) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func newTestCache() (*Tiered, *MemoryTier, *MemoryStore, *MemoryStore) {
	t1 := NewMemoryTier(16)
	t2 := NewMemoryStore(types.CacheTierShared)
	t3 := NewMemoryStore(types.CacheTierArchive)
	c := NewTiered(
		Level{Tier: t1, TTL: time.Minute},
		Level{Tier: t2, TTL: 10 * time.Minute},
		Level{Tier: t3, TTL: time.Hour},
	)
	return c, t1, t2, t3
}

func TestTiered_ComputeOnFullMiss(t *testing.T) {
	c, t1, t2, t3 := newTestCache()
	ctx := context.Background()

	var calls atomic.Int32
	val, tier, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("computed"), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("computed"), val)
	assert.Equal(t, types.CacheTierNone, tier)
	assert.Equal(t, int32(1), calls.Load())

	// stored into every tier
	for _, tr := range []Tier{t1, t2, t3} {
		got, ok, err := tr.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok, "tier %s should hold the value", tr.Name())
		assert.Equal(t, []byte("computed"), got)
	}
}

func TestTiered_MemoryHitSkipsCompute(t *testing.T) {
	c, _, _, _ := newTestCache()
	ctx := context.Background()

	_, _, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)

	val, tier, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		t.Fatal("compute must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
	assert.Equal(t, types.CacheTierMemory, tier)
}

// A hit in the archive tier must back-fill the shared and memory tiers on
// the read path.
func TestTiered_ArchiveHitPromotes(t *testing.T) {
	c, t1, t2, t3 := newTestCache()
	ctx := context.Background()

	require.NoError(t, t3.Set(ctx, "k", []byte("old"), time.Hour))

	val, tier, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		t.Fatal("compute must not run, archive has the value")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), val)
	assert.Equal(t, types.CacheTierArchive, tier)

	// promoted into both faster tiers
	_, ok, _ := t1.Get(ctx, "k")
	assert.True(t, ok, "memory tier should be back-filled")
	_, ok, _ = t2.Get(ctx, "k")
	assert.True(t, ok, "shared tier should be back-filled")

	// next read is served by the memory tier
	_, tier, err = c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		t.Fatal("compute must not run")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, types.CacheTierMemory, tier)
}

func TestTiered_SharedHitPromotesToMemoryOnly(t *testing.T) {
	c, t1, t2, t3 := newTestCache()
	ctx := context.Background()

	require.NoError(t, t2.Set(ctx, "k", []byte("v"), time.Hour))

	_, tier, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		t.Fatal("compute must not run")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, types.CacheTierShared, tier)

	_, ok, _ := t1.Get(ctx, "k")
	assert.True(t, ok)
	_, ok, _ = t3.Get(ctx, "k")
	assert.False(t, ok, "slower tier must not be written on promotion")
}

// An unreachable middle tier degrades to a miss; the request still succeeds
// and the caller never sees the backend error.
func TestTiered_BrokenTierDegradesToMiss(t *testing.T) {
	t1 := NewMemoryTier(16)
	t3 := NewMemoryStore(types.CacheTierArchive)
	c := NewTiered(
		Level{Tier: t1, TTL: time.Minute},
		Level{Tier: &brokenTier{name: types.CacheTierShared}, TTL: 10 * time.Minute},
		Level{Tier: t3, TTL: time.Hour},
	)
	ctx := context.Background()

	require.NoError(t, t3.Set(ctx, "k", []byte("v"), time.Hour))

	val, tier, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		t.Fatal("compute must not run")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
	assert.Equal(t, types.CacheTierArchive, tier)
	assert.Greater(t, c.Stats().TierErrors, int64(0))
}

func TestTiered_ComputeErrorNotCached(t *testing.T) {
	c, _, _, _ := newTestCache()
	ctx := context.Background()

	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	// a later call computes again
	var calls atomic.Int32
	_, _, err = c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("v"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// Concurrent callers of the same cold key share a single computation.
func TestTiered_SingleFlight(t *testing.T) {
	c, _, _, _ := newTestCache()
	ctx := context.Background()

	const callers = 20
	var calls atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			val, _, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
				calls.Add(1)
				time.Sleep(50 * time.Millisecond) // keep the computation in flight
				return []byte("v"), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, []byte("v"), val)
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "compute must run exactly once")
}

func TestTiered_Invalidate(t *testing.T) {
	c, t1, t2, t3 := newTestCache()
	ctx := context.Background()

	_, _, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)

	c.Invalidate(ctx, "k")

	for _, tr := range []Tier{t1, t2, t3} {
		_, ok, _ := tr.Get(ctx, "k")
		assert.False(t, ok, "tier %s should be empty after invalidate", tr.Name())
	}
}

func TestTiered_Stats(t *testing.T) {
	c, _, _, _ := newTestCache()
	ctx := context.Background()

	_, _, _ = c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	_, _, _ = c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		return nil, nil
	})

	snap := c.Stats()
	assert.Equal(t, int64(1), snap.Misses)
	assert.Equal(t, int64(1), snap.Computes)
	assert.Equal(t, int64(1), snap.MemoryHits)
	assert.InDelta(t, 0.5, snap.HitRate, 0.01)
}

func TestNewTiered_PanicsOnBadConstruction(t *testing.T) {
	assert.Panics(t, func() { NewTiered() })
	assert.Panics(t, func() {
		NewTiered(Level{Tier: nil, TTL: time.Minute})
	})
	assert.Panics(t, func() {
		NewTiered(Level{Tier: NewMemoryTier(1), TTL: 0})
	})
}
