package cache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"yqhp/analysis-engine/pkg/logger"
	"yqhp/analysis-engine/pkg/types"
)

// ComputeFunc produces the value for a key on a full miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// call is one in-flight computation shared by concurrent callers of the
// same key.
type call struct {
	done chan struct{}
	val  []byte
	tier types.CacheTier
	err  error
}

// Tiered chains the configured levels behind a single get-or-compute
// contract. Levels are ordered fastest first. A hit at level i is written
// through into levels 0..i-1 before the value is returned, so the caller
// never observes a promoted-but-not-yet-visible state.
//
// Concurrent callers of the same uncached key share one computation via a
// per-key in-flight registry. The registry mutex guards only the map; the
// computation itself runs outside any lock, so unrelated keys never
// serialize each other.
type Tiered struct {
	levels []Level
	stats  Stats

	mu       sync.Mutex
	inflight map[string]*call
}

// NewTiered creates a tiered cache over the given levels.
// At least one level is required; this is a construction-time programmer
// error, so it panics.
func NewTiered(levels ...Level) *Tiered {
	if len(levels) == 0 {
		panic("cache: at least one level is required")
	}
	for i, l := range levels {
		if l.Tier == nil {
			panic(fmt.Sprintf("cache: level %d has nil tier", i))
		}
		if l.TTL <= 0 {
			panic(fmt.Sprintf("cache: level %d has non-positive TTL", i))
		}
	}
	return &Tiered{
		levels:   levels,
		inflight: make(map[string]*call),
	}
}

// GetOrCompute returns the cached value for key, computing and storing it
// on a full miss. The returned tier is where the value was found, or
// types.CacheTierNone when it was computed (including callers that joined
// an in-flight computation).
//
// Backend outages are logged and treated as misses; they are never
// surfaced to the caller.
func (c *Tiered) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) ([]byte, types.CacheTier, error) {
	// fast path: serve straight from a tier without touching the registry
	if val, tier, ok := c.lookup(ctx, key); ok {
		return val, tier, nil
	}

	c.mu.Lock()
	if existing, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-existing.done:
			return existing.val, existing.tier, existing.err
		case <-ctx.Done():
			return nil, types.CacheTierNone, ctx.Err()
		}
	}
	cl := &call{done: make(chan struct{}), tier: types.CacheTierNone}
	c.inflight[key] = cl
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		close(cl.done)
	}()

	// re-check the tiers as leader: another request may have stored the
	// value between our miss and registration
	if val, tier, ok := c.lookup(ctx, key); ok {
		cl.val, cl.tier = val, tier
		return val, tier, nil
	}

	c.stats.recordMiss()
	c.stats.recordCompute()

	val, err := compute(ctx)
	if err != nil {
		cl.err = err
		return nil, types.CacheTierNone, err
	}

	c.storeAll(ctx, key, val)
	cl.val = val
	return val, types.CacheTierNone, nil
}

// Stats returns the cache statistics snapshot.
func (c *Tiered) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// Invalidate removes key from every tier. Backend errors are logged and
// otherwise ignored.
func (c *Tiered) Invalidate(ctx context.Context, key string) {
	for _, level := range c.levels {
		if err := level.Tier.Delete(ctx, key); err != nil {
			c.stats.recordTierError()
			logger.Warn("cache tier delete failed",
				zap.String("tier", string(level.Tier.Name())),
				zap.Error(err))
		}
	}
}

// lookup scans the levels fastest-first and promotes a hit into every
// faster level with that level's own TTL.
func (c *Tiered) lookup(ctx context.Context, key string) ([]byte, types.CacheTier, bool) {
	for i, level := range c.levels {
		val, ok, err := level.Tier.Get(ctx, key)
		if err != nil {
			// unreachable tier degrades to a miss for this request
			c.stats.recordTierError()
			logger.Warn("cache tier unavailable, treating as miss",
				zap.String("tier", string(level.Tier.Name())),
				zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		c.stats.recordHit(level.Tier.Name())
		c.promote(ctx, key, val, i)
		return val, level.Tier.Name(), true
	}
	return nil, types.CacheTierNone, false
}

// promote back-fills the value into all levels faster than hitIdx.
// Promotion is synchronous with the read path.
func (c *Tiered) promote(ctx context.Context, key string, val []byte, hitIdx int) {
	for i := 0; i < hitIdx; i++ {
		level := c.levels[i]
		if err := level.Tier.Set(ctx, key, val, level.TTL); err != nil {
			c.stats.recordTierError()
			logger.Warn("cache promotion failed",
				zap.String("tier", string(level.Tier.Name())),
				zap.Error(err))
		}
	}
}

// storeAll writes a freshly computed value into every level with its TTL.
func (c *Tiered) storeAll(ctx context.Context, key string, val []byte) {
	for _, level := range c.levels {
		if err := level.Tier.Set(ctx, key, val, level.TTL); err != nil {
			c.stats.recordTierError()
			logger.Warn("cache store failed",
				zap.String("tier", string(level.Tier.Name())),
				zap.Error(err))
		}
	}
}
