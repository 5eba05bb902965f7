package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/analysis-engine/pkg/types"
)

func TestMemoryTier_SetGet(t *testing.T) {
	tier := NewMemoryTier(10)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "k", []byte("v"), time.Minute))

	val, ok, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryTier_MissingKey(t *testing.T) {
	tier := NewMemoryTier(10)

	_, ok, err := tier.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryTier_TTLExpiry(t *testing.T) {
	tier := NewMemoryTier(10)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, ok, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, tier.Len(), "expired entry should be dropped on read")
}

func TestMemoryTier_LRUEviction(t *testing.T) {
	tier := NewMemoryTier(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, tier.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
	}

	// touch k0 so k1 becomes least recently used
	_, ok, _ := tier.Get(ctx, "k0")
	require.True(t, ok)

	require.NoError(t, tier.Set(ctx, "k3", []byte("v"), time.Minute))
	assert.Equal(t, 3, tier.Len())

	_, ok, _ = tier.Get(ctx, "k1")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok, _ = tier.Get(ctx, "k0")
	assert.True(t, ok)
}

func TestMemoryTier_UpdateExisting(t *testing.T) {
	tier := NewMemoryTier(2)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "k", []byte("v1"), time.Minute))
	require.NoError(t, tier.Set(ctx, "k", []byte("v2"), time.Minute))

	val, ok, _ := tier.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), val)
	assert.Equal(t, 1, tier.Len())
}

func TestMemoryTier_Delete(t *testing.T) {
	tier := NewMemoryTier(2)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, tier.Delete(ctx, "k"))
	require.NoError(t, tier.Delete(ctx, "k")) // idempotent

	_, ok, _ := tier.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryTier_Name(t *testing.T) {
	assert.Equal(t, types.CacheTierMemory, NewMemoryTier(1).Name())
}

func TestMemoryStore_TTLOnly(t *testing.T) {
	store := NewMemoryStore(types.CacheTierArchive)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 20*time.Millisecond))

	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	time.Sleep(40 * time.Millisecond)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Unbounded(t *testing.T) {
	store := NewMemoryStore(types.CacheTierArchive)
	ctx := context.Background()

	for i := 0; i < 5000; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
	}
	assert.Equal(t, 5000, store.Len())
}
