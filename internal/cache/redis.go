package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"yqhp/analysis-engine/pkg/types"
)

// RedisTier adapts a Redis client to the Tier contract. It backs both the
// shared tier and, pointed at a separate keyspace, the archive tier.
type RedisTier struct {
	client *redis.Client
	name   types.CacheTier
	prefix string
}

// NewRedisTier creates a tier over the given client. prefix namespaces the
// keys so several tiers can share one Redis instance.
func NewRedisTier(client *redis.Client, name types.CacheTier, prefix string) *RedisTier {
	return &RedisTier{
		client: client,
		name:   name,
		prefix: prefix,
	}
}

// Name implements Tier.
func (t *RedisTier) Name() types.CacheTier {
	return t.name
}

// Get implements Tier.
func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := t.client.Get(ctx, t.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set implements Tier.
func (t *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return t.client.Set(ctx, t.prefix+key, value, ttl).Err()
}

// Delete implements Tier.
func (t *RedisTier) Delete(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.prefix+key).Err()
}
