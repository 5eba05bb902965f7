// Package cache implements the three-tier read-through cache backing every
// expensive orchestration. Tier ordering is fastest-and-smallest first; a hit
// in a slower tier is promoted into every faster tier on the read path.
package cache

import (
	"context"
	"time"

	"yqhp/analysis-engine/pkg/types"
)

// Tier is the minimal contract a cache backend must satisfy. Any key-value
// store with get/set/delete-with-TTL semantics can serve as a tier.
type Tier interface {
	// Name identifies the tier in stats and result provenance.
	Name() types.CacheTier

	// Get returns the value for key. A missing or expired key is
	// (nil, false, nil). A backend outage is reported via err; the
	// tiered cache treats it as a miss and never propagates it.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Level binds a tier to the TTL used when writing into it.
type Level struct {
	Tier Tier
	TTL  time.Duration
}
