package cache

import (
	"sync/atomic"

	"yqhp/analysis-engine/pkg/types"
)

// Stats tracks hit/miss counters per tier plus compute counts. All fields
// are updated atomically; Snapshot returns a consistent-enough view for
// observability purposes.
type Stats struct {
	memoryHits  atomic.Int64
	sharedHits  atomic.Int64
	archiveHits atomic.Int64
	misses      atomic.Int64
	computes    atomic.Int64
	tierErrors  atomic.Int64
}

// StatsSnapshot is the exported view of cache statistics.
type StatsSnapshot struct {
	MemoryHits  int64   `json:"memory_hits"`
	SharedHits  int64   `json:"shared_hits"`
	ArchiveHits int64   `json:"archive_hits"`
	Misses      int64   `json:"misses"`
	Computes    int64   `json:"computes"`
	TierErrors  int64   `json:"tier_errors"`
	HitRate     float64 `json:"hit_rate"`
}

func (s *Stats) recordHit(tier types.CacheTier) {
	switch tier {
	case types.CacheTierMemory:
		s.memoryHits.Add(1)
	case types.CacheTierShared:
		s.sharedHits.Add(1)
	case types.CacheTierArchive:
		s.archiveHits.Add(1)
	}
}

func (s *Stats) recordMiss() {
	s.misses.Add(1)
}

func (s *Stats) recordCompute() {
	s.computes.Add(1)
}

func (s *Stats) recordTierError() {
	s.tierErrors.Add(1)
}

// Snapshot returns the current counter values and aggregate hit rate.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		MemoryHits:  s.memoryHits.Load(),
		SharedHits:  s.sharedHits.Load(),
		ArchiveHits: s.archiveHits.Load(),
		Misses:      s.misses.Load(),
		Computes:    s.computes.Load(),
		TierErrors:  s.tierErrors.Load(),
	}
	hits := snap.MemoryHits + snap.SharedHits + snap.ArchiveHits
	total := hits + snap.Misses
	if total > 0 {
		snap.HitRate = float64(hits) / float64(total)
	}
	return snap
}
