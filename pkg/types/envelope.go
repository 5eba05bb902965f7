package types

import "time"

// CacheTier identifies which cache tier served a result.
type CacheTier string

const (
	// CacheTierNone indicates the result was freshly computed.
	CacheTierNone CacheTier = "none"
	// CacheTierMemory is the in-process tier.
	CacheTierMemory CacheTier = "memory"
	// CacheTierShared is the shared (Redis) tier.
	CacheTierShared CacheTier = "shared"
	// CacheTierArchive is the slow, long-retention tier.
	CacheTierArchive CacheTier = "archive"
)

// RunStatus represents the overall status of an orchestration run.
type RunStatus string

const (
	// RunStatusCompleted indicates all phases produced usable output.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusDegraded indicates the run completed with partial data.
	RunStatusDegraded RunStatus = "degraded"
	// RunStatusFailed indicates a phase-level policy violation.
	RunStatusFailed RunStatus = "failed"
)

// PhaseFailureDetail names the phase and workers behind a failed run.
type PhaseFailureDetail struct {
	Phase   int      `json:"phase"`
	Workers []string `json:"workers"`
	Reason  string   `json:"reason"`
}

// OrchestrationResult is the final envelope returned to the caller.
// 每次请求创建一次，返回后即不可变；本核心不做任何服务端留存。
type OrchestrationResult struct {
	RequestID     string              `json:"request_id"`
	Status        RunStatus           `json:"status"`
	Payload       map[string]any      `json:"payload,omitempty"`
	Confidence    float64             `json:"confidence"`
	FailedWorkers []string            `json:"failed_workers,omitempty"`
	PhaseFailure  *PhaseFailureDetail `json:"phase_failure,omitempty"`
	Elapsed       time.Duration       `json:"elapsed"`
	CacheHit      bool                `json:"cache_hit"`
	CacheTier     CacheTier           `json:"cache_tier"`
	Timings       map[string]float64  `json:"timings,omitempty"` // worker name -> milliseconds
}

// IsUsable reports whether the payload can be consumed downstream.
func (r *OrchestrationResult) IsUsable() bool {
	return r.Status != RunStatusFailed
}
