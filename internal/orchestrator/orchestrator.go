// Package orchestrator is the top-level façade of the analysis engine.
// It accepts a request, consults the tiered cache, runs the phase
// scheduler on a miss and returns the final envelope with confidence and
// cache provenance. The orchestrator holds no mutable state of its own
// beyond its collaborators and is safe to share across requests.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"yqhp/analysis-engine/internal/cache"
	"yqhp/analysis-engine/internal/config"
	"yqhp/analysis-engine/internal/limiter"
	"yqhp/analysis-engine/internal/metrics"
	"yqhp/analysis-engine/internal/policy"
	"yqhp/analysis-engine/internal/scheduler"
	"yqhp/analysis-engine/internal/worker"
	"yqhp/analysis-engine/pkg/logger"
	"yqhp/analysis-engine/pkg/types"
)

// cacheEntry is the serialized form of a usable run stored in the cache.
// Failed runs are never cached.
type cacheEntry struct {
	Status        types.RunStatus    `json:"status"`
	Payload       map[string]any     `json:"payload"`
	Confidence    float64            `json:"confidence"`
	FailedWorkers []string           `json:"failed_workers,omitempty"`
	Timings       map[string]float64 `json:"timings,omitempty"`
}

// runFailure carries a failed run's envelope through the cache layer as an
// error, so the failure is returned to every waiting caller without being
// stored in any tier.
type runFailure struct {
	envelope *types.OrchestrationResult
}

func (e *runFailure) Error() string {
	if e.envelope.PhaseFailure != nil {
		return "analysis run failed: " + e.envelope.PhaseFailure.Reason
	}
	return "analysis run failed"
}

// Orchestrator coordinates one analysis request end to end. All
// collaborators are injected at construction; there is no ambient global
// state.
type Orchestrator struct {
	sched    *scheduler.Scheduler
	cache    *cache.Tiered
	policy   *policy.Weighted
	recorder *metrics.Recorder
	deadline time.Duration
}

// New wires an Orchestrator from its collaborators. permits is the
// process-wide concurrency limiter shared across all in-flight requests.
func New(cfg *config.Config, registry *worker.Registry, tiers *cache.Tiered, permits *limiter.Concurrency, recorder *metrics.Recorder) *Orchestrator {
	return &Orchestrator{
		sched: scheduler.New(registry, permits, recorder, scheduler.Config{
			DefaultWorkerTimeout: cfg.Orchestrator.DefaultWorkerTimeout,
		}),
		cache:    tiers,
		policy:   policy.NewWeighted(cfg.Orchestrator.DegradationFactor, cfg.Orchestrator.ConfidenceFloor),
		recorder: recorder,
		deadline: cfg.Orchestrator.RequestDeadline,
	}
}

// Run executes one analysis request. Worker failures never surface as
// errors; they are folded into the envelope's status and confidence. The
// returned error is reserved for invalid requests and context
// cancellation.
func (o *Orchestrator) Run(ctx context.Context, req *types.AnalysisRequest) (*types.OrchestrationResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	start := time.Now()

	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	key := Fingerprint(req)
	val, tier, err := o.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		return o.runPhases(ctx, req)
	})

	if err != nil {
		var failure *runFailure
		if errors.As(err, &failure) {
			// every caller gets its own copy; the leader's envelope is
			// shared through the in-flight registry
			envelope := *failure.envelope
			envelope.RequestID = req.ID
			envelope.Elapsed = time.Since(start)
			return &envelope, nil
		}
		return nil, err
	}

	var entry cacheEntry
	if err := sonic.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry for key %s: %w", key, err)
	}

	result := &types.OrchestrationResult{
		RequestID:     req.ID,
		Status:        entry.Status,
		Payload:       entry.Payload,
		Confidence:    entry.Confidence,
		FailedWorkers: entry.FailedWorkers,
		Elapsed:       time.Since(start),
		CacheHit:      tier != types.CacheTierNone,
		CacheTier:     tier,
		Timings:       entry.Timings,
	}

	logger.Info("analysis request finished",
		zap.String("request_id", req.ID),
		zap.String("status", string(result.Status)),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("cache_hit", result.CacheHit),
		zap.String("cache_tier", string(result.CacheTier)),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

// runPhases executes the scheduler and serializes a usable outcome for
// caching. Failed runs are wrapped in runFailure so the cache never
// stores them.
func (o *Orchestrator) runPhases(ctx context.Context, req *types.AnalysisRequest) ([]byte, error) {
	outcome := o.sched.Run(ctx, req)
	verdict := o.policy.Evaluate(outcome.Phases, outcome.Failure, outcome.DeadlineHit)

	timings := make(map[string]float64)
	for _, phase := range outcome.Phases {
		for _, name := range phase.Order {
			timings[name] = float64(phase.Results[name].Duration.Microseconds()) / 1000.0
		}
	}

	if verdict.Status == types.RunStatusFailed {
		return nil, &runFailure{envelope: &types.OrchestrationResult{
			Status:        types.RunStatusFailed,
			Confidence:    0,
			FailedWorkers: policy.FailedWorkers(outcome.Phases),
			PhaseFailure:  outcome.Failure,
			CacheTier:     types.CacheTierNone,
			Timings:       timings,
		}}
	}

	entry := cacheEntry{
		Status:        verdict.Status,
		Payload:       outcome.Merged,
		Confidence:    verdict.Confidence,
		FailedWorkers: policy.FailedWorkers(outcome.Phases),
		Timings:       timings,
	}
	return sonic.Marshal(entry)
}

// Invalidate drops any cached result for the request from every tier.
func (o *Orchestrator) Invalidate(ctx context.Context, req *types.AnalysisRequest) {
	o.cache.Invalidate(ctx, Fingerprint(req))
}

// CacheStats exposes the cache hit/miss counters for observability.
func (o *Orchestrator) CacheStats() cache.StatsSnapshot {
	return o.cache.Stats()
}

// WorkerTimings exposes the latency percentiles recorded across all runs.
func (o *Orchestrator) WorkerTimings() []metrics.TimingStats {
	return o.recorder.Snapshot()
}

func validate(req *types.AnalysisRequest) error {
	switch {
	case req == nil:
		return errors.New("request is nil")
	case req.Subject == "":
		return errors.New("request subject is empty")
	case req.Content == "":
		return errors.New("request content is empty")
	}
	return nil
}
