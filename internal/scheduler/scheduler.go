// Package scheduler executes the registered workers phase by phase.
// Phases run strictly in ascending order; all workers of one phase run
// concurrently, bounded by the shared concurrency limiter. No worker
// fault ever escapes the scheduler as an error or panic: every outcome
// is captured into a WorkerResult.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"yqhp/analysis-engine/internal/limiter"
	"yqhp/analysis-engine/internal/metrics"
	"yqhp/analysis-engine/internal/worker"
	"yqhp/analysis-engine/pkg/logger"
	"yqhp/analysis-engine/pkg/types"
)

// Config holds scheduler construction parameters.
type Config struct {
	// Rules maps phase numbers to their degradation rule. Phases absent
	// from the map default to PhaseRuleAllRequired when they contain a
	// required worker and PhaseRuleBestEffort otherwise.
	Rules map[int]PhaseRule

	// DefaultWorkerTimeout applies to workers declaring no timeout.
	DefaultWorkerTimeout time.Duration
}

// RunOutcome is the aggregated view of one scheduler run.
type RunOutcome struct {
	Phases      []*types.PhaseOutcome
	Merged      map[string]any // worker name -> payload, successes only
	Failure     *types.PhaseFailureDetail
	DeadlineHit bool
}

// Scheduler coordinates phase execution. It is stateless per run and safe
// for concurrent use; the concurrency limiter it holds is process-wide.
type Scheduler struct {
	registry *worker.Registry
	permits  *limiter.Concurrency
	recorder *metrics.Recorder
	cfg      Config
}

// New creates a Scheduler. recorder may be nil.
func New(registry *worker.Registry, permits *limiter.Concurrency, recorder *metrics.Recorder, cfg Config) *Scheduler {
	if cfg.DefaultWorkerTimeout <= 0 {
		cfg.DefaultWorkerTimeout = worker.DefaultTimeout
	}
	return &Scheduler{
		registry: registry,
		permits:  permits,
		recorder: recorder,
		cfg:      cfg,
	}
}

// Run executes all phases for one request. The ctx carries the
// request-level deadline; when it expires mid-phase the scheduler stops
// waiting, synthesizes timed_out results for unfinished workers and does
// not advance to later phases. Run never returns an error for worker
// faults; the outcome carries all failure information.
func (s *Scheduler) Run(ctx context.Context, req *types.AnalysisRequest) *RunOutcome {
	outcome := &RunOutcome{
		Merged: make(map[string]any),
	}

	for _, phase := range s.registry.Phases() {
		if ctx.Err() != nil {
			outcome.DeadlineHit = true
			break
		}

		phaseOutcome, deadlineHit := s.runPhase(ctx, phase, req, outcome.Merged)
		outcome.Phases = append(outcome.Phases, phaseOutcome)

		// merge successful payloads for downstream projections
		for _, name := range phaseOutcome.Order {
			if r := phaseOutcome.Results[name]; r.IsSuccess() {
				outcome.Merged[name] = r.Payload
			}
		}

		failure := evaluatePhase(phaseOutcome, s.ruleFor(phase))

		if deadlineHit {
			// the phase rule still applies to the synthesized results; the
			// policy downstream decides failed vs degraded. Later phases
			// never start.
			outcome.Failure = failure
			outcome.DeadlineHit = true
			logger.Warn("request deadline hit mid-phase",
				zap.Int("phase", phase),
				zap.Int("succeeded", phaseOutcome.Succeeded))
			break
		}

		if failure != nil {
			outcome.Failure = failure
			logger.Info("phase failed, aborting run",
				zap.Int("phase", phase),
				zap.String("reason", failure.Reason))
			break
		}
	}

	return outcome
}

// ruleFor resolves the degradation rule of a phase.
func (s *Scheduler) ruleFor(phase int) PhaseRule {
	if rule, ok := s.cfg.Rules[phase]; ok {
		return rule
	}
	for _, w := range s.registry.ByPhase(phase) {
		if w.Spec().Required {
			return PhaseRuleAllRequired
		}
	}
	return PhaseRuleBestEffort
}

// runPhase invokes every worker of one phase concurrently and aggregates
// their results in invocation order. The returned flag reports whether
// the ctx expired before all workers finished.
func (s *Scheduler) runPhase(ctx context.Context, phase int, req *types.AnalysisRequest, upstream map[string]any) (*types.PhaseOutcome, bool) {
	workers := s.registry.ByPhase(phase)
	outcome := types.NewPhaseOutcome(phase)

	// workers only ever see a snapshot taken before the phase starts:
	// after a deadline hit Run keeps merging collected payloads while
	// stragglers may still be reading their input
	view := make(map[string]any, len(upstream))
	for k, v := range upstream {
		view[k] = v
	}

	resultsCh := make(chan *types.WorkerResult, len(workers))
	for _, w := range workers {
		go s.invoke(ctx, w, req, view, resultsCh)
	}

	collected := make(map[string]*types.WorkerResult, len(workers))
	deadlineHit := false

collect:
	for range workers {
		select {
		case r := <-resultsCh:
			collected[r.Worker] = r
		case <-ctx.Done():
			deadlineHit = true
			break collect
		}
	}

	// aggregate in invocation order; workers still in flight when the
	// deadline hit are recorded as timed out (they may finish in the
	// background up to their own timeout, but nobody is waiting)
	for _, w := range workers {
		spec := w.Spec()
		r, ok := collected[spec.Name]
		if !ok {
			r = types.NewWorkerResult(spec.Name).Timeout().Finish()
			r.Required = spec.Required
		}
		outcome.Add(r)
	}

	return outcome, deadlineHit
}

// invoke runs a single worker bounded by the concurrency limiter and its
// declared timeout. It always delivers exactly one result and never
// panics.
func (s *Scheduler) invoke(ctx context.Context, w worker.Worker, req *types.AnalysisRequest, upstream map[string]any, resultsCh chan<- *types.WorkerResult) {
	spec := w.Spec()
	result := types.NewWorkerResult(spec.Name)
	result.Required = spec.Required

	defer func() {
		if s.recorder != nil {
			s.recorder.Record(spec.Name, result.Duration)
		}
		resultsCh <- result
	}()

	if err := s.permits.Acquire(ctx); err != nil {
		// deadline hit while queued; the worker never started
		result.Skip("request deadline elapsed before start").Finish()
		return
	}
	defer s.permits.Release()

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = s.cfg.DefaultWorkerTimeout
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	input, err := projectInput(spec, req, upstream)
	if err != nil {
		result.Fail(worker.NewExecutionError(spec.Name, "input projection failed", err)).Finish()
		return
	}

	payload, err := s.execute(wctx, w, input)

	switch {
	case err == nil:
		result.Payload = payload
	case wctx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		// the worker's own budget ran out, not the request's
		result.Timeout()
		result.Error = worker.NewTimeoutError(spec.Name, timeout).Error()
	case ctx.Err() != nil:
		result.Timeout()
	case worker.IsTimeoutError(err):
		// the worker classified its own dependency call as timed out
		result.Timeout()
		result.Error = err.Error()
	default:
		result.Fail(err)
	}
	result.Finish()
}

// execute runs Execute in a child goroutine so a worker that ignores its
// context cannot stall the phase beyond its timeout. Panics are captured
// into errors.
func (s *Scheduler) execute(ctx context.Context, w worker.Worker, input *worker.Input) (payload any, err error) {
	type reply struct {
		payload any
		err     error
	}
	done := make(chan reply, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("worker panicked: %v", r)}
			}
		}()
		p, e := w.Execute(ctx, input)
		done <- reply{payload: p, err: e}
	}()

	select {
	case r := <-done:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// projectInput applies the spec's projection, defaulting to a full
// pass-through of the accumulated upstream payloads.
func projectInput(spec worker.Spec, req *types.AnalysisRequest, upstream map[string]any) (*worker.Input, error) {
	if spec.Project != nil {
		return spec.Project(req, upstream)
	}
	// copy so one worker's input cannot alias another's
	view := make(map[string]any, len(upstream))
	for k, v := range upstream {
		view[k] = v
	}
	return &worker.Input{Request: req, Upstream: view}, nil
}
