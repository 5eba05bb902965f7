// Package worker provides the worker framework of the analysis engine:
// the Worker capability interface, the immutable Spec describing each
// worker, and the registry holding the closed set of workers installed at
// orchestrator construction.
package worker

import (
	"context"
	"time"

	"yqhp/analysis-engine/pkg/types"
)

// DefaultTimeout applies to workers whose spec declares no timeout.
const DefaultTimeout = 30 * time.Second

// Input is the projected input for one worker invocation.
type Input struct {
	// Request is the original analysis request.
	Request *types.AnalysisRequest

	// Upstream maps worker names from earlier phases to their payloads.
	// Workers of failed upstream invocations are simply absent.
	Upstream map[string]any
}

// ProjectionFunc derives a worker's input from the accumulated outputs of
// all earlier phases. A nil projection passes the full upstream view.
type ProjectionFunc func(req *types.AnalysisRequest, upstream map[string]any) (*Input, error)

// Spec declares what a worker is: its identity, its place in the phase
// order and its failure semantics. Specs are immutable after registration.
type Spec struct {
	// Name uniquely identifies the worker.
	Name string

	// Phase is the ordering key; all workers of one phase run concurrently.
	Phase int

	// Timeout bounds one invocation. Zero means DefaultTimeout.
	Timeout time.Duration

	// Required marks workers whose failure invalidates the whole phase
	// under the all-required rule.
	Required bool

	// Project derives this worker's input. Nil passes everything through.
	Project ProjectionFunc
}

// Worker is a single named unit of analysis work. Execute returns an
// opaque structured payload or an error; it must honor ctx cancellation.
type Worker interface {
	// Spec returns the immutable declaration of this worker.
	Spec() Spec

	// Execute runs the analysis. The scheduler captures errors and
	// panics into WorkerResults; implementations should still return
	// plain errors for expected failures.
	Execute(ctx context.Context, input *Input) (any, error)
}

// Func adapts a function to the Worker interface, for tests and small
// inline workers.
type Func struct {
	S  Spec
	Fn func(ctx context.Context, input *Input) (any, error)
}

// Spec implements Worker.
func (f *Func) Spec() Spec { return f.S }

// Execute implements Worker.
func (f *Func) Execute(ctx context.Context, input *Input) (any, error) {
	return f.Fn(ctx, input)
}
