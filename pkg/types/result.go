package types

import "time"

// WorkerStatus represents the status of a worker invocation.
type WorkerStatus string

const (
	// WorkerStatusSuccess indicates the worker produced a payload.
	WorkerStatusSuccess WorkerStatus = "success"
	// WorkerStatusFailed indicates the worker returned an error.
	WorkerStatusFailed WorkerStatus = "failed"
	// WorkerStatusTimeout indicates the worker exceeded its declared timeout.
	WorkerStatusTimeout WorkerStatus = "timed_out"
	// WorkerStatusSkipped indicates the worker never ran (deadline hit before start).
	WorkerStatusSkipped WorkerStatus = "skipped"
)

// WorkerResult contains the outcome of a single worker invocation.
// 推荐使用 NewWorkerResult 创建，执行结束时用 Finish() 设置耗时。
type WorkerResult struct {
	Worker    string        `json:"worker"`
	Required  bool          `json:"required"`
	Status    WorkerStatus  `json:"status"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Payload   any           `json:"payload,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// NewWorkerResult creates a WorkerResult in success state.
func NewWorkerResult(worker string) *WorkerResult {
	return &WorkerResult{
		Worker:    worker,
		Status:    WorkerStatusSuccess,
		StartTime: time.Now(),
	}
}

// Fail marks the invocation as failed.
func (r *WorkerResult) Fail(err error) *WorkerResult {
	r.Status = WorkerStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Timeout marks the invocation as timed out.
func (r *WorkerResult) Timeout() *WorkerResult {
	r.Status = WorkerStatusTimeout
	r.Error = "worker timed out"
	return r
}

// Skip marks the invocation as skipped (never started).
func (r *WorkerResult) Skip(reason string) *WorkerResult {
	r.Status = WorkerStatusSkipped
	r.Error = reason
	return r
}

// Finish sets EndTime and Duration.
// 通常在 worker 调用返回后立即调用。
func (r *WorkerResult) Finish() *WorkerResult {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	return r
}

// IsSuccess reports whether the invocation succeeded.
func (r *WorkerResult) IsSuccess() bool {
	return r.Status == WorkerStatusSuccess
}

// PhaseOutcome aggregates all worker results produced by one phase.
type PhaseOutcome struct {
	Phase     int                      `json:"phase"`
	Results   map[string]*WorkerResult `json:"results"`
	Order     []string                 `json:"order"` // invocation order of worker names
	Succeeded int                      `json:"succeeded"`
	Failed    int                      `json:"failed"`
	Usable    bool                     `json:"usable"`
}

// NewPhaseOutcome creates an empty outcome for the given phase.
func NewPhaseOutcome(phase int) *PhaseOutcome {
	return &PhaseOutcome{
		Phase:   phase,
		Results: make(map[string]*WorkerResult),
	}
}

// Add records a worker result, preserving invocation order.
func (o *PhaseOutcome) Add(result *WorkerResult) {
	if _, exists := o.Results[result.Worker]; !exists {
		o.Order = append(o.Order, result.Worker)
	}
	o.Results[result.Worker] = result
	if result.IsSuccess() {
		o.Succeeded++
	} else {
		o.Failed++
	}
}

// Get returns the result for a worker name.
func (o *PhaseOutcome) Get(worker string) (*WorkerResult, bool) {
	r, ok := o.Results[worker]
	return r, ok
}

// FailedWorkers returns the names of workers that did not succeed, in
// invocation order.
func (o *PhaseOutcome) FailedWorkers() []string {
	var failed []string
	for _, name := range o.Order {
		if r := o.Results[name]; r != nil && !r.IsSuccess() {
			failed = append(failed, name)
		}
	}
	return failed
}
