// Package policy turns raw phase outcomes into a run verdict: the final
// status plus a confidence score reflecting how much of the analysis
// actually ran.
package policy

import (
	"yqhp/analysis-engine/pkg/types"
)

// Verdict is the policy's judgement of one finished run.
type Verdict struct {
	Status     types.RunStatus
	Confidence float64
}

// Weighted is the default confidence policy: full confidence when every
// worker succeeded, multiplied by Factor for each optional worker that did
// not, never dropping below Floor. Any required-worker failure or a fully
// failed phase yields a failed verdict with zero confidence.
type Weighted struct {
	// Factor is the per-miss multiplier, in (0, 1).
	Factor float64

	// Floor is the lower bound of a non-failed verdict's confidence.
	Floor float64
}

// NewWeighted builds the policy with sane defaults for out-of-range
// parameters.
func NewWeighted(factor, floor float64) *Weighted {
	if factor <= 0 || factor >= 1 {
		factor = 0.85
	}
	if floor <= 0 || floor >= 1 {
		floor = 0.1
	}
	return &Weighted{Factor: factor, Floor: floor}
}

// Evaluate judges a finished run. failure is the phase failure detail when
// a phase violated its rule (nil otherwise); deadlineHit reports that the
// request deadline expired mid-run.
func (p *Weighted) Evaluate(phases []*types.PhaseOutcome, failure *types.PhaseFailureDetail, deadlineHit bool) Verdict {
	if failure != nil {
		return Verdict{Status: types.RunStatusFailed, Confidence: 0}
	}

	confidence := 1.0
	misses := 0
	requiredSeen := 0
	requiredSucceeded := 0
	for _, phase := range phases {
		for _, name := range phase.Order {
			r := phase.Results[name]
			if r.Required {
				requiredSeen++
				if r.IsSuccess() {
					requiredSucceeded++
				}
			}
			if r.IsSuccess() {
				continue
			}
			misses++
			if !r.Required {
				// only optional misses shave confidence; a required miss
				// either fails the run below or rode through a deadline hit
				confidence *= p.Factor
			}
		}
	}

	// the floor only holds a run up when some required analysis made it
	// through; a run with required workers and zero required successes is
	// not low-confidence, it is failed
	if requiredSeen > 0 && requiredSucceeded == 0 {
		return Verdict{Status: types.RunStatusFailed, Confidence: 0}
	}

	if confidence < p.Floor {
		confidence = p.Floor
	}

	if misses > 0 || deadlineHit {
		return Verdict{Status: types.RunStatusDegraded, Confidence: confidence}
	}
	return Verdict{Status: types.RunStatusCompleted, Confidence: confidence}
}

// FailedWorkers flattens the names of all non-successful workers across
// phases, in phase then invocation order.
func FailedWorkers(phases []*types.PhaseOutcome) []string {
	var failed []string
	for _, phase := range phases {
		failed = append(failed, phase.FailedWorkers()...)
	}
	return failed
}
