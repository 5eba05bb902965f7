package scheduler

import (
	"fmt"
	"strings"

	"yqhp/analysis-engine/pkg/types"
)

// PhaseRule determines how a phase judges partial worker failure.
type PhaseRule string

const (
	// PhaseRuleAllRequired fails the whole request if any required worker
	// of the phase does not succeed.
	PhaseRuleAllRequired PhaseRule = "all_required"
	// PhaseRuleBestEffort proceeds with whatever succeeded, as long as at
	// least one worker in the phase succeeded.
	PhaseRuleBestEffort PhaseRule = "best_effort"
)

// evaluatePhase applies the phase's degradation rule to a finished
// outcome. It sets outcome.Usable and returns a failure detail when the
// rule is violated.
func evaluatePhase(outcome *types.PhaseOutcome, rule PhaseRule) *types.PhaseFailureDetail {
	switch rule {
	case PhaseRuleAllRequired:
		var failedRequired []string
		for _, name := range outcome.Order {
			r := outcome.Results[name]
			if r.Required && !r.IsSuccess() {
				failedRequired = append(failedRequired, name)
			}
		}
		if len(failedRequired) > 0 {
			outcome.Usable = false
			return &types.PhaseFailureDetail{
				Phase:   outcome.Phase,
				Workers: failedRequired,
				Reason: fmt.Sprintf("required workers did not succeed: %s",
					strings.Join(failedRequired, ", ")),
			}
		}
		outcome.Usable = true
		return nil

	case PhaseRuleBestEffort:
		if outcome.Succeeded == 0 {
			outcome.Usable = false
			return &types.PhaseFailureDetail{
				Phase:   outcome.Phase,
				Workers: outcome.FailedWorkers(),
				Reason:  "no worker in best-effort phase succeeded",
			}
		}
		outcome.Usable = true
		return nil

	default:
		// unknown rules are a construction bug, treat as all-required
		return evaluatePhase(outcome, PhaseRuleAllRequired)
	}
}
