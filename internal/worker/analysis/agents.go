package analysis

import (
	"fmt"
	"time"

	"yqhp/analysis-engine/internal/worker"
	"yqhp/analysis-engine/pkg/types"
)

// Agent names. Downstream projections reference these, so they are part
// of the package contract.
const (
	StructureScanName    = "structure_scan"
	RiskAssessName       = "risk_assess"
	ComplianceCheckName  = "compliance_check"
	CrossReferenceName   = "cross_reference"
	ExecutiveSummaryName = "executive_summary"
)

// NewStructureScan creates the phase-1 structure analysis agent. It is
// the only required phase-1 agent: without at least a structural read of
// the material the downstream phases have nothing to work with.
func NewStructureScan(client Completer, timeout time.Duration) worker.Worker {
	return &llmWorker{
		spec: worker.Spec{
			Name:     StructureScanName,
			Phase:    1,
			Timeout:  timeout,
			Required: true,
		},
		systemPrompt: structureSystemPrompt,
		buildPrompt:  requestPrompt,
		client:       client,
	}
}

// NewRiskAssess creates the phase-1 risk assessment agent (optional).
func NewRiskAssess(client Completer, timeout time.Duration) worker.Worker {
	return &llmWorker{
		spec: worker.Spec{
			Name:    RiskAssessName,
			Phase:   1,
			Timeout: timeout,
		},
		systemPrompt: riskSystemPrompt,
		buildPrompt:  requestPrompt,
		client:       client,
	}
}

// NewComplianceCheck creates the phase-1 compliance agent (optional).
func NewComplianceCheck(client Completer, timeout time.Duration) worker.Worker {
	return &llmWorker{
		spec: worker.Spec{
			Name:    ComplianceCheckName,
			Phase:   1,
			Timeout: timeout,
		},
		systemPrompt: complianceSystemPrompt,
		buildPrompt:  requestPrompt,
		client:       client,
	}
}

// NewCrossReference creates the phase-2 agent comparing the phase-1
// findings against each other. It only sees phase-1 payloads, not the raw
// material, which keeps its context small.
func NewCrossReference(client Completer, timeout time.Duration) worker.Worker {
	return &llmWorker{
		spec: worker.Spec{
			Name:     CrossReferenceName,
			Phase:    2,
			Timeout:  timeout,
			Required: true,
			// the raw material stays out of this agent's context
			Project: func(req *types.AnalysisRequest, upstream map[string]any) (*worker.Input, error) {
				trimmed := *req
				trimmed.Content = ""
				return &worker.Input{Request: &trimmed, Upstream: upstream}, nil
			},
		},
		systemPrompt: crossRefSystemPrompt,
		buildPrompt: func(input *worker.Input) string {
			return fmt.Sprintf("分析对象：%s\n\n各专家分析结果：\n\n%s",
				input.Request.Subject, formatUpstream(input.Upstream))
		},
		client: client,
	}
}

// NewExecutiveSummary creates the phase-3 agent producing the final
// decision-maker summary from everything gathered so far.
func NewExecutiveSummary(client Completer, timeout time.Duration) worker.Worker {
	return &llmWorker{
		spec: worker.Spec{
			Name:     ExecutiveSummaryName,
			Phase:    3,
			Timeout:  timeout,
			Required: true,
		},
		systemPrompt: summarySystemPrompt,
		buildPrompt: func(input *worker.Input) string {
			return fmt.Sprintf("分析对象：%s\n\n全部前序分析结果：\n\n%s",
				input.Request.Subject, formatUpstream(input.Upstream))
		},
		client: client,
	}
}

// RegisterAll installs the full built-in agent set into the registry.
// Registration failures are programmer errors and panic.
func RegisterAll(registry *worker.Registry, client Completer, timeout time.Duration) {
	registry.MustRegister(NewStructureScan(client, timeout))
	registry.MustRegister(NewRiskAssess(client, timeout))
	registry.MustRegister(NewComplianceCheck(client, timeout))
	registry.MustRegister(NewCrossReference(client, timeout))
	registry.MustRegister(NewExecutiveSummary(client, timeout))
}
