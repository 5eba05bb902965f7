// Package analysis provides the built-in analysis agents. Each agent is a
// Worker delegating its reasoning to the external LLM service; the
// orchestrator treats the payloads as opaque.
//
// Phase layout:
//
//	phase 1  structure_scan (required), risk_assess, compliance_check
//	phase 2  cross_reference (required)
//	phase 3  executive_summary (required)
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"yqhp/analysis-engine/internal/worker"
)

// Completer is the slice of the LLM client the agents need.
// *worker.LLMClient satisfies it; tests substitute a canned implementation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// llmWorker is the common shape of all built-in agents: a spec, a system
// prompt and a user-prompt builder.
type llmWorker struct {
	spec         worker.Spec
	systemPrompt string
	buildPrompt  func(input *worker.Input) string
	client       Completer
}

// Spec implements worker.Worker.
func (w *llmWorker) Spec() worker.Spec { return w.spec }

// Execute implements worker.Worker. The raw model output is parsed as
// JSON when possible and wrapped as a raw string otherwise; agents are
// expected to follow their prompt contract, but a degraded payload is
// still better than a lost one.
func (w *llmWorker) Execute(ctx context.Context, input *worker.Input) (any, error) {
	content, err := w.client.Complete(ctx, w.systemPrompt, w.buildPrompt(input))
	if err != nil {
		return nil, worker.NewExecutionError(w.spec.Name, "llm delegation failed", err)
	}

	content = strings.TrimSpace(content)
	// strip a markdown fence if the model added one despite the prompt
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var payload map[string]any
	if err := sonic.UnmarshalString(content, &payload); err != nil {
		return map[string]any{"raw": content}, nil
	}
	return payload, nil
}

// formatUpstream renders upstream payloads as a stable, named list for
// inclusion in a prompt. Order is alphabetical by worker name.
func formatUpstream(upstream map[string]any) string {
	names := make([]string, 0, len(upstream))
	for name := range upstream {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		data, err := sonic.MarshalString(upstream[name])
		if err != nil {
			data = fmt.Sprintf("%v", upstream[name])
		}
		sb.WriteString(fmt.Sprintf("[%s]\n%s\n\n", name, data))
	}
	return sb.String()
}

// requestPrompt renders the subject and content of the original request.
func requestPrompt(input *worker.Input) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("分析对象：%s\n\n", input.Request.Subject))
	sb.WriteString("材料：\n")
	sb.WriteString(input.Request.Content)
	if len(input.Request.Aspects) > 0 {
		sb.WriteString(fmt.Sprintf("\n\n重点关注：%s", strings.Join(input.Request.Aspects, "、")))
	}
	return sb.String()
}
