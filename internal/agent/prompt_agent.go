package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

var _ domain.Invoker = (*PromptAgent)(nil)

// PromptAgent is a model-backed agent. Dependent prompt agents also see every
// outcome produced so far.
type PromptAgent struct {
	name   string
	llm    domain.LLMClient
	prompt prompt
}

func NewPromptAgent(name string, llm domain.LLMClient) (*PromptAgent, error) {
	p, ok := prompts[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownAgent)
	}
	if llm == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoInvoker)
	}
	return &PromptAgent{name: name, llm: llm, prompt: p}, nil
}

func (a *PromptAgent) Name() string { return a.name }

func (a *PromptAgent) Invoke(ctx context.Context, inv domain.Invocation) (string, error) {
	var responses string
	if len(inv.Outcomes) > 0 {
		data, err := json.MarshalIndent(summarizeOutcomes(inv.Outcomes), "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode prior outcomes: %w", err)
		}
		responses = string(data)
	}
	return a.llm.Complete(ctx, SystemPrompt, a.prompt.render(inv.Context, responses))
}

type outcomeView struct {
	Status domain.OutcomeStatus `json:"status"`
	Score  float64              `json:"score"`
	Record domain.Record        `json:"record"`
}

func summarizeOutcomes(outcomes map[string]domain.AgentOutcome) map[string]outcomeView {
	out := make(map[string]outcomeView, len(outcomes))
	for name, o := range outcomes {
		out[name] = outcomeView{Status: o.Status, Score: o.Record.Score(), Record: o.Record}
	}
	return out
}
