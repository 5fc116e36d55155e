package agent

import (
	"fmt"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

type Kind string

const (
	KindPrompt Kind = "prompt"
	KindSignal Kind = "signal"
)

// Spec is one catalog entry. A zero Timeout takes the group default.
type Spec struct {
	Name    string            `yaml:"name" json:"name"`
	Kind    Kind              `yaml:"kind" json:"kind"`
	Weight  float64           `yaml:"weight" json:"weight"`
	Group   domain.AgentGroup `yaml:"group" json:"group"`
	Timeout time.Duration     `yaml:"timeout" json:"timeout"`
}

// Signal agent names.
const (
	SarcasmSentinel     = "sarcasm_sentinel"
	EchoMapper          = "echo_mapper"
	LatencyGuard        = "latency_guard"
	SlopFilter          = "slop_filter"
	BannedPhraseSkeptic = "banned_phrase_skeptic"
	FactChecker         = "fact_checker"
)

// traditionalShare scales the prompt agents' weights to make room for the
// signal agents.
const traditionalShare = 0.85

// DefaultCatalog is the built-in agent set, in registration order.
func DefaultCatalog() []Spec {
	traditional := []struct {
		name   string
		weight float64
	}{
		{"summary_agent", 0.10},
		{"input_preprocessor", 0.05},
		{"context_evaluator", 0.15},
		{FactChecker, 0.18},
		{"depth_analyzer", 0.12},
		{"relevance_analyzer", 0.15},
		{"structure_analyzer", 0.08},
		{"reflective_agent", 0.07},
		{"metadata_ranking_agent", 0.06},
		{"consensus_agent", 0.04},
	}

	specs := make([]Spec, 0, len(traditional)+7)
	for _, t := range traditional {
		specs = append(specs, Spec{Name: t.name, Kind: KindPrompt, Weight: t.weight * traditionalShare, Group: domain.GroupIndependent})
	}
	specs = append(specs,
		Spec{Name: SarcasmSentinel, Kind: KindSignal, Weight: 0.03, Group: domain.GroupIndependent},
		Spec{Name: EchoMapper, Kind: KindSignal, Weight: 0.05, Group: domain.GroupIndependent},
		Spec{Name: LatencyGuard, Kind: KindSignal, Weight: 0.02, Group: domain.GroupIndependent},
		Spec{Name: SlopFilter, Kind: KindSignal, Weight: 0.03, Group: domain.GroupIndependent},
		Spec{Name: BannedPhraseSkeptic, Kind: KindSignal, Weight: 0.02, Group: domain.GroupIndependent},
		Spec{Name: "score_consolidator", Kind: KindPrompt, Weight: 0, Group: domain.GroupDependent},
		Spec{Name: "validator", Kind: KindPrompt, Weight: 0, Group: domain.GroupDependent},
	)
	return specs
}

// Dependencies supplies the implementations catalog entries resolve to.
type Dependencies struct {
	LLM     domain.LLMClient
	Signals map[string]domain.Invoker
	// Timeouts override the group defaults for entries without their own.
	IndependentTimeout time.Duration
	DependentTimeout   time.Duration
}

// BuildRegistry resolves every spec to an invoker. Unknown names fail here,
// at configuration time, never during a run.
func BuildRegistry(specs []Spec, deps Dependencies) (*Registry, error) {
	reg := NewRegistry()
	for _, s := range specs {
		inv, err := resolve(s, deps)
		if err != nil {
			return nil, err
		}
		timeout := s.Timeout
		if timeout <= 0 {
			timeout = deps.IndependentTimeout
			if s.Group == domain.GroupDependent {
				timeout = deps.DependentTimeout
			}
		}
		if err := reg.Register(Task{
			Name:    s.Name,
			Weight:  s.Weight,
			Group:   s.Group,
			Timeout: timeout,
			Invoker: inv,
		}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func resolve(s Spec, deps Dependencies) (domain.Invoker, error) {
	switch s.Kind {
	case KindPrompt:
		return NewPromptAgent(s.Name, deps.LLM)
	case KindSignal:
		inv, ok := deps.Signals[s.Name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", s.Name, ErrUnknownAgent)
		}
		if inv == nil {
			return nil, fmt.Errorf("%s: %w", s.Name, ErrNoInvoker)
		}
		return inv, nil
	default:
		return nil, fmt.Errorf("%s: unknown kind %q: %w", s.Name, s.Kind, ErrUnknownAgent)
	}
}
