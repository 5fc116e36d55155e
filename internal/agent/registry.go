// Package agent holds the agent capability registry and the execution plan
// derived from it.
package agent

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

const (
	DefaultIndependentTimeout = 30 * time.Second
	DefaultDependentTimeout   = 60 * time.Second
)

var (
	ErrDuplicateAgent = errors.New("agent already registered")
	ErrUnknownAgent   = errors.New("unknown agent")
	ErrInvalidWeight  = errors.New("agent weight must be within [0, 1]")
	ErrInvalidGroup   = errors.New("agent group must be independent or dependent")
	ErrNoInvoker      = errors.New("agent has no invoker")
)

// Task is one configured agent.
type Task struct {
	Name    string
	Weight  float64
	Group   domain.AgentGroup
	Timeout time.Duration
	Invoker domain.Invoker
}

// Registry holds the configured agents in registration order. It is mutated
// only at configuration time; runs work from an immutable Plan.
type Registry struct {
	mu    sync.RWMutex
	tasks []Task
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(t Task) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownAgent)
	}
	if !domain.ValidAgentGroup(string(t.Group)) {
		return fmt.Errorf("%s: %w", t.Name, ErrInvalidGroup)
	}
	if !validWeight(t.Weight) {
		return fmt.Errorf("%s: %w", t.Name, ErrInvalidWeight)
	}
	if t.Invoker == nil {
		return fmt.Errorf("%s: %w", t.Name, ErrNoInvoker)
	}
	if t.Timeout <= 0 {
		t.Timeout = DefaultIndependentTimeout
		if t.Group == domain.GroupDependent {
			t.Timeout = DefaultDependentTimeout
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(t.Name) >= 0 {
		return fmt.Errorf("%s: %w", t.Name, ErrDuplicateAgent)
	}
	r.tasks = append(r.tasks, t)
	return nil
}

func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%s: %w", name, ErrUnknownAgent)
	}
	r.tasks = append(r.tasks[:i:i], r.tasks[i+1:]...)
	return nil
}

func (r *Registry) Reweight(name string, weight float64) error {
	if !validWeight(weight) {
		return fmt.Errorf("%s: %w", name, ErrInvalidWeight)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%s: %w", name, ErrUnknownAgent)
	}
	r.tasks[i].Weight = weight
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Plan snapshots the registry. Independent weights are renormalized so the
// contributing agents sum to 1; dependent agents never contribute.
func (r *Registry) Plan() *Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum float64
	for _, t := range r.tasks {
		if t.Group == domain.GroupIndependent && t.Weight > 0 {
			sum += t.Weight
		}
	}

	p := &Plan{weights: make(map[string]float64, len(r.tasks))}
	for _, t := range r.tasks {
		switch t.Group {
		case domain.GroupIndependent:
			if sum > 0 && t.Weight > 0 {
				t.Weight /= sum
			} else {
				t.Weight = 0
			}
			p.Independent = append(p.Independent, t)
		case domain.GroupDependent:
			t.Weight = 0
			p.Dependent = append(p.Dependent, t)
		}
		p.weights[t.Name] = t.Weight
	}
	return p
}

func (r *Registry) indexOf(name string) int {
	for i, t := range r.tasks {
		if t.Name == name {
			return i
		}
	}
	return -1
}

func validWeight(w float64) bool {
	return !math.IsNaN(w) && w >= 0 && w <= 1
}

// Plan is an immutable execution plan: the independent set, run concurrently,
// followed by the dependent set in registration order.
type Plan struct {
	Independent []Task
	Dependent   []Task
	weights     map[string]float64
}

// Weights returns a copy of the normalized weights by agent name.
func (p *Plan) Weights() map[string]float64 {
	out := make(map[string]float64, len(p.weights))
	for k, v := range p.weights {
		out[k] = v
	}
	return out
}

// Len is the number of tasks, and so the number of outcomes, per run.
func (p *Plan) Len() int {
	return len(p.Independent) + len(p.Dependent)
}

type TaskInfo struct {
	Name      string            `json:"name"`
	Group     domain.AgentGroup `json:"group"`
	Weight    float64           `json:"weight"`
	TimeoutMs int64             `json:"timeout_ms"`
}

// Describe lists the plan in execution order.
func (p *Plan) Describe() []TaskInfo {
	out := make([]TaskInfo, 0, p.Len())
	for _, set := range [][]Task{p.Independent, p.Dependent} {
		for _, t := range set {
			out = append(out, TaskInfo{
				Name:      t.Name,
				Group:     t.Group,
				Weight:    t.Weight,
				TimeoutMs: t.Timeout.Milliseconds(),
			})
		}
	}
	return out
}
