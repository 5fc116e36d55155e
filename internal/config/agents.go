package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"gopkg.in/yaml.v3"
)

var ErrInvalidCatalog = errors.New("invalid agent catalog")

// AgentCatalog is the YAML document listing the agents to register.
//
//	agents:
//	  - name: fact_checker
//	    kind: prompt
//	    weight: 0.153
//	    group: independent
//	    timeout: 45s
type AgentCatalog struct {
	Agents []agent.Spec `yaml:"agents"`
}

var signalNames = map[string]bool{
	agent.SarcasmSentinel:     true,
	agent.EchoMapper:          true,
	agent.LatencyGuard:        true,
	agent.SlopFilter:          true,
	agent.BannedPhraseSkeptic: true,
}

// LoadAgentCatalog reads the catalog at path. An empty path yields the
// built-in default catalog.
func LoadAgentCatalog(path string) ([]agent.Spec, error) {
	if path == "" {
		return agent.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent catalog: %w", err)
	}
	return ParseAgentCatalog(data)
}

func ParseAgentCatalog(data []byte) ([]agent.Spec, error) {
	var cat AgentCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	cat.Normalize()
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat.Agents, nil
}

// Normalize fills in defaults: signal agents are recognized by name, all
// other agents are prompt agents, and the group defaults to independent.
func (c *AgentCatalog) Normalize() {
	for i := range c.Agents {
		a := &c.Agents[i]
		a.Name = strings.TrimSpace(a.Name)
		a.Kind = agent.Kind(strings.ToLower(strings.TrimSpace(string(a.Kind))))
		if a.Kind == "" {
			a.Kind = agent.KindPrompt
			if signalNames[a.Name] {
				a.Kind = agent.KindSignal
			}
		}
		a.Group = domain.AgentGroup(strings.ToLower(strings.TrimSpace(string(a.Group))))
		if a.Group == "" {
			a.Group = domain.GroupIndependent
		}
	}
}

func (c *AgentCatalog) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("%w: no agents", ErrInvalidCatalog)
	}
	seen := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		switch {
		case a.Name == "":
			return fmt.Errorf("%w: agent %d has no name", ErrInvalidCatalog, i)
		case seen[a.Name]:
			return fmt.Errorf("%w: duplicate agent %q", ErrInvalidCatalog, a.Name)
		case a.Kind != agent.KindPrompt && a.Kind != agent.KindSignal:
			return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidCatalog, a.Name, a.Kind)
		case a.Kind == agent.KindSignal && !signalNames[a.Name]:
			return fmt.Errorf("%w: %s is not a signal agent", ErrInvalidCatalog, a.Name)
		case !domain.ValidAgentGroup(string(a.Group)):
			return fmt.Errorf("%w: %s: unknown group %q", ErrInvalidCatalog, a.Name, a.Group)
		case a.Weight < 0 || a.Weight > 1:
			return fmt.Errorf("%w: %s: weight %v outside [0, 1]", ErrInvalidCatalog, a.Name, a.Weight)
		case a.Timeout < 0:
			return fmt.Errorf("%w: %s: negative timeout", ErrInvalidCatalog, a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}
