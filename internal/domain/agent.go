package domain

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type AgentGroup string

const (
	GroupIndependent AgentGroup = "independent"
	GroupDependent   AgentGroup = "dependent"
)

func ValidAgentGroup(g string) bool {
	switch AgentGroup(g) {
	case GroupIndependent, GroupDependent:
		return true
	}
	return false
}

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeTimeout OutcomeStatus = "timeout"
)

// NeutralScore is substituted whenever an agent cannot provide a usable score.
const NeutralScore = 5.0

// legacyScoreFields are accepted when an agent does not report "score" or "agent_score".
var legacyScoreFields = []string{
	"summary_score",
	"preprocessing_score",
	"context_score",
	"fact_check_score",
	"depth_score",
	"relevance_score",
	"structure_score",
	"reflection_score",
	"credibility_score",
	"consensus_score",
}

// Record is the structured form of an agent's raw output.
type Record map[string]any

// Score returns the agent's numeric score on the 0-10 scale, preferring the
// standard field names and falling back to legacy ones. Missing or
// non-numeric values yield NeutralScore.
func (r Record) Score() float64 {
	for _, key := range append([]string{"score", "agent_score"}, legacyScoreFields...) {
		if v, ok := r.Float(key); ok {
			return math.Max(0, math.Min(10, v))
		}
	}
	return NeutralScore
}

// Float reads a numeric field. Numeric strings are accepted.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatOr reads a numeric field, returning def when absent or invalid.
func (r Record) FloatOr(key string, def float64) float64 {
	if f, ok := r.Float(key); ok {
		return f
	}
	return def
}

func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Strings reads a list of strings, skipping non-string entries.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Degraded reports whether the record is a parser or scheduler placeholder.
func (r Record) Degraded() bool {
	_, ok := r["error"]
	return ok
}

// PlaceholderRecord is the neutral record substituted for failed or timed out agents.
func PlaceholderRecord(reason string) Record {
	return Record{"score": NeutralScore, "error": reason}
}

type AgentOutcome struct {
	AgentName    string        `json:"agent_name"`
	Status       OutcomeStatus `json:"status"`
	Record       Record        `json:"record"`
	DurationMs   int64         `json:"duration_ms"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

func (o AgentOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// TimeoutOutcome builds the placeholder outcome for an agent that ran out of time.
func TimeoutOutcome(name string, elapsed time.Duration) AgentOutcome {
	return AgentOutcome{
		AgentName:    name,
		Status:       OutcomeTimeout,
		Record:       PlaceholderRecord("timeout"),
		DurationMs:   elapsed.Milliseconds(),
		ErrorMessage: "agent execution timed out",
	}
}

// FailedOutcome builds the placeholder outcome for an agent whose invocation errored.
func FailedOutcome(name string, elapsed time.Duration, err error) AgentOutcome {
	msg := "agent execution failed"
	if err != nil {
		msg = err.Error()
	}
	return AgentOutcome{
		AgentName:    name,
		Status:       OutcomeFailed,
		Record:       PlaceholderRecord(msg),
		DurationMs:   elapsed.Milliseconds(),
		ErrorMessage: msg,
	}
}

// Invocation is everything an agent sees for one content item.
// Outcomes is empty for independent agents and holds every outcome produced
// so far for dependent agents.
type Invocation struct {
	Item     *ContentItem
	Context  string
	Priors   Priors
	Outcomes map[string]AgentOutcome
}

// Invoker is the single capability every agent implements, rule-based or model-backed.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (string, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, inv Invocation) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, inv Invocation) (string, error) {
	return f(ctx, inv)
}
