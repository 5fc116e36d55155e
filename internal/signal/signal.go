// Package signal holds the rule-based signal agents. Their outputs feed the
// consolidator's adjustments rather than the base score. Agents only read
// priors; memory is recorded by the pipeline after consolidation.
package signal

import (
	"encoding/json"
	"fmt"
	"math"
)

// ChronicMinCount is the number of scored items before an author's history
// can mark them as a chronic offender.
const ChronicMinCount = 5

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode signal result: %w", err)
	}
	return string(data), nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
