package memory

import (
	"fmt"
	"sort"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

type schema struct {
	required []string
	optional []string
	numeric  []string
}

var schemas = map[domain.Namespace]schema{
	domain.NamespaceSarcasm: {
		required: []string{"total_tweets", "sarcastic_tweets", "sarcasm_rate"},
		optional: []string{"last_updated", "examples", "confidence_history"},
		numeric:  []string{"total_tweets", "sarcastic_tweets", "sarcasm_rate"},
	},
	domain.NamespaceEcho: {
		required: []string{"last_seen", "echo_velocity"},
		optional: []string{"reddit_threads", "farcaster_refs", "discord_refs", "previous_velocity", "velocity_change", "total_mentions", "last_updated"},
		numeric:  []string{"echo_velocity", "previous_velocity", "velocity_change", "total_mentions"},
	},
	domain.NamespaceSlop: {
		required: []string{"count", "avg_slop"},
		optional: []string{"total_slop", "last_scores", "last_updated"},
		numeric:  []string{"count", "avg_slop", "total_slop"},
	},
	domain.NamespaceBanTerms: {
		required: []string{"count", "total_weight"},
		optional: []string{"violations", "avg_weight", "last_updated"},
		numeric:  []string{"count", "total_weight", "avg_weight"},
	},
	domain.NamespaceLatency: {
		required: []string{"asset", "price_change_pct", "delta_seconds"},
		optional: []string{"tweet_text", "tweet_time", "flagged_at", "last_updated"},
		numeric:  []string{"price_change_pct", "delta_seconds"},
	},
}

// Defaults returns a fresh default record for ns. Namespaces without a
// meaningful zero state (echo, latency) default to an empty record.
func Defaults(ns domain.Namespace) domain.Record {
	switch ns {
	case domain.NamespaceSarcasm:
		return domain.Record{"total_tweets": 0, "sarcastic_tweets": 0, "sarcasm_rate": 0.0}
	case domain.NamespaceSlop:
		return domain.Record{"count": 0, "avg_slop": 0.0, "total_slop": 0.0, "last_scores": []any{}}
	case domain.NamespaceBanTerms:
		return domain.Record{"count": 0, "total_weight": 0.0, "violations": map[string]any{}, "avg_weight": 0.0}
	default:
		return domain.Record{}
	}
}

// Validate checks fields against the namespace schema and returns every
// violation found. It never fails: an unknown namespace is itself a violation.
func Validate(ns domain.Namespace, fields domain.Record) []string {
	sc, ok := schemas[ns]
	if !ok {
		return []string{fmt.Sprintf("Unknown namespace: %s", ns)}
	}

	var violations []string
	for _, f := range sc.required {
		if _, ok := fields[f]; !ok {
			violations = append(violations, fmt.Sprintf("Missing required field: %s", f))
		}
	}

	allowed := make(map[string]struct{}, len(sc.required)+len(sc.optional))
	for _, f := range sc.required {
		allowed[f] = struct{}{}
	}
	for _, f := range sc.optional {
		allowed[f] = struct{}{}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := allowed[k]; !ok {
			violations = append(violations, fmt.Sprintf("Unexpected field: %s", k))
		}
	}

	for _, f := range sc.numeric {
		if _, present := fields[f]; !present {
			continue
		}
		if _, ok := fields.Float(f); !ok {
			violations = append(violations, fmt.Sprintf("Invalid numeric field: %s", f))
		}
	}
	return violations
}
