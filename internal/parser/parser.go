// Package parser turns raw agent output into a structured record. Parse never
// fails: output that cannot be decoded yields a neutral fallback record.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

// RawPreviewLimit is the number of raw characters kept on a fallback record.
const RawPreviewLimit = 500

// ErrParseFailed is the error text stored on fallback records.
const ErrParseFailed = "parse failed"

var fencedBlock = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_-]+)?\\s*\\n?(.*?)```")

// Parse decodes an agent's raw output. It tries, in order, the whole text, the
// first fenced code block and the outermost balanced brace span, then falls back.
func Parse(raw, agentName string) domain.Record {
	text := strings.TrimSpace(raw)

	if rec, ok := decodeObject(text); ok {
		return rec
	}

	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if rec, ok := decodeObject(strings.TrimSpace(m[1])); ok {
			return rec
		}
	}

	if span, ok := outermostBraces(text); ok {
		if rec, ok := decodeObject(span); ok {
			return rec
		}
	}

	return Fallback(raw, agentName)
}

// Fallback is the degraded record used when nothing in raw decodes.
func Fallback(raw, agentName string) domain.Record {
	return domain.Record{
		"score":        domain.NeutralScore,
		"agent_score":  domain.NeutralScore,
		"error":        ErrParseFailed,
		"agent":        agentName,
		"raw_response": truncate(raw, RawPreviewLimit),
		"status":       "failed",
	}
}

func decodeObject(text string) (domain.Record, bool) {
	if text == "" || text[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(text))
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil || rec == nil {
		return nil, false
	}
	// Trailing text after the object means this strategy did not match.
	if rest := text[dec.InputOffset():]; strings.TrimSpace(rest) != "" {
		return nil, false
	}
	return domain.Record(rec), true
}

// outermostBraces returns the span from the first '{' to its matching '}',
// skipping braces inside JSON strings. When the braces never balance it
// falls back to the last '}' in the text.
func outermostBraces(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	end := strings.LastIndexByte(text, '}')
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
