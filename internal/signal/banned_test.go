package signal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBanned_Analyze(t *testing.T) {
	b := NewBanned(zap.NewNop())

	tests := []struct {
		name      string
		text      string
		sarcastic bool
		history   domain.Record
		wantTone  float64
		escalate  bool
		terms     int
	}{
		{
			name:     "clean",
			text:     "Protocol upgrade ships next week",
			wantTone: 0,
		},
		{
			name:     "stacked promises saturate",
			text:     "To the moon!!! 100x gains guaranteed profit",
			wantTone: 1,
			escalate: true,
			terms:    5,
		},
		{
			name:     "inappropriate term always escalates",
			text:     "This project is a scam",
			wantTone: 0.32,
			escalate: true,
			terms:    1,
		},
		{
			name:     "food context is innocent",
			text:     "This burger recipe is trash",
			wantTone: 0,
		},
		{
			name:      "sarcasm reduces weight",
			text:      "hodl",
			sarcastic: true,
			wantTone:  0.04,
			terms:     1,
		},
		{
			name:     "quoted language reduces weight",
			text:     `"scam" they said`,
			wantTone: 0.26,
			escalate: true,
			terms:    1,
		},
		{
			name:     "value indicators reduce weight by up to 30%",
			text:     "scam https://x.io 5% funding",
			wantTone: 0.22,
			escalate: true,
			terms:    1,
		},
		{
			name:     "moderate tone alone does not escalate",
			text:     "easy money, get rich quick",
			wantTone: 0.75,
			terms:    2,
		},
		{
			name:     "chronic violator escalates on moderate tone",
			text:     "easy money, get rich quick",
			history:  domain.Record{"count": 5, "avg_weight": 1.2},
			wantTone: 0.75,
			escalate: true,
			terms:    2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.Analyze(tt.text, tt.sarcastic, tt.history)
			assert.InDelta(t, tt.wantTone, res.TonePenalty, 1e-9)
			assert.Equal(t, tt.escalate, res.Escalate, res.EscalationReasons)
			assert.Len(t, res.Violations, tt.terms)
			assert.InDelta(t, max(1, 10-8*tt.wantTone), res.AgentScore, 0.011)
		})
	}
}

func TestBanned_ViolationTermsAreLowercase(t *testing.T) {
	res := NewBanned(zap.NewNop()).Analyze("HODL and wagmi", false, nil)
	require.Len(t, res.Violations, 2)
	assert.Equal(t, "hodl", res.Violations[0].Term)
	assert.Equal(t, CategoryHype, res.Violations[0].Category)
	assert.Equal(t, "hodl (crypto slang)", res.BannedTerms[0])
}

func TestExcepted(t *testing.T) {
	assert.True(t, excepted("moonbeam is live", []string{"moon"}))
	assert.False(t, excepted("to the moon", []string{"to the moon"}))
}

func TestChronicViolator(t *testing.T) {
	assert.False(t, ChronicViolator(nil))
	assert.False(t, ChronicViolator(domain.Record{"count": 4, "avg_weight": 3.0}))
	assert.False(t, ChronicViolator(domain.Record{"count": 10, "avg_weight": 1.0}))
	assert.True(t, ChronicViolator(domain.Record{"count": 10, "avg_weight": 1.01}))
}

func TestBanned_Invoke(t *testing.T) {
	b := NewBanned(zap.NewNop())
	raw, err := b.Invoke(context.Background(), domain.Invocation{
		Item: &domain.ContentItem{ID: "1", Text: "wagmi"},
	})
	require.NoError(t, err)

	var rec domain.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.InDelta(t, 0.08, rec.FloatOr("tone_penalty", -1), 1e-9)
	assert.False(t, rec.Bool("escalate"))
}
