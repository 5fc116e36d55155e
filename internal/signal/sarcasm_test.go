package signal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSarcasmCueScore(t *testing.T) {
	assert.Equal(t, 0.0, SarcasmCueScore("Bitcoin ETF approved by the SEC"))
	assert.InDelta(t, 0.9, SarcasmCueScore("Oh wonderful, another hack. What could possibly go wrong 🙄"), 1e-9)
	assert.Equal(t, 1.0, SarcasmCueScore("Yeah right. Sure thing 🙄 🤡 oh wonderful, just what we needed"))
}

func TestAuthorSarcasmPrior(t *testing.T) {
	assert.Equal(t, DefaultSarcasmPrior, AuthorSarcasmPrior(nil))

	priors := domain.Priors{
		domain.NamespaceSarcasm: {
			Namespace:   domain.NamespaceSarcasm,
			EntityKey:   "alice",
			Fields:      domain.Record{"sarcasm_rate": 0.6},
			LastUpdated: time.Now(),
		},
	}
	assert.Equal(t, 0.6, AuthorSarcasmPrior(priors))
}

func TestSarcasm_PlainTextSkipsModel(t *testing.T) {
	client := llm.NewMockClient()
	s := NewSarcasm(client, zap.NewNop())

	res := s.Analyze(context.Background(), "Bitcoin ETF approved by the SEC", "", DefaultSarcasmPrior)

	assert.False(t, res.IsSarcastic)
	assert.Equal(t, 7.0, res.AgentScore)
	assert.Equal(t, "No clear sarcasm indicators detected", res.Reason)
	assert.Equal(t, 0, client.CallCount())
}

func TestSarcasm_AmbiguousAsksModel(t *testing.T) {
	client := llm.NewMockClient()
	client.Response = `{"is_sarcastic": true, "p_sarcasm": 0.85, "reason": "mocking tone"}`
	s := NewSarcasm(client, zap.NewNop())

	res := s.Analyze(context.Background(), "Oh wonderful, another hack. What could possibly go wrong 🙄", "", DefaultSarcasmPrior)

	require.Equal(t, 1, client.CallCount())
	assert.True(t, res.IsSarcastic)
	assert.Equal(t, 0.85, res.PSarcasm)
	assert.Equal(t, 8.0, res.AgentScore)
	assert.Equal(t, "mocking tone", res.Reason)
}

func TestSarcasm_AmbiguousWithoutModel(t *testing.T) {
	s := NewSarcasm(nil, zap.NewNop())
	res := s.Analyze(context.Background(), "Oh wonderful, another hack. What could possibly go wrong 🙄", "", DefaultSarcasmPrior)

	assert.InDelta(t, 0.47, res.PSarcasm, 1e-9)
	assert.False(t, res.IsSarcastic)
}

func TestSarcasm_ModelFailureKeepsHeuristic(t *testing.T) {
	client := llm.NewMockClient()
	client.Response = "I cannot decide"
	s := NewSarcasm(client, zap.NewNop())

	res := s.Analyze(context.Background(), "Oh wonderful, another hack. What could possibly go wrong 🙄", "", DefaultSarcasmPrior)
	assert.InDelta(t, 0.47, res.PSarcasm, 1e-9)
}

func TestSarcasm_Invoke(t *testing.T) {
	s := NewSarcasm(nil, zap.NewNop())

	_, err := s.Invoke(context.Background(), domain.Invocation{})
	assert.ErrorIs(t, err, domain.ErrItemTextEmpty)

	raw, err := s.Invoke(context.Background(), domain.Invocation{
		Item: &domain.ContentItem{ID: "1", Text: "gm"},
	})
	require.NoError(t, err)

	var rec domain.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, 7.0, rec.Score())
	assert.False(t, rec.Bool("is_sarcastic"))
}
