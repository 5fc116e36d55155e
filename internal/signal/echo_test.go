package signal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	platform string
	count    int
	err      error

	mu       sync.Mutex
	calls    int
	keywords []string
}

func (f *fakeSource) Platform() string { return f.platform }

func (f *fakeSource) CountMentions(ctx context.Context, keywords []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keywords = keywords
	return f.count, f.err
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "tickers then terms, capped at three",
			text: "Big news for $BTC and ETH holders, DeFi TVL is up https://x.com/a @someone #crypto",
			want: []string{"BTC", "ETH", "defi"},
		},
		{
			name: "project names alone are not enough",
			text: "Ethereum is great",
			want: nil,
		},
		{
			name: "project names count with other keywords",
			text: "Solana staking yields",
			want: []string{"staking", "solana"},
		},
		{
			name: "coin suffix",
			text: "bitcoin blockchain",
			want: []string{"bitcoin", "blockchain"},
		},
		{
			name: "hashtags and mentions are stripped",
			text: "#BTC @ETH gm",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keywords(tt.text))
		})
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "BTC_ETH_defi", Topic("$BTC ETH defi"))
	assert.Equal(t, "", Topic("good morning"))
	assert.Equal(t, Topic("$BTC ETH defi"), Topic("$BTC ETH defi"))
}

func TestEchoVelocity(t *testing.T) {
	assert.Equal(t, 0.0, EchoVelocity(0, DefaultEchoScale))
	assert.Equal(t, 0.63, EchoVelocity(10, DefaultEchoScale))
	assert.Equal(t, 1.0, EchoVelocity(100, DefaultEchoScale))
	assert.Equal(t, 0.0, EchoVelocity(5, 0))
}

func TestEcho_Analyze(t *testing.T) {
	reddit := &fakeSource{platform: "reddit", count: 7}
	farcaster := &fakeSource{platform: "farcaster", err: errors.New("unavailable")}
	discord := &fakeSource{platform: "discord", count: 3}
	e := NewEcho([]domain.MentionSource{reddit, farcaster, discord}, zap.NewNop())

	res := e.Analyze(context.Background(), "$BTC ETH defi rally", domain.Record{"echo_velocity": 0.4})

	assert.Equal(t, "BTC_ETH_defi", res.Topic)
	assert.Equal(t, 7, res.RedditThreads)
	assert.Equal(t, 0, res.FarcasterRefs)
	assert.Equal(t, 3, res.DiscordRefs)
	assert.Equal(t, 10, res.TotalMentions)
	assert.Equal(t, 0.63, res.EchoVelocity)
	assert.InDelta(t, 0.23, res.VelocityChange, 1e-9)
	assert.InDelta(t, 8.15, res.AgentScore, 1e-9)

	assert.Contains(t, reddit.keywords, "Bitcoin")
	assert.Contains(t, reddit.keywords, "decentralized finance")
	assert.Equal(t, 1, farcaster.calls)
}

func TestEcho_NoKeywordsSkipsSources(t *testing.T) {
	src := &fakeSource{platform: "reddit", count: 50}
	e := NewEcho([]domain.MentionSource{src}, zap.NewNop())

	res := e.Analyze(context.Background(), "good morning everyone", nil)

	assert.Equal(t, 0, src.calls)
	assert.Equal(t, 0.0, res.EchoVelocity)
	assert.Equal(t, 5.0, res.AgentScore)
	assert.Empty(t, res.Topic)
}

func TestEcho_Invoke(t *testing.T) {
	e := NewEcho(nil, zap.NewNop())
	raw, err := e.Invoke(context.Background(), domain.Invocation{
		Item: &domain.ContentItem{ID: "1", Text: "$SOL staking"},
	})
	require.NoError(t, err)
	assert.Contains(t, raw, `"topic":"SOL_staking"`)
	assert.Contains(t, raw, `"echo_velocity":0`)
}
