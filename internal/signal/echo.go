package signal

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultEchoScale is the mention count at which velocity reaches 1-1/e.
const DefaultEchoScale = 10.0

const maxKeywords = 3

var (
	echoNoise   = regexp.MustCompile(`http\S+|@\w+|#\w+`)
	knownTicker = []string{
		"BTC", "ETH", "ADA", "DOT", "SOL", "AVAX", "MATIC", "LINK", "UNI", "AAVE",
		"COMP", "MKR", "YFI", "SUSHI", "CRV", "BAL", "SNX", "LUNA", "ATOM", "FTM",
	}
	tickerPatterns = func() map[string]*regexp.Regexp {
		out := make(map[string]*regexp.Regexp, len(knownTicker))
		for _, t := range knownTicker {
			out[t] = regexp.MustCompile(`\b` + t + `\b`)
		}
		return out
	}()
	cryptoTerms = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\w+coin\b`),
		regexp.MustCompile(`(?i)\bdefi\b`),
		regexp.MustCompile(`(?i)\bnfts?\b`),
		regexp.MustCompile(`(?i)\bdaos?\b`),
		regexp.MustCompile(`(?i)\btvl\b`),
		regexp.MustCompile(`(?i)\bstaking\b`),
		regexp.MustCompile(`(?i)\bliquidity\b`),
		regexp.MustCompile(`(?i)\bprotocols?\b`),
		regexp.MustCompile(`(?i)\bdapps?\b`),
		regexp.MustCompile(`(?i)\bweb3\b`),
		regexp.MustCompile(`(?i)\bblockchain\b`),
		regexp.MustCompile(`(?i)\bcrypto(?:currency)?\b`),
		regexp.MustCompile(`(?i)\bmarket cap\b`),
		regexp.MustCompile(`(?i)\balt(?:coin)?s?\b`),
	}
	projectNames = []string{"ethereum", "bitcoin", "solana", "avalanche", "polygon", "uniswap", "aave"}
	projectRe    = regexp.MustCompile(`(?i)\b(` + strings.Join(projectNames, "|") + `)\b`)

	keywordExpansions = map[string][]string{
		"BTC":  {"Bitcoin", "bitcoin"},
		"ETH":  {"Ethereum", "ethereum", "ether"},
		"DEFI": {"decentralized finance", "defi"},
		"NFT":  {"non-fungible token", "nft"},
		"DAO":  {"decentralized autonomous organization", "dao"},
		"TVL":  {"total value locked", "tvl"},
		"DEX":  {"decentralized exchange", "dex"},
		"CEX":  {"centralized exchange", "cex"},
	}
)

// Keywords extracts up to three crypto-specific search keywords in order of
// appearance class: tickers, crypto terms, then project names.
func Keywords(text string) []string {
	clean := echoNoise.ReplaceAllString(text, "")
	upper := strings.ToUpper(clean)

	var out []string
	seen := map[string]bool{}
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	for _, t := range knownTicker {
		if tickerPatterns[t].MatchString(upper) {
			add(t)
		}
	}
	for _, re := range cryptoTerms {
		for _, m := range re.FindAllString(clean, -1) {
			add(strings.ToLower(m))
		}
	}
	if len(out) > 0 {
		for _, m := range projectRe.FindAllString(clean, -1) {
			add(strings.ToLower(m))
		}
	}

	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}

// Topic is the echo_map entity key for a post, or "" when it has no crypto keywords.
func Topic(text string) string {
	return strings.Join(Keywords(text), "_")
}

func expandKeywords(keywords []string) []string {
	out := append([]string(nil), keywords...)
	seen := map[string]bool{}
	for _, k := range keywords {
		seen[k] = true
	}
	for _, k := range keywords {
		for _, syn := range keywordExpansions[strings.ToUpper(k)] {
			if !seen[syn] {
				seen[syn] = true
				out = append(out, syn)
			}
		}
	}
	return out
}

type EchoResult struct {
	Topic          string         `json:"topic"`
	Keywords       []string       `json:"keywords"`
	Mentions       map[string]int `json:"mentions"`
	RedditThreads  int            `json:"reddit_threads"`
	FarcasterRefs  int            `json:"farcaster_refs"`
	DiscordRefs    int            `json:"discord_refs"`
	TotalMentions  int            `json:"total_mentions"`
	EchoVelocity   float64        `json:"echo_velocity"`
	VelocityChange float64        `json:"velocity_change"`
	AgentScore     float64        `json:"agent_score"`
}

// Echo measures how widely a post's topic reverberates on other platforms.
type Echo struct {
	sources []domain.MentionSource
	scale   float64
	logger  *zap.Logger
}

var _ domain.Invoker = (*Echo)(nil)

func NewEcho(sources []domain.MentionSource, logger *zap.Logger) *Echo {
	return &Echo{sources: sources, scale: DefaultEchoScale, logger: logger}
}

func (e *Echo) Invoke(ctx context.Context, inv domain.Invocation) (string, error) {
	if inv.Item == nil {
		return "", domain.ErrItemTextEmpty
	}
	return encode(e.Analyze(ctx, inv.Item.Text, inv.Priors.Fields(domain.NamespaceEcho)))
}

// Analyze counts mentions across every source concurrently. A failing source
// counts as zero mentions.
func (e *Echo) Analyze(ctx context.Context, text string, prior domain.Record) EchoResult {
	keywords := Keywords(text)
	res := EchoResult{
		Keywords:   keywords,
		Mentions:   map[string]int{},
		AgentScore: 5,
	}
	if len(keywords) == 0 {
		return res
	}
	res.Topic = strings.Join(keywords, "_")
	expanded := expandKeywords(keywords)

	var mu sync.Mutex
	var g errgroup.Group
	for _, src := range e.sources {
		src := src
		g.Go(func() error {
			n, err := src.CountMentions(ctx, expanded)
			if err != nil {
				e.logger.Warn("mention search failed",
					zap.String("platform", src.Platform()), zap.Error(err))
				return nil
			}
			mu.Lock()
			res.Mentions[src.Platform()] += n
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for platform, n := range res.Mentions {
		res.TotalMentions += n
		switch platform {
		case "reddit":
			res.RedditThreads = n
		case "farcaster":
			res.FarcasterRefs = n
		case "discord":
			res.DiscordRefs = n
		}
	}

	res.EchoVelocity = EchoVelocity(res.TotalMentions, e.scale)
	if prev, ok := prior.Float("echo_velocity"); ok {
		res.VelocityChange = round(res.EchoVelocity-prev, 2)
	}
	res.AgentScore = math.Min(10, 5+res.EchoVelocity*5)
	return res
}

// EchoVelocity normalizes a mention count onto 0-1: 1 - e^(-total/scale),
// rounded to two decimals.
func EchoVelocity(total int, scale float64) float64 {
	if total <= 0 || scale <= 0 {
		return 0
	}
	return round(math.Min(1, 1-math.Exp(-float64(total)/scale)), 2)
}
