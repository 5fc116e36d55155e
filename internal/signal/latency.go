package signal

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"go.uber.org/zap"
)

const (
	// LatencyWindow is how far before a post the price history is checked.
	LatencyWindow   = 3 * time.Hour
	// MinRepriceDelay is the minimum lead of a price move over the post.
	MinRepriceDelay = 120 * time.Second
	reviewDelay     = 600 * time.Second
	reviewMovePct   = 5.0

	maxCachedWindows = 256
)

// repriceThresholds are absolute percentage moves per asset.
var repriceThresholds = map[string]float64{
	"BTC": 3,
	"ETH": 5,
}

const defaultRepriceThreshold = 3.0

var (
	cashtag      = regexp.MustCompile(`\$([A-Z]{2,5})\b`)
	assetAliases = []struct {
		re     *regexp.Regexp
		symbol string
	}{
		{regexp.MustCompile(`\bbitcoin\b`), "BTC"},
		{regexp.MustCompile(`\bbtc\b`), "BTC"},
		{regexp.MustCompile(`\bethereum\b`), "ETH"},
		{regexp.MustCompile(`\beth\b`), "ETH"},
		{regexp.MustCompile(`\bether\b`), "ETH"},
		{regexp.MustCompile(`\bsolana\b`), "SOL"},
		{regexp.MustCompile(`\bsol\b`), "SOL"},
		{regexp.MustCompile(`\bcardano\b`), "ADA"},
		{regexp.MustCompile(`\bada\b`), "ADA"},
		{regexp.MustCompile(`\bpolkadot\b`), "DOT"},
		{regexp.MustCompile(`\bdot\b`), "DOT"},
		{regexp.MustCompile(`\bchainlink\b`), "LINK"},
		{regexp.MustCompile(`\blink\b`), "LINK"},
		{regexp.MustCompile(`\buniswap\b`), "UNI"},
		{regexp.MustCompile(`\buni\b`), "UNI"},
		{regexp.MustCompile(`\baave\b`), "AAVE"},
		{regexp.MustCompile(`\bcompound\b`), "COMP"},
		{regexp.MustCompile(`\bcomp\b`), "COMP"},
	}
	newsIndicators = []string{
		"hack", "exploit", "breach", "attack",
		"partnership", "announce", "launch", "release",
		"upgrade", "update", "news", "breaking",
		"report", "confirm", "official",
	}
)

// PrimaryAsset returns the asset a post is about: the first cashtag, else
// the first known asset name. It returns "" when none is found.
func PrimaryAsset(text string) string {
	if m := cashtag.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	lower := strings.ToLower(text)
	for _, a := range assetAliases {
		if a.re.MatchString(lower) {
			return a.symbol
		}
	}
	return ""
}

func RepriceThreshold(asset string) float64 {
	if t, ok := repriceThresholds[asset]; ok {
		return t
	}
	return defaultRepriceThreshold
}

type LatencyResult struct {
	Asset          string  `json:"asset_symbol,omitempty"`
	Repriced       bool    `json:"repriced"`
	DeltaSeconds   int64   `json:"delta_seconds"`
	PriceChangePct float64 `json:"price_change_pct"`
	ThresholdPct   float64 `json:"threshold_pct"`
	RequiresReview bool    `json:"requires_review"`
	Reason         string  `json:"reason"`
	AgentScore     float64 `json:"agent_score"`
}

// Latency flags posts that report news the market already priced in.
type Latency struct {
	feed   domain.PriceFeed
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[string][]domain.PricePoint
}

var _ domain.Invoker = (*Latency)(nil)

// NewLatency builds the agent. A nil feed disables price checks.
func NewLatency(feed domain.PriceFeed, logger *zap.Logger) *Latency {
	return &Latency{
		feed:   feed,
		logger: logger,
		now:    time.Now,
		cache:  map[string][]domain.PricePoint{},
	}
}

func (l *Latency) Invoke(ctx context.Context, inv domain.Invocation) (string, error) {
	if inv.Item == nil {
		return "", domain.ErrItemTextEmpty
	}
	postedAt := inv.Item.CreatedAt
	if postedAt.IsZero() {
		postedAt = l.now()
	}
	return encode(l.Analyze(ctx, inv.Item.Text, postedAt))
}

func (l *Latency) Analyze(ctx context.Context, text string, postedAt time.Time) LatencyResult {
	res := LatencyResult{AgentScore: 7, Reason: "No identifiable asset"}
	asset := PrimaryAsset(text)
	if asset == "" {
		return res
	}
	res.Asset = asset
	res.ThresholdPct = RepriceThreshold(asset)
	res.Reason = "No significant price movement before the post"

	points, err := l.history(ctx, asset, postedAt)
	if err != nil {
		l.logger.Warn("price history unavailable", zap.String("asset", asset), zap.Error(err))
		res.Reason = "Price history unavailable"
		return res
	}

	pct, delta := largestMove(points, postedAt)
	res.PriceChangePct = round(pct, 2)
	res.DeltaSeconds = int64(delta.Seconds())
	res.Repriced = math.Abs(pct) > res.ThresholdPct && delta > MinRepriceDelay
	if !res.Repriced {
		return res
	}

	res.AgentScore = 3
	res.Reason = "Market moved before the post was published"
	res.RequiresReview = math.Abs(pct) > reviewMovePct && containsAny(strings.ToLower(text), newsIndicators...) && delta > reviewDelay
	l.logger.Info("latency event detected",
		zap.String("asset", asset),
		zap.Float64("price_change_pct", res.PriceChangePct),
		zap.Int64("delta_seconds", res.DeltaSeconds))
	return res
}

func (l *Latency) history(ctx context.Context, asset string, end time.Time) ([]domain.PricePoint, error) {
	if l.feed == nil {
		return nil, nil
	}
	key := asset + "_" + end.UTC().Format("20060102_1504")

	l.mu.Lock()
	cached, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	points, err := l.feed.PriceHistory(ctx, asset, end, LatencyWindow)
	if err != nil {
		return nil, err
	}
	if len(points) > 0 {
		l.mu.Lock()
		if len(l.cache) >= maxCachedWindows {
			l.cache = map[string][]domain.PricePoint{}
		}
		l.cache[key] = points
		l.mu.Unlock()
	}
	return points, nil
}

// largestMove returns the largest candle-to-candle percentage change and how
// long before postedAt it happened.
func largestMove(points []domain.PricePoint, postedAt time.Time) (float64, time.Duration) {
	var best float64
	var delta time.Duration
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Price
		if prev <= 0 {
			continue
		}
		change := (points[i].Price - prev) / prev * 100
		if math.Abs(change) > math.Abs(best) {
			best = change
			delta = postedAt.Sub(points[i].Timestamp)
		}
	}
	return best, delta
}
