// Package feeds holds the HTTP collaborators the signal agents read from:
// Reddit search for cross-platform mentions and Binance klines for prices.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	redditBaseURL        = "https://www.reddit.com"
	defaultUserAgent     = "twitter-news-classifier/1.0"
	redditSearchLimit    = 10
	redditMaxKeywords    = 3
	redditMentionCap     = 20
	redditRequestTimeout = 10 * time.Second
)

// CryptoSubreddits are searched for each keyword.
var CryptoSubreddits = []string{
	"CryptoCurrency",
	"Bitcoin",
	"Ethereum",
	"DeFi",
	"altcoin",
	"CryptoMarkets",
	"cryptocurrencynews",
	"blockchain",
}

// RedditClient counts recent threads mentioning keywords in crypto subreddits
// through Reddit's public search JSON. Requests are paced by a token bucket.
type RedditClient struct {
	baseURL    string
	userAgent  string
	subreddits []string
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *zap.Logger
}

var _ domain.MentionSource = (*RedditClient)(nil)

// NewRedditClient builds a client allowed rps requests per second.
func NewRedditClient(userAgent string, rps float64, logger *zap.Logger) *RedditClient {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if rps <= 0 {
		rps = 1
	}
	return &RedditClient{
		baseURL:    redditBaseURL,
		userAgent:  userAgent,
		subreddits: CryptoSubreddits,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		httpClient: &http.Client{Timeout: redditRequestTimeout},
		logger:     logger,
	}
}

func (c *RedditClient) Platform() string { return "reddit" }

type redditListing struct {
	Data struct {
		Children []json.RawMessage `json:"children"`
	} `json:"data"`
}

// CountMentions searches the first three keywords in every subreddit and
// returns the number of threads from the past day, capped at 20. A failing
// subreddit is skipped.
func (c *RedditClient) CountMentions(ctx context.Context, keywords []string) (int, error) {
	if len(keywords) > redditMaxKeywords {
		keywords = keywords[:redditMaxKeywords]
	}

	total := 0
	for _, kw := range keywords {
		for _, sub := range c.subreddits {
			if total >= redditMentionCap {
				return redditMentionCap, nil
			}
			n, err := c.search(ctx, sub, kw)
			if err != nil {
				if ctx.Err() != nil {
					return total, ctx.Err()
				}
				c.logger.Warn("reddit search failed",
					zap.String("subreddit", sub), zap.String("keyword", kw), zap.Error(err))
				continue
			}
			total += n
		}
	}
	return min(total, redditMentionCap), nil
}

func (c *RedditClient) search(ctx context.Context, subreddit, keyword string) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("q", keyword)
	q.Set("restrict_sr", "on")
	q.Set("sort", "new")
	q.Set("t", "day")
	q.Set("limit", fmt.Sprint(redditSearchLimit))
	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", c.baseURL, url.PathEscape(subreddit), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create reddit request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reddit request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read reddit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("reddit returned status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return 0, fmt.Errorf("unmarshal reddit response: %w", err)
	}
	return len(listing.Data.Children), nil
}
