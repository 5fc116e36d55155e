package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

const (
	binanceBaseURL        = "https://api.binance.com"
	klineInterval         = "5m"
	klineStep             = 5 * time.Minute
	binanceRequestTimeout = 10 * time.Second
)

var ErrUnsupportedAsset = errors.New("asset not supported by price feed")

var binanceSymbols = map[string]string{
	"BTC":  "BTCUSDT",
	"ETH":  "ETHUSDT",
	"SOL":  "SOLUSDT",
	"ADA":  "ADAUSDT",
	"DOT":  "DOTUSDT",
	"LINK": "LINKUSDT",
	"UNI":  "UNIUSDT",
	"AAVE": "AAVEUSDT",
	"COMP": "COMPUSDT",
}

// BinanceClient reads 5-minute klines from Binance's public market data API.
type BinanceClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ domain.PriceFeed = (*BinanceClient)(nil)

// NewBinanceClient builds a client; an empty baseURL uses the public endpoint.
func NewBinanceClient(baseURL string) *BinanceClient {
	if baseURL == "" {
		baseURL = binanceBaseURL
	}
	return &BinanceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: binanceRequestTimeout},
	}
}

// PriceHistory returns close prices for the window ending at end, oldest first.
func (c *BinanceClient) PriceHistory(ctx context.Context, asset string, end time.Time, window time.Duration) ([]domain.PricePoint, error) {
	symbol, ok := binanceSymbols[asset]
	if !ok {
		return nil, fmt.Errorf("%s: %w", asset, ErrUnsupportedAsset)
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", klineInterval)
	q.Set("startTime", strconv.FormatInt(end.Add(-window).UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(int(window/klineStep)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create klines request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("klines request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read klines response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance returned status %d: %s", resp.StatusCode, string(body))
	}

	var klines [][]json.RawMessage
	if err := json.Unmarshal(body, &klines); err != nil {
		return nil, fmt.Errorf("unmarshal klines: %w", err)
	}

	points := make([]domain.PricePoint, 0, len(klines))
	for _, k := range klines {
		p, err := parseKline(k)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// parseKline reads open time (ms), close and volume. Binance encodes prices as strings.
func parseKline(k []json.RawMessage) (domain.PricePoint, error) {
	if len(k) < 6 {
		return domain.PricePoint{}, fmt.Errorf("kline has %d fields", len(k))
	}
	var openMs int64
	if err := json.Unmarshal(k[0], &openMs); err != nil {
		return domain.PricePoint{}, fmt.Errorf("kline open time: %w", err)
	}
	closePrice, err := decimalField(k[4])
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("kline close: %w", err)
	}
	volume, err := decimalField(k[5])
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("kline volume: %w", err)
	}
	return domain.PricePoint{
		Timestamp: time.UnixMilli(openMs).UTC(),
		Price:     closePrice,
		Volume:    volume,
	}, nil
}

func decimalField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, err
		}
		return f, nil
	}
	return strconv.ParseFloat(s, 64)
}
