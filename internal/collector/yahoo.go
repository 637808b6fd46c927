package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"StrategyLab/internal/model"
)

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	Client    *http.Client
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: "https://query1.finance.yahoo.com",
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooIntervals are the bar sizes Yahoo serves, with the widest range it allows for each.
var yahooIntervals = map[time.Duration][2]string{
	time.Minute:        {"1m", "7d"},
	2 * time.Minute:    {"2m", "60d"},
	5 * time.Minute:    {"5m", "60d"},
	15 * time.Minute:   {"15m", "60d"},
	30 * time.Minute:   {"30m", "60d"},
	time.Hour:          {"60m", "2y"},
	90 * time.Minute:   {"90m", "60d"},
	24 * time.Hour:     {"1d", "10y"},
	5 * 24 * time.Hour: {"5d", "max"},
	7 * 24 * time.Hour: {"1wk", "max"},
}

// yahooInterval maps a replay interval to Yahoo's interval and range.
// Sizes Yahoo cannot serve are rejected rather than fetched at another size.
func yahooInterval(interval string) (string, string, error) {
	d, err := model.ParseInterval(interval)
	if err != nil {
		return "", "", model.NewConfigurationError("interval", err.Error())
	}
	yi, ok := yahooIntervals[d]
	if !ok {
		return "", "", model.NewConfigurationError("interval", fmt.Sprintf("yahoo does not serve %s candles", d))
	}
	return yi[0], yi[1], nil
}

func (f *YahooFetcher) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	yi, rng, err := yahooInterval(interval)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), yi, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "yahoo fetch")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "yahoo read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	candles, err := parseYahooChart(body)
	if err != nil {
		return nil, err
	}
	return tail(candles, limit), nil
}

func parseYahooChart(body []byte) ([]model.Candle, error) {
	chart := gjson.ParseBytes(body).Get("chart")
	if desc := chart.Get("error.description"); desc.Exists() {
		return nil, errors.Errorf("yahoo api error: %s", desc.Str)
	}
	result := chart.Get("result.0")
	stamps := result.Get("timestamp").Array()
	if len(stamps) == 0 {
		return nil, errors.New("yahoo: no data returned")
	}
	quote := result.Get("indicators.quote.0")
	opens, highs := quote.Get("open").Array(), quote.Get("high").Array()
	lows, closes := quote.Get("low").Array(), quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	at := func(a []gjson.Result, i int) gjson.Result {
		if i < len(a) {
			return a[i]
		}
		return gjson.Result{}
	}
	candles := make([]model.Candle, 0, len(stamps))
	for i, ts := range stamps {
		o, h, l, c := at(opens, i), at(highs, i), at(lows, i), at(closes, i)
		if o.Type == gjson.Null || h.Type == gjson.Null || l.Type == gjson.Null || c.Type == gjson.Null {
			continue // holidays and halted sessions
		}
		candles = append(candles, model.Candle{
			Time:   time.Unix(ts.Int(), 0).UTC(),
			Open:   o.Float(),
			High:   h.Float(),
			Low:    l.Float(),
			Close:  c.Float(),
			Volume: at(volumes, i).Float(),
		})
	}
	return candles, nil
}
