package collector

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"StrategyLab/internal/model"
	"StrategyLab/internal/series"
)

// MockFetcher returns fixed candles, or a generated wave around Price.
type MockFetcher struct {
	Price   float64
	Start   time.Time
	Candles []model.Candle
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCandles(_ context.Context, _ string, interval string, limit int) ([]model.Candle, error) {
	if m.Candles != nil {
		return tail(m.Candles, limit), nil
	}
	d, err := model.ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 500
	}
	start := m.Start
	if start.IsZero() {
		start = time.Now().UTC().Truncate(d).Add(-time.Duration(limit) * d)
	}
	return generateMockCandles(m.Price, start, d, limit), nil
}

// generateMockCandles draws a slow sine trend with a faster ripple, so
// crossovers and flips happen on every run.
func generateMockCandles(basePrice float64, start time.Time, step time.Duration, count int) []model.Candle {
	if basePrice <= 0 {
		basePrice = 100
	}
	out := make([]model.Candle, count)
	prev := basePrice
	for i := 0; i < count; i++ {
		x := float64(i)
		p := basePrice * (1 + 0.1*math.Sin(x/40) + 0.02*math.Sin(x/3))
		out[i] = model.Candle{
			Time:   start.Add(time.Duration(i) * step),
			Open:   prev,
			High:   math.Max(prev, p) * 1.004,
			Low:    math.Min(prev, p) * 0.996,
			Close:  p,
			Volume: 1000000 * (1 + 0.3*math.Sin(x/7)),
		}
		prev = p
	}
	return out
}

// Collector fetches and validates the candles of one symbol.
type Collector struct {
	Fetcher   Fetcher
	Symbol    string
	Interval  string
	Limit     int
	AllowGaps bool
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol, interval string, limit int) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, Interval: interval, Limit: limit}
}

// Collect fetches, sorts and integrity-checks the candles.
func (c *Collector) Collect(ctx context.Context) ([]model.Candle, error) {
	candles, err := c.Fetcher.FetchCandles(ctx, c.Symbol, c.Interval, c.Limit)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s from %s", c.Symbol, c.Fetcher.Name())
	}
	if len(candles) == 0 {
		return nil, errors.Errorf("%s returned no candles for %s", c.Fetcher.Name(), c.Symbol)
	}
	sorted := make([]model.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var interval time.Duration
	if c.Interval != "" {
		if interval, err = model.ParseInterval(c.Interval); err != nil {
			return nil, model.NewConfigurationError("interval", err.Error())
		}
	}
	if err := series.Validate(sorted, interval, c.AllowGaps); err != nil {
		return nil, err
	}
	return sorted, nil
}
