package rl

import (
	"StrategyLab/internal/indicator"
	"StrategyLab/internal/strategy"
)

// Feature indexes, in the fixed order the weights use.
const (
	PriceChange = iota
	PriceVolatility
	MA20Trend
	MA60Trend
	SuperTrendDir
	VolumeChange
	Momentum
	InPosition
	PositionType
	UnrealizedPnL
	NumFeatures
)

// FeatureNames label the weights in saved models.
var FeatureNames = [NumFeatures]string{
	"priceChange", "priceVolatility", "ma20Trend", "ma60Trend", "superTrend",
	"volumeChange", "momentum", "inPosition", "positionType", "unrealizedPnL",
}

// bounded features are already in [-1, 1] and skip normalization.
var bounded = [NumFeatures]bool{
	MA20Trend: true, MA60Trend: true, SuperTrendDir: true, InPosition: true, PositionType: true,
}

// Features is one observation of the market.
type Features [NumFeatures]float64

var (
	ma20High = indicator.MA(20, indicator.High)
	ma20Low  = indicator.MA(20, indicator.Low)
	ma60     = indicator.MA(60, indicator.Close)
	trend    = indicator.SuperTrendSpec(10, 2)
)

// Indicators are the pipeline values the feature extractor reads.
func Indicators() []indicator.Spec {
	return []indicator.Spec{ma20High, ma20Low, ma60, trend}
}

// confirmedTrend is the current SuperTrend direction when the last n
// candles agree on it, otherwise 0.
func confirmedTrend(m strategy.Market, n int) float64 {
	today, ok := m.Snapshot(0)
	if !ok || !today.Trend.Valid {
		return 0
	}
	for i := 1; i < n; i++ {
		s, ok := m.Snapshot(i)
		if !ok || s.Trend.Direction != today.Trend.Direction {
			return 0
		}
	}
	return float64(today.Trend.Direction)
}

// Extract observes m. It fails until two prior candles and the averages exist.
func Extract(m strategy.Market, trendConfirmation int) (Features, bool) {
	var f Features
	today, ok := m.Snapshot(0)
	y, ok1 := m.Lookback(1)
	d, ok2 := m.Lookback(2)
	if !ok || !ok1 || !ok2 {
		return f, false
	}
	hi, lo, slow := today.Value(ma20High.Key()), today.Value(ma20Low.Key()), today.Value(ma60.Key())
	if !hi.Valid || !lo.Valid || !slow.Valid || !today.Trend.Valid {
		return f, false
	}
	c := m.Current()

	f[PriceChange] = (c.Close - y.Close) / y.Close
	f[PriceVolatility] = (c.High - c.Low) / c.Low
	switch {
	case c.Close > hi.Float64:
		f[MA20Trend] = 1
	case c.Close < lo.Float64:
		f[MA20Trend] = -1
	}
	f[MA60Trend] = -1
	if c.Close > slow.Float64 {
		f[MA60Trend] = 1
	}
	f[SuperTrendDir] = confirmedTrend(m, trendConfirmation)
	if y.Volume != 0 {
		f[VolumeChange] = (c.Volume - y.Volume) / y.Volume
	}
	f[Momentum] = (c.Close - d.Close) / d.Close
	if pos, open := m.Position(); open {
		f[InPosition] = 1
		f[PositionType] = pos.Side.Sign()
		f[UnrealizedPnL] = pos.UnrealizedReturn(c.Close)
	}
	return f, true
}
