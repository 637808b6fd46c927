package strategy

import (
	"math"

	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// Breakout buys once price has closed above the upper window high on two
// candles in a row, and exits on two candles under the lower window low or
// a SuperTrend sell.
type Breakout struct {
	upperWindow int
	lowerWindow int
	atrPeriod   int
	multiplier  float64
}

// NewBreakout reads upper_window (100), lower_window (50), atr_period (10) and multiplier (2).
func NewBreakout(p Params) (*Breakout, error) {
	if err := p.Only("upper_window", "lower_window", "atr_period", "multiplier"); err != nil {
		return nil, err
	}
	r := NewParamReader(p)
	s := &Breakout{
		upperWindow: r.Period("upper_window", 100),
		lowerWindow: r.Period("lower_window", 50),
		atrPeriod:   r.Period("atr_period", 10),
		multiplier:  r.Positive("multiplier", 2),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Breakout) Name() string { return NameBreakout }

func (s *Breakout) Indicators() []indicator.Spec {
	return []indicator.Spec{indicator.SuperTrendSpec(s.atrPeriod, s.multiplier)}
}

func (s *Breakout) EvaluateEntry(m Market) *Entry {
	var bars [3]model.Candle
	var highs [3]model.NullFloat
	for i := range bars {
		var ok bool
		if bars[i], ok = m.Lookback(i); !ok {
			return nil
		}
		if highs[i] = windowHighAt(m, i, s.upperWindow); !highs[i].Valid {
			return nil
		}
	}
	if !(highs[0].Float64 < bars[0].High && highs[1].Float64 < bars[1].High && highs[2].Float64 > bars[2].High) {
		return nil
	}
	stop := m.WindowLow(s.lowerWindow)
	price := bars[0].Close
	if !stop.Valid || stop.Float64 >= price {
		return nil
	}
	return &Entry{Side: model.Long, Price: price, StopLoss: stop.Float64, Reason: "window high breakout"}
}

func (s *Breakout) EvaluateExit(m Market, pos model.Position) *Exit {
	c := m.Current()
	prev, ok := m.Lookback(1)
	low, prevLow := windowLowAt(m, 0, s.lowerWindow), windowLowAt(m, 1, s.lowerWindow)
	if ok && low.Valid && prevLow.Valid && prevLow.Float64 > prev.Low && low.Float64 > c.Low {
		return full(c.Close, "window low breakdown")
	}
	if snap, ok := m.Snapshot(0); ok && snap.Trend.Valid && snap.Trend.Direction == indicator.Sell {
		return full(c.Close, "supertrend sell")
	}
	return nil
}

// windowHighAt is the highest high of the n candles before the candle offset back.
func windowHighAt(m Market, offset, n int) model.NullFloat {
	return windowAt(m, offset, n, func(c model.Candle, acc float64) float64 { return math.Max(c.High, acc) }, math.Inf(-1))
}

// windowLowAt is the lowest low of the n candles before the candle offset back.
func windowLowAt(m Market, offset, n int) model.NullFloat {
	return windowAt(m, offset, n, func(c model.Candle, acc float64) float64 { return math.Min(c.Low, acc) }, math.Inf(1))
}

func windowAt(m Market, offset, n int, fold func(model.Candle, float64) float64, acc float64) model.NullFloat {
	if n <= 0 {
		return model.Null
	}
	for k := 1; k <= n; k++ {
		c, ok := m.Lookback(offset + k)
		if !ok {
			return model.Null
		}
		acc = fold(c, acc)
	}
	return model.Float(acc)
}
