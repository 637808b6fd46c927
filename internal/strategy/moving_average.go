package strategy

import (
	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// MovingAverage trades breaks of the moving-average envelope of highs and lows,
// confirmed by two same-coloured candles and the SuperTrend direction.
type MovingAverage struct {
	period     int
	atrPeriod  int
	multiplier float64
	highKey    string
	lowKey     string
}

// NewMovingAverage reads ma_period (20), atr_period (10) and multiplier (2).
func NewMovingAverage(p Params) (*MovingAverage, error) {
	if err := p.Only("ma_period", "atr_period", "multiplier"); err != nil {
		return nil, err
	}
	r := NewParamReader(p)
	s := &MovingAverage{
		period:     r.Period("ma_period", 20),
		atrPeriod:  r.Period("atr_period", 10),
		multiplier: r.Positive("multiplier", 2),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	s.highKey = indicator.MA(s.period, indicator.High).Key()
	s.lowKey = indicator.MA(s.period, indicator.Low).Key()
	return s, nil
}

func (s *MovingAverage) Name() string { return NameMovingAverage }

func (s *MovingAverage) Indicators() []indicator.Spec {
	return []indicator.Spec{
		indicator.MA(s.period, indicator.High),
		indicator.MA(s.period, indicator.Low),
		indicator.SuperTrendSpec(s.atrPeriod, s.multiplier),
	}
}

// EvaluateEntry looks at the two previous candles and enters at today's open.
// A short setup is checked before a long one.
func (s *MovingAverage) EvaluateEntry(m Market) *Entry {
	y, ok1 := m.Snapshot(1)
	d, ok2 := m.Snapshot(2)
	yc, ok3 := m.Lookback(1)
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	high, low := y.Value(s.highKey), y.Value(s.lowKey)
	if !high.Valid || !low.Valid {
		return nil
	}
	open := m.Current().Open

	if yc.Close < low.Float64 && y.Props.Body < 0 && d.Props.Body < 0 && y.Trend.Direction == indicator.Sell {
		if stop := high.Float64; stop > open {
			return &Entry{Side: model.Short, Price: open, StopLoss: stop, Reason: "close below ma low"}
		}
	}
	if yc.Close > high.Float64 && y.Props.Body > 0 && d.Props.Body > 0 && y.Trend.Direction == indicator.Buy {
		if stop := low.Float64; stop < open {
			return &Entry{Side: model.Long, Price: open, StopLoss: stop, Reason: "close above ma high"}
		}
	}
	return nil
}

func (s *MovingAverage) EvaluateExit(m Market, pos model.Position) *Exit {
	today, ok := m.Snapshot(0)
	if !ok {
		return nil
	}
	c := m.Current()
	y, hasY := m.Snapshot(1)
	yc, _ := m.Lookback(1)

	if pos.Side == model.Long {
		if c.Close < pos.StopLoss {
			return full(pos.StopLoss, "stop loss")
		}
		high := today.Value(s.highKey)
		if high.Valid && c.Body() < 0 {
			if high.Float64 > c.Close && high.Float64 > c.Open {
				return full(c.Close, "rejected at ma high")
			}
			if yh := y.Value(s.highKey); hasY && yh.Valid && yh.Float64 > yc.Close && high.Float64 > c.Close {
				return full(c.Close, "second close below ma high")
			}
		}
		if today.Trend.Direction == indicator.Sell {
			return full(c.Close, "supertrend flip")
		}
		return nil
	}

	if c.Close > pos.StopLoss {
		return full(pos.StopLoss, "stop loss")
	}
	low := today.Value(s.lowKey)
	if low.Valid && c.Body() > 0 {
		if c.Close > low.Float64 && c.Open > low.Float64 {
			return full(c.Close, "rejected at ma low")
		}
		if yl := y.Value(s.lowKey); hasY && yl.Valid && yc.Close > yl.Float64 && c.Close > low.Float64 {
			return full(c.Close, "second close above ma low")
		}
	}
	if today.Trend.Direction == indicator.Buy {
		return full(c.Close, "supertrend flip")
	}
	return nil
}
