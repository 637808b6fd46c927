package strategy

import (
	"math"

	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// SuperTrend enters on a direction flip that follows two candles of the
// opposite direction, filtered by a close average.
type SuperTrend struct {
	atrPeriod  int
	multiplier float64
	maPeriod   int
	maKey      string
}

// NewSuperTrend reads atr_period (10), multiplier (2) and ma_period (60).
func NewSuperTrend(p Params) (*SuperTrend, error) {
	if err := p.Only("atr_period", "multiplier", "ma_period"); err != nil {
		return nil, err
	}
	r := NewParamReader(p)
	s := &SuperTrend{
		atrPeriod:  r.Period("atr_period", 10),
		multiplier: r.Positive("multiplier", 2),
		maPeriod:   r.Period("ma_period", 60),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	s.maKey = indicator.MA(s.maPeriod, indicator.Close).Key()
	return s, nil
}

func (s *SuperTrend) Name() string { return NameSuperTrend }

func (s *SuperTrend) Indicators() []indicator.Spec {
	return []indicator.Spec{
		indicator.SuperTrendSpec(s.atrPeriod, s.multiplier),
		indicator.MA(s.maPeriod, indicator.Close),
	}
}

func (s *SuperTrend) EvaluateEntry(m Market) *Entry {
	var snaps [3]indicator.Snapshot
	var bars [3]model.Candle
	for i := range snaps {
		var ok1, ok2 bool
		snaps[i], ok1 = m.Snapshot(i)
		bars[i], ok2 = m.Lookback(i)
		if !ok1 || !ok2 || !snaps[i].Trend.Valid {
			return nil
		}
	}
	ma := snaps[0].Value(s.maKey)
	if !ma.Valid {
		return nil
	}
	price := bars[0].Close
	flipped := func(to indicator.Direction) bool {
		return snaps[0].Trend.Direction == to && snaps[1].Trend.Direction != to && snaps[2].Trend.Direction != to
	}

	if price < ma.Float64 && flipped(indicator.Sell) {
		stop := math.Inf(-1)
		for i := range snaps {
			stop = math.Max(stop, math.Max(snaps[i].Trend.Upper, bars[i].High))
		}
		if stop > price {
			return &Entry{Side: model.Short, Price: price, StopLoss: stop, Reason: "supertrend sell"}
		}
	}
	if price > ma.Float64 && flipped(indicator.Buy) {
		stop := math.Inf(1)
		for i := range snaps {
			stop = math.Min(stop, math.Min(snaps[i].Trend.Lower, bars[i].Low))
		}
		if stop < price {
			return &Entry{Side: model.Long, Price: price, StopLoss: stop, Reason: "supertrend buy"}
		}
	}
	return nil
}

func (s *SuperTrend) EvaluateExit(m Market, pos model.Position) *Exit {
	today, ok := m.Snapshot(0)
	if !ok || !today.Trend.Valid {
		return nil
	}
	if (pos.Side == model.Long && today.Trend.Direction == indicator.Sell) ||
		(pos.Side == model.Short && today.Trend.Direction == indicator.Buy) {
		return full(m.Current().Close, "supertrend flip")
	}
	return nil
}
