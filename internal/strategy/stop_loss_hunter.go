package strategy

import (
	"math"

	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// StopLossHunter buys a candle that closes well clear of a short close
// average right after an indecision candle, with the stop under that candle
// and a target at a multiple of the risk.
type StopLossHunter struct {
	maPeriod         int
	minDistance      float64
	maxBodyPercent   float64
	targetMultiplier float64
	maKey            string
}

// NewStopLossHunter reads ma_period (5), min_distance (0.3) as a multiple of the
// current body, max_body_percent (10) of the previous candle's range and
// target_multiplier (2).
func NewStopLossHunter(p Params) (*StopLossHunter, error) {
	if err := p.Only("ma_period", "min_distance", "max_body_percent", "target_multiplier"); err != nil {
		return nil, err
	}
	r := NewParamReader(p)
	s := &StopLossHunter{
		maPeriod:         r.Period("ma_period", 5),
		minDistance:      r.NonNegative("min_distance", 0.3),
		maxBodyPercent:   r.Positive("max_body_percent", 10),
		targetMultiplier: r.Positive("target_multiplier", 2),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if s.maxBodyPercent > 100 {
		return nil, model.NewConfigurationError("max_body_percent", "must not exceed 100")
	}
	s.maKey = indicator.MA(s.maPeriod, indicator.Close).Key()
	return s, nil
}

func (s *StopLossHunter) Name() string { return NameStopLossHunter }

func (s *StopLossHunter) Indicators() []indicator.Spec {
	return []indicator.Spec{indicator.MA(s.maPeriod, indicator.Close)}
}

func (s *StopLossHunter) EvaluateEntry(m Market) *Entry {
	c := m.Current()
	prev, ok := m.Lookback(1)
	snap, ok2 := m.Snapshot(0)
	if !ok || !ok2 || c.Body() == 0 || prev.Range() <= 0 {
		return nil
	}
	ma := snap.Value(s.maKey)
	if !ma.Valid || (c.Close-ma.Float64)/c.Body() < s.minDistance {
		return nil
	}
	if math.Abs(prev.Body())/prev.Range()*100 > s.maxBodyPercent {
		return nil
	}
	if prev.Low >= c.Close {
		return nil
	}
	return &Entry{Side: model.Long, Price: c.Close, StopLoss: prev.Low, Reason: "stop hunt reversal"}
}

func (s *StopLossHunter) EvaluateExit(m Market, pos model.Position) *Exit {
	c := m.Current()
	target := pos.EntryPrice + pos.RiskPerUnit*s.targetMultiplier
	if c.High > target {
		return full(target, "target")
	}
	if pos.StopLoss > c.Low {
		return full(pos.StopLoss, "stop loss")
	}
	return nil
}
