package strategy

import (
	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// TwoBreakingCandle buys after two green candles with a stop at the recent low.
type TwoBreakingCandle struct {
	stopWindow int
}

// NewTwoBreakingCandle reads stop_window (3).
func NewTwoBreakingCandle(p Params) (*TwoBreakingCandle, error) {
	if err := p.Only("stop_window"); err != nil {
		return nil, err
	}
	w, err := p.Period("stop_window", 3)
	if err != nil {
		return nil, err
	}
	return &TwoBreakingCandle{stopWindow: w}, nil
}

func (s *TwoBreakingCandle) Name() string { return NameTwoBreakingCandle }

func (s *TwoBreakingCandle) Indicators() []indicator.Spec { return nil }

func (s *TwoBreakingCandle) EvaluateEntry(m Market) *Entry {
	prev, ok := m.Lookback(1)
	c := m.Current()
	if !ok || prev.Body() <= 0 || c.Body() <= 0 {
		return nil
	}
	low := m.WindowLow(s.stopWindow)
	if !low.Valid || c.Close-low.Float64 <= 0 {
		return nil
	}
	return &Entry{Side: model.Long, Price: c.Close, StopLoss: low.Float64, Reason: "two green candles"}
}

func (s *TwoBreakingCandle) EvaluateExit(m Market, pos model.Position) *Exit {
	low := m.WindowLow(s.stopWindow)
	if low.Valid && m.Current().Low <= low.Float64 {
		return full(low.Float64, "recent low break")
	}
	return nil
}
