package strategy

import (
	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// FortyTwenty buys a break of the 40-candle high above the 200-candle average
// and exits on a break of the 20-candle low.
type FortyTwenty struct {
	buyWindow  int
	sellWindow int
	smaPeriod  int
}

// NewFortyTwenty reads buy_window (40), sell_window (20) and sma_period (200).
func NewFortyTwenty(p Params) (*FortyTwenty, error) {
	if err := p.Only("buy_window", "sell_window", "sma_period"); err != nil {
		return nil, err
	}
	r := NewParamReader(p)
	s := &FortyTwenty{
		buyWindow:  r.Period("buy_window", 40),
		sellWindow: r.Period("sell_window", 20),
		smaPeriod:  r.Period("sma_period", 200),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FortyTwenty) Name() string { return NameFortyTwenty }

func (s *FortyTwenty) Indicators() []indicator.Spec { return nil }

// EvaluateEntry fills at the broken high.
func (s *FortyTwenty) EvaluateEntry(m Market) *Entry {
	c := m.Current()
	high, low, sma := m.WindowHigh(s.buyWindow), m.WindowLow(s.sellWindow), m.SMA(s.smaPeriod)
	if !high.Valid || !low.Valid || !sma.Valid {
		return nil
	}
	if c.High > high.Float64 && c.Close > sma.Float64 && low.Float64 < high.Float64 {
		return &Entry{Side: model.Long, Price: high.Float64, StopLoss: low.Float64, Reason: "window high break"}
	}
	return nil
}

func (s *FortyTwenty) EvaluateExit(m Market, pos model.Position) *Exit {
	low := m.WindowLow(s.sellWindow)
	if low.Valid && m.Current().Low <= low.Float64 {
		return full(low.Float64, "window low break")
	}
	return nil
}
