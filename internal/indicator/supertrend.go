package indicator

import "StrategyLab/internal/model"

// SuperTrend tracks sticky ATR bands around the candle midpoint and flips
// direction when the close crosses the band on the opposite side.
type SuperTrend struct {
	atr        *ATR
	multiplier float64
	prev       Trend
	prevClose  float64
}

func NewSuperTrend(atrPeriod int, multiplier float64) *SuperTrend {
	return &SuperTrend{atr: NewATR(atrPeriod), multiplier: multiplier}
}

func (s *SuperTrend) Update(c model.Candle) Trend {
	atr := s.atr.Update(c)
	basis := (c.High + c.Low) / 2
	upper := basis + s.multiplier*atr
	lower := basis - s.multiplier*atr

	t := Trend{Valid: true, ATR: atr, Direction: Buy}
	if s.prev.Valid {
		if !(lower > s.prev.Lower || s.prevClose < s.prev.Lower) {
			lower = s.prev.Lower
		}
		if !(upper < s.prev.Upper || s.prevClose > s.prev.Upper) {
			upper = s.prev.Upper
		}
		if s.prev.Direction == Sell {
			if c.Close > upper {
				t.Direction = Buy
			} else {
				t.Direction = Sell
			}
		} else if c.Close < lower {
			t.Direction = Sell
		}
	}
	t.Upper, t.Lower = upper, lower
	if t.Direction == Buy {
		t.Value = lower
	} else {
		t.Value = upper
	}
	s.prev = t
	s.prevClose = c.Close
	return t
}

// Last returns the most recent reading.
func (s *SuperTrend) Last() Trend { return s.prev }
