package strategy

import (
	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// demandZone is the range of the candles that preceded a wide-bodied green candle.
type demandZone struct {
	index     int
	high, low float64
}

// PriceAction marks a demand zone after every candle whose green body is
// wider than the previous candle's range, and buys at the top of the most
// recent zone when price dips back into it.
type PriceAction struct {
	zoneWindow int
	exitWindow int
	maxZones   int

	zones []demandZone
}

// NewPriceAction reads zone_window (3), exit_window (4) and max_zones (20),
// the number of candles a zone stays live.
func NewPriceAction(p Params) (*PriceAction, error) {
	if err := p.Only("zone_window", "exit_window", "max_zones"); err != nil {
		return nil, err
	}
	r := NewParamReader(p)
	s := &PriceAction{
		zoneWindow: r.Period("zone_window", 3),
		exitWindow: r.Period("exit_window", 4),
		maxZones:   r.Period("max_zones", 20),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PriceAction) Name() string { return NamePriceAction }

func (s *PriceAction) Indicators() []indicator.Spec { return nil }

func (s *PriceAction) Reset() { s.zones = nil }

func (s *PriceAction) BeginStep(m Market) {
	keep := s.zones[:0]
	for _, z := range s.zones {
		if m.Index()-z.index < s.maxZones {
			keep = append(keep, z)
		}
	}
	s.zones = keep
}

// EndStep records a zone once the current candle has been evaluated, so a
// candle never retests the zone it created.
func (s *PriceAction) EndStep(m Market) {
	c := m.Current()
	prev, ok := m.Lookback(1)
	if !ok || c.Body() <= prev.Range() {
		return
	}
	high, low := m.WindowHigh(s.zoneWindow), m.WindowLow(s.zoneWindow)
	if !high.Valid || !low.Valid || high.Float64 <= low.Float64 {
		return
	}
	s.zones = append(s.zones, demandZone{index: m.Index(), high: high.Float64, low: low.Float64})
}

func (s *PriceAction) EvaluateEntry(m Market) *Entry {
	low := m.Current().Low
	for i := len(s.zones) - 1; i >= 0; i-- {
		z := s.zones[i]
		if low < z.high && low > z.low {
			return &Entry{Side: model.Long, Price: z.high, StopLoss: z.low, Reason: "demand zone retest"}
		}
	}
	return nil
}

func (s *PriceAction) EvaluateExit(m Market, pos model.Position) *Exit {
	low := m.WindowLow(s.exitWindow)
	if low.Valid && m.Current().Low < low.Float64 {
		return full(low.Float64, "recent low break")
	}
	return nil
}
