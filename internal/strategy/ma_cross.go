package strategy

import (
	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// MACross goes long when the fast close average crosses above the slow one
// and exits on the cross back down.
type MACross struct {
	fast, slow  int
	stopPercent float64
	allowShort  bool
	fastKey     string
	slowKey     string
}

// NewMACross reads fast (3), slow (8), stop_percent (2) and allow_short (0).
func NewMACross(p Params) (*MACross, error) {
	if err := p.Only("fast", "slow", "stop_percent", "allow_short"); err != nil {
		return nil, err
	}
	r := NewParamReader(p)
	s := &MACross{
		fast:        r.Period("fast", 3),
		slow:        r.Period("slow", 8),
		stopPercent: r.Positive("stop_percent", 2),
		allowShort:  p.Bool("allow_short", false),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if s.fast >= s.slow {
		return nil, model.NewConfigurationError("fast", "must be shorter than slow")
	}
	if s.stopPercent >= 100 {
		return nil, model.NewConfigurationError("stop_percent", "must be below 100")
	}
	s.fastKey = indicator.MA(s.fast, indicator.Close).Key()
	s.slowKey = indicator.MA(s.slow, indicator.Close).Key()
	return s, nil
}

func (s *MACross) Name() string { return NameMACross }

func (s *MACross) Indicators() []indicator.Spec {
	return []indicator.Spec{indicator.MA(s.fast, indicator.Close), indicator.MA(s.slow, indicator.Close)}
}

// cross is +1 on a cross up, -1 on a cross down and 0 otherwise.
func (s *MACross) cross(m Market) int {
	cur, ok1 := m.Snapshot(0)
	prev, ok2 := m.Snapshot(1)
	if !ok1 || !ok2 {
		return 0
	}
	f, sl := cur.Value(s.fastKey), cur.Value(s.slowKey)
	pf, ps := prev.Value(s.fastKey), prev.Value(s.slowKey)
	if !f.Valid || !sl.Valid || !pf.Valid || !ps.Valid {
		return 0
	}
	switch {
	case pf.Float64 <= ps.Float64 && f.Float64 > sl.Float64:
		return 1
	case pf.Float64 >= ps.Float64 && f.Float64 < sl.Float64:
		return -1
	}
	return 0
}

func (s *MACross) EvaluateEntry(m Market) *Entry {
	price := m.Current().Close
	switch s.cross(m) {
	case 1:
		return &Entry{Side: model.Long, Price: price, StopLoss: price * (1 - s.stopPercent/100), Reason: "cross up"}
	case -1:
		if s.allowShort {
			return &Entry{Side: model.Short, Price: price, StopLoss: price * (1 + s.stopPercent/100), Reason: "cross down"}
		}
	}
	return nil
}

func (s *MACross) EvaluateExit(m Market, pos model.Position) *Exit {
	x := s.cross(m)
	if (pos.Side == model.Long && x < 0) || (pos.Side == model.Short && x > 0) {
		return full(m.Current().Close, "cross")
	}
	return nil
}
