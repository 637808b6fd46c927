package strategy

import (
	"time"

	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// VolatilityCompression buys the upside break of a mother/child range and
// scales out most of the position at a multiple of the initial risk.
type VolatilityCompression struct {
	maPeriod        int
	targetR         float64
	partialFraction float64
	minVolumeChange float64
	sessionExit     bool
	maKey           string

	// entry time of the position whose partial exit has been taken
	scaledOut time.Time
}

// NewVolatilityCompression reads ma_period (9), target_r (2), partial_fraction (0.8),
// min_volume_change in percent (0) and session_exit (0).
func NewVolatilityCompression(p Params) (*VolatilityCompression, error) {
	if err := p.Only("ma_period", "target_r", "partial_fraction", "min_volume_change", "session_exit"); err != nil {
		return nil, err
	}
	r := NewParamReader(p)
	s := &VolatilityCompression{
		maPeriod:        r.Period("ma_period", 9),
		targetR:         r.Positive("target_r", 2),
		partialFraction: r.Fraction("partial_fraction", 0.8),
		minVolumeChange: p.Float("min_volume_change", 0),
		sessionExit:     p.Bool("session_exit", false),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if s.partialFraction == 1 {
		return nil, model.NewConfigurationError("partial_fraction", "must leave part of the position open")
	}
	s.maKey = indicator.MA(s.maPeriod, indicator.Close).Key()
	return s, nil
}

func (s *VolatilityCompression) Name() string { return NameVolatilityCompression }

func (s *VolatilityCompression) Indicators() []indicator.Spec {
	return []indicator.Spec{indicator.MA(s.maPeriod, indicator.Close)}
}

func (s *VolatilityCompression) Reset() { s.scaledOut = time.Time{} }

// brokenRange returns the range yesterday sat in if today left it.
func brokenRange(m Market) (indicator.CompressionRange, bool) {
	y, ok1 := m.Snapshot(1)
	today, ok2 := m.Snapshot(0)
	if !ok1 || !ok2 || !y.Compression.Inside || today.Compression.Inside {
		return indicator.CompressionRange{}, false
	}
	return m.Range(y.Compression.Range)
}

func (s *VolatilityCompression) EvaluateEntry(m Market) *Entry {
	r, ok := brokenRange(m)
	if !ok {
		return nil
	}
	c := m.Current()
	if c.Close > r.High && c.Body() > 0 && c.Open < r.High && r.Opposite &&
		r.VolumeChange*100 > s.minVolumeChange && r.Low < c.Close {
		return &Entry{Side: model.Long, Price: c.Close, StopLoss: r.Low, Reason: "compression breakout"}
	}
	return nil
}

func (s *VolatilityCompression) EvaluateExit(m Market, pos model.Position) *Exit {
	c := m.Current()
	if c.Close < pos.StopLoss {
		return full(pos.StopLoss, "stop loss")
	}
	if today, ok := m.Snapshot(0); ok {
		if ma := today.Value(s.maKey); ma.Valid && ma.Float64 > c.Close && c.Close > pos.EntryPrice {
			return full(c.Close, "gave back below ma")
		}
	}
	target := pos.EntryPrice + s.targetR*pos.RiskPerUnit
	if c.High > target && !s.scaledOut.Equal(pos.EntryTime) && s.partialFraction > 0 {
		s.scaledOut = pos.EntryTime
		return &Exit{Price: target, Quantity: pos.Quantity * s.partialFraction, Reason: "target reached"}
	}
	if r, ok := brokenRange(m); ok && c.Close < r.Low && c.Body() < 0 {
		return full(c.Close, "range breakdown")
	}
	if s.sessionExit {
		if y, ok := m.Lookback(1); ok && !sameDay(y.Time, c.Time) {
			return full(y.Close, "session end")
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
