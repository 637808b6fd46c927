package strategy

import (
	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// IndicatorDeclarer is implemented by signal providers that read pipeline values.
type IndicatorDeclarer interface {
	Indicators() []indicator.Spec
}

// ModelSignal trades the sign of an opaque signal with an ATR-multiple stop.
type ModelSignal struct {
	provider      SignalProvider
	threshold     float64
	atrPeriod     int
	atrMultiplier float64
	allowShort    bool
	atrKey        string
}

// NewModelSignal reads threshold (0), atr_period (14), atr_multiplier (2) and allow_short (0).
func NewModelSignal(p Params, provider SignalProvider) (*ModelSignal, error) {
	if provider == nil {
		return nil, model.NewConfigurationError("provider", "is required")
	}
	if err := p.Only("threshold", "atr_period", "atr_multiplier", "allow_short"); err != nil {
		return nil, err
	}
	r := NewParamReader(p)
	s := &ModelSignal{
		provider:      provider,
		threshold:     r.NonNegative("threshold", 0),
		atrPeriod:     r.Period("atr_period", 14),
		atrMultiplier: r.Positive("atr_multiplier", 2),
		allowShort:    p.Bool("allow_short", false),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	s.atrKey = indicator.ATRSpec(s.atrPeriod).Key()
	return s, nil
}

func (s *ModelSignal) Name() string { return NameModelSignal }

func (s *ModelSignal) Indicators() []indicator.Spec {
	specs := []indicator.Spec{indicator.ATRSpec(s.atrPeriod)}
	if d, ok := s.provider.(IndicatorDeclarer); ok {
		specs = append(specs, d.Indicators()...)
	}
	return specs
}

func (s *ModelSignal) EvaluateEntry(m Market) *Entry {
	snap, ok := m.Snapshot(0)
	if !ok {
		return nil
	}
	atr := snap.Value(s.atrKey)
	if !atr.Valid || atr.Float64 <= 0 {
		return nil
	}
	price := m.Current().Close
	band := s.atrMultiplier * atr.Float64
	signal := s.provider.Predict(m)
	switch {
	case signal > s.threshold:
		return &Entry{Side: model.Long, Price: price, StopLoss: price - band, Reason: "signal long"}
	case signal < -s.threshold && s.allowShort:
		return &Entry{Side: model.Short, Price: price, StopLoss: price + band, Reason: "signal short"}
	}
	return nil
}

func (s *ModelSignal) EvaluateExit(m Market, pos model.Position) *Exit {
	c := m.Current()
	if pos.Side == model.Long && c.Close <= pos.StopLoss {
		return full(pos.StopLoss, "atr stop")
	}
	if pos.Side == model.Short && c.Close >= pos.StopLoss {
		return full(pos.StopLoss, "atr stop")
	}
	signal := s.provider.Predict(m)
	if (pos.Side == model.Long && signal < -s.threshold) || (pos.Side == model.Short && signal > s.threshold) {
		return full(c.Close, "signal reversed")
	}
	return nil
}
