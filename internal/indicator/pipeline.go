package indicator

import (
	"StrategyLab/internal/model"
)

type updater interface {
	update(c model.Candle, values map[string]model.NullFloat)
}

type maUpdater struct {
	key string
	src Source
	ma  *MovingAverage
}

func (u *maUpdater) update(c model.Candle, v map[string]model.NullFloat) {
	v[u.key] = model.Float(u.ma.Update(u.src.Of(c)))
}

type emaUpdater struct {
	key string
	src Source
	ema *ExponentialAverage
}

func (u *emaUpdater) update(c model.Candle, v map[string]model.NullFloat) {
	v[u.key] = model.Float(u.ema.Update(u.src.Of(c)))
}

type atrUpdater struct {
	key string
	atr *ATR
}

func (u *atrUpdater) update(c model.Candle, v map[string]model.NullFloat) {
	v[u.key] = model.Float(u.atr.Update(c))
}

type rsiUpdater struct {
	key string
	rsi *RSI
}

func (u *rsiUpdater) update(c model.Candle, v map[string]model.NullFloat) {
	v[u.key] = u.rsi.Update(c.Close)
}

type bollingerUpdater struct {
	key string
	src Source
	bb  *Bollinger
}

func (u *bollingerUpdater) update(c model.Candle, v map[string]model.NullFloat) {
	bands, ok := u.bb.Update(u.src.Of(c))
	for k, val := range bandValues(u.key, bands, ok) {
		v[k] = val
	}
}

// Option tunes a Pipeline.
type Option func(*Pipeline)

// WithPatternThresholds overrides the candle-pattern ratios.
func WithPatternThresholds(th PatternThresholds) Option {
	return func(p *Pipeline) { p.thresholds = th }
}

// Pipeline augments candles one at a time with the indicators a strategy declared.
type Pipeline struct {
	updaters   []updater
	superTrend *SuperTrend
	thresholds PatternThresholds
	state      *State
	prior      []model.Candle
}

// NewPipeline builds the indicators in specs. Duplicate keys are computed once.
func NewPipeline(specs []Spec, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		thresholds: DefaultPatternThresholds(),
		state:      &State{},
	}
	seen := make(map[string]Spec, len(specs))
	for _, s := range specs {
		s.Source = s.source()
		if err := s.validate(); err != nil {
			return nil, err
		}
		key := s.Key()
		if prev, ok := seen[key]; ok {
			if prev != s {
				return nil, model.NewConfigurationError(key, "declared twice with different parameters")
			}
			continue
		}
		seen[key] = s

		switch s.Kind {
		case KindMA:
			p.updaters = append(p.updaters, &maUpdater{key: key, src: s.source(), ma: NewMovingAverage(s.Period)})
		case KindEMA:
			p.updaters = append(p.updaters, &emaUpdater{key: key, src: s.source(), ema: NewExponentialAverage(s.Period)})
		case KindATR:
			p.updaters = append(p.updaters, &atrUpdater{key: key, atr: NewATR(s.Period)})
		case KindRSI:
			p.updaters = append(p.updaters, &rsiUpdater{key: key, rsi: NewRSI(s.Period)})
		case KindBollinger:
			p.updaters = append(p.updaters, &bollingerUpdater{key: key, src: s.source(), bb: NewBollinger(s.Period, s.Multiplier)})
		case KindSuperTrend:
			p.superTrend = NewSuperTrend(s.Period, s.Multiplier)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Next computes the snapshot of c from c and the candles already seen.
func (p *Pipeline) Next(c model.Candle) Snapshot {
	idx := p.state.Len()
	snap := Snapshot{
		Index:    idx,
		Time:     c.Time,
		Values:   make(map[string]model.NullFloat, len(p.updaters)+2),
		Props:    Props(c),
		Patterns: DetectPatterns(c, p.prior, p.thresholds),
	}
	for _, u := range p.updaters {
		u.update(c, snap.Values)
	}
	if p.superTrend != nil {
		snap.Trend = p.superTrend.Update(c)
		snap.Values[string(KindSuperTrend)] = model.Float(snap.Trend.Value)
	}

	var prev *model.Candle
	prevTag := Compression{Range: -1}
	if n := len(p.prior); n > 0 {
		prev = &p.prior[n-1]
		prevTag = p.state.snapshots[idx-1].Compression
	}
	snap.Compression = compress(p.state, idx, c, prev, prevTag)

	p.state.snapshots = append(p.state.snapshots, snap)
	p.prior = append(p.prior, c)
	if len(p.prior) > 3 {
		p.prior = p.prior[1:]
	}
	return snap
}

// State exposes the snapshots computed so far.
func (p *Pipeline) State() *State { return p.state }
