package backtest

import (
	"os"
	"sort"

	"github.com/pkg/errors"

	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"
	"StrategyLab/internal/strategy/rl"
)

// Options carries what some variants need beyond their params.
type Options struct {
	Seed      int64
	Provider  strategy.SignalProvider
	ModelPath string // saved RL model: weights for ReinforcementLearning, signal for ModelSignal
}

type factory func(p strategy.Params, opts Options) (strategy.Strategy, error)

func plain[T strategy.Strategy](build func(strategy.Params) (T, error)) factory {
	return func(p strategy.Params, _ Options) (strategy.Strategy, error) {
		s, err := build(p)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

var registry = map[string]factory{
	strategy.NameMovingAverage:         plain(strategy.NewMovingAverage),
	strategy.NameMACross:               plain(strategy.NewMACross),
	strategy.NameSuperTrend:            plain(strategy.NewSuperTrend),
	strategy.NameFortyTwenty:           plain(strategy.NewFortyTwenty),
	strategy.NameTwoBreakingCandle:     plain(strategy.NewTwoBreakingCandle),
	strategy.NameVolatilityCompression: plain(strategy.NewVolatilityCompression),
	strategy.NamePriceAction:           plain(strategy.NewPriceAction),
	strategy.NameBreakout:              plain(strategy.NewBreakout),
	strategy.NameStopLossHunter:        plain(strategy.NewStopLossHunter),
	strategy.NameModelSignal:           newModelSignal,
	strategy.NameReinforcementLearning: newReinforcementLearning,
}

// NewStrategy builds a registered variant by name.
func NewStrategy(name string, p strategy.Params, opts Options) (strategy.Strategy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, model.NewConfigurationError("strategy", "unknown variant "+name)
	}
	return f(p, opts)
}

// Strategies lists the registered names in order.
func Strategies() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func newModelSignal(p strategy.Params, opts Options) (strategy.Strategy, error) {
	provider := opts.Provider
	if provider == nil {
		if opts.ModelPath == "" {
			return nil, model.NewConfigurationError("model_path", "required for "+strategy.NameModelSignal)
		}
		m, err := rl.LoadModel(opts.ModelPath)
		if err != nil {
			return nil, err
		}
		provider = m
	}
	s, err := strategy.NewModelSignal(p, provider)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newReinforcementLearning continues from the saved model when one exists.
func newReinforcementLearning(p strategy.Params, opts Options) (strategy.Strategy, error) {
	cfg, err := rl.ConfigFromParams(p, opts.Seed)
	if err != nil {
		return nil, err
	}
	s, err := rl.New(cfg)
	if err != nil {
		return nil, err
	}
	if opts.ModelPath == "" {
		return s, nil
	}
	if _, err := os.Stat(opts.ModelPath); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	m, err := rl.LoadModel(opts.ModelPath)
	if err != nil {
		return nil, err
	}
	if err := s.Restore(m); err != nil {
		return nil, err
	}
	return s, nil
}
