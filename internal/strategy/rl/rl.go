// Package rl is a linear Q-learning strategy. It learns from the replay
// itself and can be frozen into a Model that serves as a signal provider.
package rl

import (
	"math"
	"math/rand"

	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"
)

// Config holds the learning and trading knobs.
type Config struct {
	LearningRate         float64 `json:"learning_rate"`
	Discount             float64 `json:"discount"`
	Exploration          float64 `json:"exploration"`
	BatchSize            int     `json:"batch_size"`
	MemorySize           int     `json:"memory_size"`
	StopLossPercent      float64 `json:"stop_loss_percent"`
	TakeProfitPercent    float64 `json:"take_profit_percent"`
	MinPriceChange       float64 `json:"min_price_change"`
	MinVolatility        float64 `json:"min_volatility"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	TrendConfirmation    int     `json:"trend_confirmation"`
	RiskPercent          float64 `json:"risk_percent"`
	LossPenalty          float64 `json:"loss_penalty"`
	Seed                 int64   `json:"seed"`
}

func DefaultConfig() Config {
	return Config{
		LearningRate:         0.001,
		Discount:             0.95,
		Exploration:          0.2,
		BatchSize:            32,
		MemorySize:           10000,
		StopLossPercent:      1.5,
		TakeProfitPercent:    3,
		MinPriceChange:       0.002,
		MinVolatility:        0.001,
		MaxConsecutiveLosses: 3,
		TrendConfirmation:    2,
		RiskPercent:          1,
		LossPenalty:          5,
		Seed:                 1,
	}
}

// ConfigFromParams overlays p on the defaults.
func ConfigFromParams(p strategy.Params, seed int64) (Config, error) {
	if err := p.Only("learning_rate", "discount", "exploration", "batch_size", "memory_size",
		"stop_loss_percent", "take_profit_percent", "min_price_change", "min_volatility",
		"max_consecutive_losses", "trend_confirmation", "risk_percent", "loss_penalty"); err != nil {
		return Config{}, err
	}
	d := DefaultConfig()
	r := strategy.NewParamReader(p)
	cfg := Config{
		LearningRate:         r.Positive("learning_rate", d.LearningRate),
		Discount:             r.Fraction("discount", d.Discount),
		Exploration:          r.Fraction("exploration", d.Exploration),
		BatchSize:            r.Period("batch_size", d.BatchSize),
		MemorySize:           r.Period("memory_size", d.MemorySize),
		StopLossPercent:      r.Positive("stop_loss_percent", d.StopLossPercent),
		TakeProfitPercent:    r.Positive("take_profit_percent", d.TakeProfitPercent),
		MinPriceChange:       r.NonNegative("min_price_change", d.MinPriceChange),
		MinVolatility:        r.NonNegative("min_volatility", d.MinVolatility),
		MaxConsecutiveLosses: r.Period("max_consecutive_losses", d.MaxConsecutiveLosses),
		TrendConfirmation:    r.Period("trend_confirmation", d.TrendConfirmation),
		RiskPercent:          r.Positive("risk_percent", d.RiskPercent),
		LossPenalty:          r.NonNegative("loss_penalty", d.LossPenalty),
		Seed:                 seed,
	}
	if err := r.Err(); err != nil {
		return Config{}, err
	}
	if cfg.StopLossPercent >= 100 || cfg.RiskPercent >= 100 {
		return Config{}, model.NewConfigurationError("stop_loss_percent", "percentages must be below 100")
	}
	return cfg, nil
}

// Strategy trades the epsilon-greedy action of its QFunction.
type Strategy struct {
	cfg    Config
	rng    *rand.Rand
	q      *QFunction
	policy *Policy
	norm   Normalizer
	buffer *ReplayBuffer

	training      bool
	episodeReward float64
	losses        int
	lastAction    Action

	// per step
	valid     bool
	state     Features
	action    Action
	decided   bool
	protected bool // a stop or target closed the position this step
	prevValid bool
	pending   *Transition
}

// New builds a strategy with weights drawn from cfg.Seed.
func New(cfg Config) (*Strategy, error) {
	if cfg.BatchSize <= 0 || cfg.MemorySize <= 0 {
		return nil, model.NewConfigurationError("batch_size", "batch and memory sizes must be positive")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Strategy{
		cfg:    cfg,
		rng:    rng,
		q:      NewQFunction(rng),
		policy: NewPolicy(cfg.Exploration, rng),
		buffer: NewReplayBuffer(cfg.MemorySize),
	}, nil
}

func (s *Strategy) Name() string { return strategy.NameReinforcementLearning }

func (s *Strategy) Indicators() []indicator.Spec { return Indicators() }

func (s *Strategy) SetTrainingMode(on bool) { s.training = on }

func (s *Strategy) Training() bool { return s.training }

func (s *Strategy) EpisodeReward() float64 { return s.episodeReward }

// QFunction exposes the live weights.
func (s *Strategy) QFunction() *QFunction { return s.q }

// Reset clears everything learned about the current episode but keeps the weights.
func (s *Strategy) Reset() {
	s.norm.Reset()
	s.buffer.Clear()
	s.episodeReward = 0
	s.losses = 0
	s.lastAction = Hold
	s.pending = nil
	s.prevValid = false
	s.valid = false
}

func (s *Strategy) BeginStep(m strategy.Market) {
	s.prevValid = s.valid
	s.decided, s.protected = false, false
	f, ok := Extract(m, s.cfg.TrendConfirmation)
	s.valid = ok
	if !ok {
		s.pending = nil
		return
	}
	s.norm.Update(f)
	s.state = s.norm.Normalize(f)
	if s.pending != nil {
		if s.training {
			t := *s.pending
			t.NextState = s.state
			s.buffer.Push(t)
		}
		s.pending = nil
	}
}

func (s *Strategy) EndStep(m strategy.Market) {
	if !s.valid || s.protected {
		return
	}
	s.decide()
	r := s.reward(m)
	s.episodeReward += r
	s.pending = &Transition{State: s.state, Action: s.action, Reward: r}
	if s.training {
		s.Learn()
	}
}

// Learn replays one batch once the buffer holds enough transitions and returns the mean absolute error.
func (s *Strategy) Learn() float64 {
	if s.buffer.Len() < s.cfg.BatchSize {
		return 0
	}
	total := 0.0
	for _, t := range s.buffer.Sample(s.cfg.BatchSize, s.rng) {
		total += math.Abs(s.q.Update(t, s.cfg.LearningRate, s.cfg.Discount))
	}
	return total / float64(s.cfg.BatchSize)
}

func (s *Strategy) decide() Action {
	if !s.decided {
		s.action = s.policy.Choose(s.q, s.state)
		s.decided = true
	}
	return s.action
}

// actionable filters out quiet candles and a stalled loss streak.
func (s *Strategy) actionable(c model.Candle) bool {
	change := math.Abs((c.Close - c.Open) / c.Open)
	volatility := (c.High - c.Low) / c.Low
	return change >= s.cfg.MinPriceChange && volatility >= s.cfg.MinVolatility &&
		s.losses < s.cfg.MaxConsecutiveLosses
}

func (s *Strategy) EvaluateExit(m strategy.Market, pos model.Position) *strategy.Exit {
	c := m.Current()
	sign := pos.Side.Sign()
	stop := pos.EntryPrice * (1 - sign*s.cfg.StopLossPercent/100)
	target := pos.EntryPrice * (1 + sign*s.cfg.TakeProfitPercent/100)

	if (pos.Side == model.Long && c.Low <= stop) || (pos.Side == model.Short && c.High >= stop) {
		s.protected = true
		s.losses++
		return &strategy.Exit{Price: stop, Reason: "stop loss"}
	}
	if (pos.Side == model.Long && c.High >= target) || (pos.Side == model.Short && c.Low <= target) {
		s.protected = true
		s.losses = 0
		return &strategy.Exit{Price: target, Reason: "take profit"}
	}
	if !s.valid || s.decide() != Hold || !s.actionable(c) {
		return nil
	}
	if pos.UnrealizedReturn(c.Close) < 0 {
		s.losses++
	} else {
		s.losses = 0
	}
	s.lastAction = Hold
	return &strategy.Exit{Price: c.Close, Reason: "hold"}
}

func (s *Strategy) EvaluateEntry(m strategy.Market) *strategy.Entry {
	if !s.valid || s.protected {
		return nil
	}
	a := s.decide()
	c := m.Current()
	if a == Hold || !s.actionable(c) {
		return nil
	}
	risk := c.Close * s.cfg.RiskPercent / 100 * math.Pow(0.8, float64(s.losses))
	s.lastAction = a
	if a == Buy {
		return &strategy.Entry{Side: model.Long, Price: c.Close, StopLoss: c.Close - risk, Reason: "q buy"}
	}
	return &strategy.Entry{Side: model.Short, Price: c.Close, StopLoss: c.Close + risk, Reason: "q sell"}
}

// reward scores the step once the engine has applied this step's decisions.
func (s *Strategy) reward(m strategy.Market) float64 {
	if !s.prevValid {
		return 0
	}
	c := m.Current()
	r := 0.0
	pos, open := m.Position()
	if open {
		r += pos.UnrealizedReturn(c.Close) * 100
	}
	if s.lastAction != Hold {
		change := (c.Close - c.Open) / c.Open
		if (s.lastAction == Buy && change > 0) || (s.lastAction == Sell && change < 0) {
			r += 2
		} else {
			r--
		}
	}
	if open {
		if dir := confirmedTrend(m, s.cfg.TrendConfirmation); dir != 0 {
			if dir == pos.Side.Sign() {
				r += 2
			} else {
				r -= 2
			}
		}
	}
	if s.losses >= s.cfg.MaxConsecutiveLosses {
		r -= s.cfg.LossPenalty * float64(s.losses-s.cfg.MaxConsecutiveLosses+1)
	}
	return r
}
