package backtest

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy/rl"
)

// Early stopping thresholds.
const (
	targetSharpe  = 2
	targetWinRate = 0.6
)

// TrainerConfig controls the epoch loop.
type TrainerConfig struct {
	Epochs    int
	ModelPath string // empty keeps the model in memory only
}

// TrainingResult is the per-epoch history and the frozen model.
type TrainingResult struct {
	Epochs    []rl.TrainingStats
	Model     *rl.Model
	EarlyStop bool
	Last      *model.Report
}

// Trainer replays the same candles through an RL strategy once per epoch.
type Trainer struct {
	cfg      Config
	tcfg     TrainerConfig
	candles  []model.Candle
	strategy *rl.Strategy
	log      *zap.Logger
}

func NewTrainer(cfg Config, tcfg TrainerConfig, candles []model.Candle, s *rl.Strategy, log *zap.Logger) (*Trainer, error) {
	if s == nil {
		return nil, model.NewConfigurationError("strategy", "is required")
	}
	if tcfg.Epochs <= 0 {
		return nil, model.NewConfigurationError("epochs", "must be positive")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{cfg: cfg, tcfg: tcfg, candles: candles, strategy: s, log: log}, nil
}

// Train runs the epochs, stopping early once the sharpe and win-rate
// targets are met, and saves the model when a path is configured.
func (t *Trainer) Train(ctx context.Context) (*TrainingResult, error) {
	t.strategy.SetTrainingMode(true)
	defer t.strategy.SetTrainingMode(false)

	res := &TrainingResult{}
	for epoch := 1; epoch <= t.tcfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		eng, err := NewEngine(t.cfg, t.candles, t.strategy, t.log)
		if err != nil {
			return res, err
		}
		report, err := eng.Execute()
		if err != nil && !model.IsCapitalExhausted(err) {
			return res, errors.Wrapf(err, "epoch %d", epoch)
		}
		if err != nil {
			t.log.Warn("epoch ended early", zap.Int("epoch", epoch), zap.Error(err))
		}

		st := epochStats(epoch, t.strategy.EpisodeReward(), report)
		res.Epochs = append(res.Epochs, st)
		res.Last = report
		t.log.Info("epoch done",
			zap.Int("epoch", epoch),
			zap.Float64("reward", st.TotalReward),
			zap.Float64("win_rate", st.WinRate),
			zap.Float64("sharpe", st.Sharpe),
			zap.Float64("max_drawdown", st.MaxDrawdown),
		)
		if st.Sharpe > targetSharpe && st.WinRate > targetWinRate {
			res.EarlyStop = true
			break
		}
	}

	res.Model = t.strategy.Snapshot()
	if n := len(res.Epochs); n > 0 {
		last := res.Epochs[n-1]
		res.Model.Stats = &last
	}
	if t.tcfg.ModelPath != "" {
		if err := res.Model.Save(t.tcfg.ModelPath); err != nil {
			return res, err
		}
		t.log.Info("model saved", zap.String("path", t.tcfg.ModelPath))
	}
	return res, nil
}

// epochStats uses the population deviation of trade P&L; a zero deviation divides by 1.
func epochStats(epoch int, reward float64, r *model.Report) rl.TrainingStats {
	st := rl.TrainingStats{Epoch: epoch, TotalReward: reward}
	if r == nil || len(r.ClosedTrades) == 0 {
		return st
	}
	n := float64(len(r.ClosedTrades))
	var sum float64
	wins := 0
	for _, tr := range r.ClosedTrades {
		sum += tr.PnL
		if tr.PnL > 0 {
			wins++
		}
	}
	mean := sum / n
	var ss float64
	for _, tr := range r.ClosedTrades {
		ss += (tr.PnL - mean) * (tr.PnL - mean)
	}
	std := math.Sqrt(ss / n)
	if std == 0 {
		std = 1
	}
	st.Sharpe = mean / std
	st.WinRate = float64(wins) / n
	st.MaxDrawdown = r.Stats.MaxDrawdown
	return st
}
