// Package backtest replays a candle series through one strategy and the
// shared ledger, and settles the result into a report.
package backtest

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"StrategyLab/internal/accountant"
	"StrategyLab/internal/indicator"
	"StrategyLab/internal/ledger"
	"StrategyLab/internal/model"
	"StrategyLab/internal/series"
	"StrategyLab/internal/strategy"
)

// Config describes one replay.
type Config struct {
	Symbol         string
	Interval       string // "1h", "15", "D"; empty disables gap checks and durations
	Warmup         int
	AllowGaps      bool
	Capital        float64
	RiskPercentage float64
	Sizing         ledger.Sizing
	Settlement     ledger.Settlement
	FeeRate        float64
}

// DefaultConfig carries the stock capital, risk and fee.
func DefaultConfig() Config {
	return Config{
		Capital:        100000,
		RiskPercentage: 1,
		Sizing:         ledger.SizingFixed,
		Settlement:     ledger.SettlementSpot,
		FeeRate:        accountant.DefaultFeeRate,
	}
}

func (c Config) interval() (time.Duration, error) {
	if c.Interval == "" {
		return 0, nil
	}
	d, err := model.ParseInterval(c.Interval)
	if err != nil {
		return 0, model.NewConfigurationError("interval", err.Error())
	}
	return d, nil
}

// Engine owns the cursor, pipeline and ledger of a single run. It is not
// reusable; build a new one per run.
type Engine struct {
	cfg      Config
	strategy strategy.Strategy
	series   *series.Series
	pipeline *indicator.Pipeline
	ledger   *ledger.Ledger
	acct     *accountant.Accountant
	market   *market
	log      *zap.Logger

	runID    string
	executed bool
	report   *model.Report
}

// NewEngine validates cfg and candles and wires a fresh ledger for strat.
func NewEngine(cfg Config, candles []model.Candle, strat strategy.Strategy, log *zap.Logger) (*Engine, error) {
	if strat == nil {
		return nil, model.NewConfigurationError("strategy", "is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	interval, err := cfg.interval()
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, model.NewConfigurationError("candles", "no data to replay")
	}

	s, err := series.New(candles, series.Options{Interval: interval, Warmup: cfg.Warmup, AllowGaps: cfg.AllowGaps})
	if err != nil {
		return nil, err
	}
	p, err := indicator.NewPipeline(strat.Indicators())
	if err != nil {
		return nil, errors.Wrapf(err, "%s indicators", strat.Name())
	}
	l, err := ledger.New(ledger.Config{
		Capital:        cfg.Capital,
		RiskPercentage: cfg.RiskPercentage,
		Sizing:         cfg.Sizing,
		Settlement:     cfg.Settlement,
	})
	if err != nil {
		return nil, err
	}
	a, err := accountant.New(accountant.Options{Interval: interval, FeeRate: cfg.FeeRate, StartingCapital: cfg.Capital})
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	return &Engine{
		cfg:      cfg,
		strategy: strat,
		series:   s,
		pipeline: p,
		ledger:   l,
		acct:     a,
		market:   &market{series: s, pipeline: p, ledger: l},
		log:      log.With(zap.String("run_id", id), zap.String("strategy", strat.Name()), zap.String("symbol", cfg.Symbol)),
		runID:    id,
	}, nil
}

// RunID identifies the run in reports and recorders.
func (e *Engine) RunID() string { return e.runID }

// Execute replays every candle once. On IllegalStateTransition or
// CapitalExhausted it stops and still returns the report built so far.
func (e *Engine) Execute() (*model.Report, error) {
	if e.executed {
		return e.report, errors.New("engine already executed")
	}
	e.executed = true
	if r, ok := e.strategy.(strategy.Resetter); ok {
		r.Reset()
	}
	stepper, _ := e.strategy.(strategy.Stepper)

	start := time.Now()
	var runErr error
	for e.series.HasNext() {
		c, _ := e.series.Advance()
		e.pipeline.Next(c)
		if !e.series.Ready() {
			continue
		}
		// NaN equity must stop the replay too.
		if equity := e.ledger.Equity(c.Close); !(equity > 0) {
			runErr = errors.WithStack(&model.CapitalExhaustedError{Capital: equity, Time: c.Time})
			break
		}
		if stepper != nil {
			stepper.BeginStep(e.market)
		}
		if err := e.step(); err != nil {
			runErr = errors.Wrapf(err, "candle %d", e.series.Index())
			break
		}
		if stepper != nil {
			stepper.EndStep(e.market)
		}
	}

	e.report = e.settle()
	if runErr != nil {
		e.log.Error("replay stopped", zap.Int("candle", e.series.Index()), zap.Error(runErr))
		return e.report, runErr
	}
	e.log.Info("replay finished",
		zap.Int("candles", e.series.Len()),
		zap.Int("trades", e.report.Stats.TotalTrades),
		zap.Float64("ending_capital", e.report.Stats.EndingCapital),
		zap.Duration("elapsed", time.Since(start)),
	)
	return e.report, nil
}

// step applies the exit decision, then the entry decision when flat.
func (e *Engine) step() error {
	t := e.market.Time()
	if pos, open := e.ledger.Position(); open {
		x := e.strategy.EvaluateExit(e.market, pos)
		if x == nil {
			return nil
		}
		qty := x.Quantity
		if qty == 0 {
			qty = pos.Quantity
		}
		tx, err := e.ledger.Exit(t, x.Price, qty)
		if err != nil {
			return err
		}
		e.log.Debug("exit", zap.String("type", string(tx.Type)), zap.Float64("price", tx.Price),
			zap.Float64("quantity", tx.Quantity), zap.String("reason", x.Reason))
		if tx.Type != model.TxExit {
			return nil
		}
	}

	entry := e.strategy.EvaluateEntry(e.market)
	if entry == nil {
		return nil
	}
	tx, err := e.ledger.Enter(t, entry.Side, entry.Price, entry.StopLoss)
	if err != nil {
		return err
	}
	if tx == nil {
		e.log.Debug("entry skipped", zap.Float64("price", entry.Price), zap.Float64("stop", entry.StopLoss))
		return nil
	}
	e.log.Debug("entry", zap.String("side", string(tx.Side)), zap.Float64("price", tx.Price),
		zap.Float64("quantity", tx.Quantity), zap.String("reason", entry.Reason))
	return nil
}

func (e *Engine) settle() *model.Report {
	txs := e.ledger.Transactions()
	trades := e.acct.Settle(txs)
	stats := accountant.Summarize(trades, e.cfg.Capital)
	return &model.Report{
		RunID:        e.runID,
		ClosedTrades: trades,
		Transactions: txs,
		Stats:        stats,
		Metadata: model.Metadata{
			Symbol:          e.cfg.Symbol,
			Interval:        e.cfg.Interval,
			StartingCapital: e.cfg.Capital,
			RiskPercentage:  e.cfg.RiskPercentage,
			Strategy:        e.strategy.Name(),
			EndingCapital:   stats.EndingCapital,
		},
	}
}

// Report is the last settled report, nil before Execute.
func (e *Engine) Report() *model.Report { return e.report }

// Ledger exposes the run's ledger for inspection after Execute.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }
