package backtest

import (
	"time"

	"StrategyLab/internal/indicator"
	"StrategyLab/internal/ledger"
	"StrategyLab/internal/model"
	"StrategyLab/internal/series"
)

// market is the read-only view a strategy sees at the current candle.
type market struct {
	series   *series.Series
	pipeline *indicator.Pipeline
	ledger   *ledger.Ledger
}

func (m *market) Index() int                          { return m.series.Index() }
func (m *market) Time() time.Time                     { return m.series.Current().Time }
func (m *market) Current() model.Candle               { return m.series.Current() }
func (m *market) Lookback(n int) (model.Candle, bool) { return m.series.Lookback(n) }

func (m *market) Snapshot(n int) (indicator.Snapshot, bool) {
	if n < 0 {
		return indicator.Snapshot{}, false
	}
	return m.pipeline.State().At(m.series.Index() - n)
}

func (m *market) Range(i int) (indicator.CompressionRange, bool) { return m.pipeline.State().Range(i) }
func (m *market) Ranges() []indicator.CompressionRange           { return m.pipeline.State().Ranges() }
func (m *market) WindowHigh(n int) model.NullFloat               { return m.series.WindowHigh(n) }
func (m *market) WindowLow(n int) model.NullFloat                { return m.series.WindowLow(n) }
func (m *market) SMA(n int) model.NullFloat                      { return m.series.SimpleMovingAverage(n) }
func (m *market) Position() (model.Position, bool)               { return m.ledger.Position() }
func (m *market) Capital() float64                               { return m.ledger.Capital() }
