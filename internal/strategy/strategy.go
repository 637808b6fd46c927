// Package strategy defines the capability interface that replay variants
// implement and the rule-based variants themselves.
package strategy

import (
	"time"

	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
)

// Market is the read-only view of the replay at the current candle.
// Offsets count back from the current candle, 0 being the current one.
type Market interface {
	Index() int
	Time() time.Time
	Current() model.Candle
	Lookback(n int) (model.Candle, bool)
	Snapshot(n int) (indicator.Snapshot, bool)
	Range(i int) (indicator.CompressionRange, bool)
	Ranges() []indicator.CompressionRange
	WindowHigh(n int) model.NullFloat
	WindowLow(n int) model.NullFloat
	SMA(n int) model.NullFloat
	Position() (model.Position, bool)
	Capital() float64
}

// Entry asks the engine to open a position. The stop sets the risk per unit.
type Entry struct {
	Side     model.Side
	Price    float64
	StopLoss float64
	Reason   string
}

// Exit asks the engine to close Quantity of the open position at Price.
// A zero Quantity closes all of it.
type Exit struct {
	Price    float64
	Quantity float64
	Reason   string
}

// Strategy is a replay variant. It decides; the ledger executes.
type Strategy interface {
	Name() string
	Indicators() []indicator.Spec
	EvaluateEntry(m Market) *Entry
	EvaluateExit(m Market, pos model.Position) *Exit
}

// Stepper is implemented by variants that need a hook around every evaluated candle.
type Stepper interface {
	BeginStep(m Market)
	EndStep(m Market)
}

// Resetter is implemented by variants that carry state between runs.
type Resetter interface {
	Reset()
}

// SignalProvider produces an opaque scalar from the market, positive meaning bullish.
type SignalProvider interface {
	Predict(m Market) float64
}

func full(price float64, reason string) *Exit {
	return &Exit{Price: price, Reason: reason}
}

// Registered variant names.
const (
	NameMovingAverage         = "MovingAverage"
	NameMACross               = "MACross"
	NameSuperTrend            = "SuperTrend"
	NameFortyTwenty           = "FortyTwenty"
	NameTwoBreakingCandle     = "TwoBreakingCandle"
	NameVolatilityCompression = "VolatilityCompression"
	NameModelSignal           = "ModelSignal"
	NameReinforcementLearning = "ReinforcementLearning"
	NamePriceAction           = "PriceAction"
	NameBreakout              = "Breakout"
	NameStopLossHunter        = "StopLossHunter"
)
