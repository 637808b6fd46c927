package indicator

import (
	"fmt"

	"StrategyLab/internal/model"
)

// Kind names an indicator family.
type Kind string

const (
	KindMA         Kind = "ma"
	KindEMA        Kind = "ema"
	KindATR        Kind = "atr"
	KindSuperTrend Kind = "supertrend"
	KindRSI        Kind = "rsi"
	KindBollinger  Kind = "bb"
)

// Source selects the candle field an indicator reads.
type Source string

const (
	Open   Source = "open"
	High   Source = "high"
	Low    Source = "low"
	Close  Source = "close"
	Volume Source = "volume"
)

// Of extracts the source field from a candle.
func (s Source) Of(c model.Candle) float64 {
	switch s {
	case Open:
		return c.Open
	case High:
		return c.High
	case Low:
		return c.Low
	case Volume:
		return c.Volume
	default:
		return c.Close
	}
}

// Spec declares one indicator a strategy needs.
// Multiplier is the band width for SuperTrend and Bollinger.
type Spec struct {
	Kind       Kind
	Period     int
	Source     Source
	Multiplier float64
}

func MA(period int, src Source) Spec  { return Spec{Kind: KindMA, Period: period, Source: src} }
func EMA(period int, src Source) Spec { return Spec{Kind: KindEMA, Period: period, Source: src} }
func ATRSpec(period int) Spec         { return Spec{Kind: KindATR, Period: period} }
func RSISpec(period int) Spec         { return Spec{Kind: KindRSI, Period: period, Source: Close} }

// SuperTrendSpec uses an ATR of atrPeriod scaled by multiplier.
func SuperTrendSpec(atrPeriod int, multiplier float64) Spec {
	return Spec{Kind: KindSuperTrend, Period: atrPeriod, Multiplier: multiplier}
}

// BollingerSpec produces <key>middle, <key>upper and <key>lower values.
func BollingerSpec(period int, src Source, numStdDev float64) Spec {
	return Spec{Kind: KindBollinger, Period: period, Source: src, Multiplier: numStdDev}
}

// Key is the snapshot key, e.g. "ma20high" or "atr10".
func (s Spec) Key() string {
	switch s.Kind {
	case KindATR, KindRSI:
		return fmt.Sprintf("%s%d", s.Kind, s.Period)
	case KindSuperTrend:
		return string(KindSuperTrend)
	default:
		return fmt.Sprintf("%s%d%s", s.Kind, s.Period, s.source())
	}
}

func (s Spec) source() Source {
	if s.Source == "" {
		return Close
	}
	return s.Source
}

func (s Spec) validate() error {
	if s.Period <= 0 {
		return model.NewConfigurationError(s.Key()+".period", "must be positive")
	}
	switch s.Kind {
	case KindMA, KindEMA, KindATR, KindRSI:
		return nil
	case KindSuperTrend, KindBollinger:
		if s.Multiplier < 0 {
			return model.NewConfigurationError(s.Key()+".multiplier", "must not be negative")
		}
		return nil
	default:
		return model.NewConfigurationError("indicator.kind", fmt.Sprintf("unknown kind %q", s.Kind))
	}
}
