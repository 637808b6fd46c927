// Package series holds the immutable candle sequence that a replay walks
// forward one candle at a time.
package series

import (
	"time"

	"github.com/pkg/errors"

	"StrategyLab/internal/calculator"
	"StrategyLab/internal/model"
)

// Options controls validation and the warmup offset.
type Options struct {
	Interval  time.Duration
	Warmup    int
	AllowGaps bool
}

// Series is a forward-only cursor over shared immutable candles.
type Series struct {
	candles []model.Candle
	warmup  int
	cursor  int
}

// New validates candles and returns a cursor positioned before the first candle.
func New(candles []model.Candle, opts Options) (*Series, error) {
	if opts.Warmup < 0 {
		return nil, model.NewConfigurationError("warmup", "must not be negative")
	}
	if err := Validate(candles, opts.Interval, opts.AllowGaps); err != nil {
		return nil, err
	}
	return &Series{candles: candles, warmup: opts.Warmup, cursor: -1}, nil
}

// Validate fails on non-monotonic timestamps, gaps and malformed candles.
// A zero interval disables the gap check.
func Validate(candles []model.Candle, interval time.Duration, allowGaps bool) error {
	for i, c := range candles {
		if reason := c.Check(); reason != "" {
			return errors.WithStack(&model.DataIntegrityError{Index: i, Reason: reason})
		}
		if i == 0 {
			continue
		}
		step := c.Time.Sub(candles[i-1].Time)
		if step <= 0 {
			return errors.WithStack(&model.DataIntegrityError{Index: i, Reason: "timestamp not increasing"})
		}
		if interval > 0 && !allowGaps && step != interval {
			return errors.WithStack(&model.DataIntegrityError{
				Index:  i,
				Reason: "gap of " + step.String() + ", expected " + interval.String(),
			})
		}
	}
	return nil
}

// Fork returns an independent cursor over the same candles.
func (s *Series) Fork() *Series {
	return &Series{candles: s.candles, warmup: s.warmup, cursor: -1}
}

// Len is the number of candles.
func (s *Series) Len() int { return len(s.candles) }

// HasNext reports whether Advance would move the cursor.
func (s *Series) HasNext() bool { return s.cursor+1 < len(s.candles) }

// Advance moves the cursor forward and returns the new current candle.
func (s *Series) Advance() (model.Candle, bool) {
	if !s.HasNext() {
		return model.Candle{}, false
	}
	s.cursor++
	return s.candles[s.cursor], true
}

// Index is the cursor position, -1 before the first Advance.
func (s *Series) Index() int { return s.cursor }

// Ready is false until the cursor has passed the warmup offset.
func (s *Series) Ready() bool { return s.cursor >= s.warmup }

// Current returns the candle under the cursor.
func (s *Series) Current() model.Candle {
	if s.cursor < 0 {
		return model.Candle{}
	}
	return s.candles[s.cursor]
}

// Lookback returns the candle n positions before the cursor. n must be >= 0.
func (s *Series) Lookback(n int) (model.Candle, bool) {
	i := s.cursor - n
	if n < 0 || s.cursor < 0 || i < 0 {
		return model.Candle{}, false
	}
	return s.candles[i], true
}

// history is every candle strictly before the cursor.
func (s *Series) history() []model.Candle {
	if s.cursor <= 0 {
		return nil
	}
	return s.candles[:s.cursor]
}

// WindowHigh is the highest high of the n candles before the current one.
func (s *Series) WindowHigh(n int) model.NullFloat {
	v, err := calculator.WindowHigh(s.history(), n)
	if err != nil {
		return model.Null
	}
	return model.Float(v)
}

// WindowLow is the lowest low of the n candles before the current one.
func (s *Series) WindowLow(n int) model.NullFloat {
	v, err := calculator.WindowLow(s.history(), n)
	if err != nil {
		return model.Null
	}
	return model.Float(v)
}

// SimpleMovingAverage is the mean close of the current candle and the n-1 before it.
func (s *Series) SimpleMovingAverage(n int) model.NullFloat {
	if s.cursor < 0 {
		return model.Null
	}
	start := s.cursor + 1 - n
	if start < 0 {
		start = 0
	}
	v, err := calculator.CalculateCandleSMA(s.candles[start:s.cursor+1], n)
	if err != nil {
		return model.Null
	}
	return model.Float(v)
}
