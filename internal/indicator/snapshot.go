package indicator

import (
	"time"

	"StrategyLab/internal/model"
)

// Direction is the SuperTrend side.
type Direction int

const (
	Sell Direction = -1
	Buy  Direction = 1
)

func (d Direction) String() string {
	if d == Buy {
		return "Buy"
	}
	return "Sell"
}

// Trend is one SuperTrend reading.
type Trend struct {
	Valid     bool
	Direction Direction
	Upper     float64
	Lower     float64
	Value     float64
	ATR       float64
}

// CandleProps are the body and wick measurements of a candle.
type CandleProps struct {
	Body      float64
	UpperWick float64
	LowerWick float64
	Range     float64
}

// Props measures c.
func Props(c model.Candle) CandleProps {
	top, bottom := c.Close, c.Open
	if c.Open > c.Close {
		top, bottom = c.Open, c.Close
	}
	return CandleProps{
		Body:      c.Close - c.Open,
		UpperWick: c.High - top,
		LowerWick: bottom - c.Low,
		Range:     c.High - c.Low,
	}
}

// Compression tags a candle that sits inside a volatility-compression range.
// Range indexes State.Ranges and is -1 when Inside is false.
type Compression struct {
	Inside bool
	Range  int
}

// CompressionRange is the mother candle's range recorded when a child first fits inside it.
type CompressionRange struct {
	MotherIndex  int
	High         float64
	Low          float64
	VolumeChange float64
	Opposite     bool
}

// Snapshot holds every indicator value for one candle.
type Snapshot struct {
	Index       int
	Time        time.Time
	Values      map[string]model.NullFloat
	Props       CandleProps
	Patterns    Pattern
	Trend       Trend
	Compression Compression
}

// Value returns the keyed value, Null when absent.
func (s Snapshot) Value(key string) model.NullFloat {
	v, ok := s.Values[key]
	if !ok {
		return model.Null
	}
	return v
}

// State is the append-only list of snapshots plus the compression ranges they reference.
type State struct {
	snapshots []Snapshot
	ranges    []CompressionRange
}

// Len is the number of augmented candles.
func (s *State) Len() int { return len(s.snapshots) }

// At returns the snapshot of candle i.
func (s *State) At(i int) (Snapshot, bool) {
	if i < 0 || i >= len(s.snapshots) {
		return Snapshot{}, false
	}
	return s.snapshots[i], true
}

// Range returns compression range i.
func (s *State) Range(i int) (CompressionRange, bool) {
	if i < 0 || i >= len(s.ranges) {
		return CompressionRange{}, false
	}
	return s.ranges[i], true
}

// Ranges returns a copy of every recorded compression range.
func (s *State) Ranges() []CompressionRange {
	out := make([]CompressionRange, len(s.ranges))
	copy(out, s.ranges)
	return out
}
