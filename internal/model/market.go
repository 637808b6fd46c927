package model

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Candle represents a single OHLCV bar. Candles are never mutated once loaded.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Body is the signed distance from open to close.
func (c Candle) Body() float64 { return c.Close - c.Open }

// Range is the distance from low to high.
func (c Candle) Range() float64 { return c.High - c.Low }

// Check reports why a candle violates the OHLCV invariants, or "" if it is sane.
func (c Candle) Check() string {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "non-finite field"
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return "non-positive price"
	}
	if c.Volume < 0 {
		return "negative volume"
	}
	if c.High < c.Low {
		return "high below low"
	}
	return ""
}

// NullFloat is a value that may be absent because there was not enough history.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float wraps a known value.
func Float(v float64) NullFloat { return NullFloat{Float64: v, Valid: true} }

// Null is the absent value.
var Null = NullFloat{}

// ParseInterval accepts minutes ("60"), "D", "W" or a Go duration ("4h").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "":
		return 0, errors.New("empty interval")
	case "D":
		return 24 * time.Hour, nil
	case "W":
		return 7 * 24 * time.Hour, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, errors.Errorf("interval %q must be positive", s)
		}
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parse interval %q", s)
	}
	if d <= 0 {
		return 0, errors.Errorf("interval %q must be positive", s)
	}
	return d, nil
}
