package series

import (
	"math"
	"testing"
	"time"

	"StrategyLab/internal/model"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeCandles(closes ...float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			Time:   t0.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100,
		}
	}
	return out
}

func TestAdvanceAndLookback(t *testing.T) {
	s, err := New(makeCandles(10, 11, 12, 13), Options{Interval: time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Index() != -1 {
		t.Fatalf("expected cursor before first candle, got %d", s.Index())
	}
	if _, ok := s.Lookback(0); ok {
		t.Error("lookback before first advance should be empty")
	}

	for i := 0; i < 3; i++ {
		if _, ok := s.Advance(); !ok {
			t.Fatalf("advance %d failed", i)
		}
	}
	if got := s.Current().Close; got != 12 {
		t.Errorf("expected current close 12, got %.0f", got)
	}
	prev, ok := s.Lookback(2)
	if !ok || prev.Close != 10 {
		t.Errorf("expected lookback(2) close 10, got %+v ok=%v", prev, ok)
	}
	if _, ok := s.Lookback(3); ok {
		t.Error("lookback beyond the first candle should be empty")
	}
	if _, ok := s.Lookback(-1); ok {
		t.Error("negative lookback must never return a future candle")
	}

	s.Advance()
	if s.HasNext() {
		t.Error("expected exhausted series")
	}
	if _, ok := s.Advance(); ok {
		t.Error("advance past the end should fail")
	}
}

func TestWarmup(t *testing.T) {
	s, err := New(makeCandles(1, 2, 3, 4, 5), Options{Warmup: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ready := 0
	for s.HasNext() {
		s.Advance()
		if s.Ready() {
			ready++
		}
	}
	if ready != 2 {
		t.Errorf("expected 2 ready candles after warmup 3, got %d", ready)
	}
}

func TestWindowsExcludeCurrent(t *testing.T) {
	s, _ := New(makeCandles(10, 20, 15, 30), Options{})
	for i := 0; i < 4; i++ {
		s.Advance()
	}
	high := s.WindowHigh(3)
	if !high.Valid || high.Float64 != 21 {
		t.Errorf("expected window high 21, got %+v", high)
	}
	low := s.WindowLow(2)
	if !low.Valid || low.Float64 != 14 {
		t.Errorf("expected window low 14, got %+v", low)
	}
	if s.WindowHigh(4).Valid {
		t.Error("window of 4 needs 4 prior candles")
	}

	sma := s.SimpleMovingAverage(2)
	if !sma.Valid || sma.Float64 != 22.5 {
		t.Errorf("expected SMA(2) 22.5, got %+v", sma)
	}
	if s.SimpleMovingAverage(5).Valid {
		t.Error("SMA(5) should be null with 4 candles")
	}
}

func TestForkIsIndependent(t *testing.T) {
	a, _ := New(makeCandles(1, 2, 3), Options{})
	a.Advance()
	a.Advance()
	b := a.Fork()
	if b.Index() != -1 {
		t.Fatalf("fork should start before the first candle, got %d", b.Index())
	}
	b.Advance()
	if a.Current().Close != 2 || b.Current().Close != 1 {
		t.Errorf("cursors interfere: a=%.0f b=%.0f", a.Current().Close, b.Current().Close)
	}
}

func TestValidate(t *testing.T) {
	good := makeCandles(1, 2, 3)

	gap := makeCandles(1, 2, 3)
	gap[2].Time = gap[2].Time.Add(time.Hour)

	backwards := makeCandles(1, 2, 3)
	backwards[2].Time = backwards[0].Time

	nan := makeCandles(1, 2, 3)
	nan[1].Close = math.NaN()

	inverted := makeCandles(1, 2, 3)
	inverted[1].High, inverted[1].Low = inverted[1].Low, inverted[1].High

	tests := []struct {
		name      string
		candles   []model.Candle
		allowGaps bool
		wantErr   bool
	}{
		{"good", good, false, false},
		{"gap", gap, false, true},
		{"gap allowed", gap, true, false},
		{"non-monotonic", backwards, true, true},
		{"nan", nan, false, true},
		{"high below low", inverted, false, true},
	}
	for _, tt := range tests {
		err := Validate(tt.candles, time.Hour, tt.allowGaps)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: expected error=%v, got %v", tt.name, tt.wantErr, err)
			continue
		}
		if err != nil && !model.IsDataIntegrityError(err) {
			t.Errorf("%s: expected DataIntegrityError, got %T", tt.name, err)
		}
	}

	if _, err := New(good, Options{Warmup: -1}); !model.IsConfigurationError(err) {
		t.Errorf("expected configuration error for negative warmup, got %v", err)
	}
}
