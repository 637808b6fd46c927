package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"

	"StrategyLab/internal/model"
)

func bars(highs, lows []float64) []model.Candle {
	out := make([]model.Candle, len(highs))
	for i := range highs {
		mid := (highs[i] + lows[i]) / 2
		out[i] = model.Candle{
			Time:  time.Unix(int64(i)*60, 0),
			Open:  mid,
			High:  highs[i],
			Low:   lows[i],
			Close: mid,
		}
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	got, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Errorf("expected 4, got %.4f", got)
	}

	if _, err := CalculateSMA([]float64{1, 2}, 3); !errors.Is(err, model.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
	if _, err := CalculateSMA([]float64{1, 2}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestWindowHighLow(t *testing.T) {
	b := bars([]float64{10, 14, 12, 11}, []float64{8, 9, 7, 10})

	tests := []struct {
		n        int
		wantHigh float64
		wantLow  float64
	}{
		{1, 11, 10},
		{2, 12, 7},
		{4, 14, 7},
	}
	for _, tt := range tests {
		h, err := WindowHigh(b, tt.n)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", tt.n, err)
		}
		l, err := WindowLow(b, tt.n)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", tt.n, err)
		}
		if h != tt.wantHigh || l != tt.wantLow {
			t.Errorf("n=%d: expected %.0f/%.0f, got %.0f/%.0f", tt.n, tt.wantHigh, tt.wantLow, h, l)
		}
	}

	if _, err := WindowHigh(b, 5); !errors.Is(err, model.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestCalculateRSI(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6}
	got, err := CalculateRSI(rising, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100 {
		t.Errorf("expected 100 for monotonic rise, got %.2f", got)
	}

	// gains 1,1 losses 1,1 over period 4 -> RS 1 -> RSI 50
	flat := []float64{10, 11, 10, 11, 10}
	got, err = CalculateRSI(flat, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-50) > 1e-9 {
		t.Errorf("expected 50, got %.4f", got)
	}

	if _, err := CalculateRSI(rising, 6); !errors.Is(err, model.ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestCalculateBollinger(t *testing.T) {
	b, err := CalculateBollinger([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// mean 5, population std 2
	if b.Middle != 5 || b.Upper != 9 || b.Lower != 1 {
		t.Errorf("unexpected bands: %+v", b)
	}
}
