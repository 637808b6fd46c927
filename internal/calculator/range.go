package calculator

import (
	"math"

	"github.com/pkg/errors"

	"StrategyLab/internal/model"
)

// WindowHigh scans the last n bars and returns the highest high.
func WindowHigh(bars []model.Candle, n int) (float64, error) {
	window, err := lastN(bars, n)
	if err != nil {
		return 0, err
	}
	high := math.Inf(-1)
	for _, b := range window {
		if b.High > high {
			high = b.High
		}
	}
	return high, nil
}

// WindowLow scans the last n bars and returns the lowest low.
func WindowLow(bars []model.Candle, n int) (float64, error) {
	window, err := lastN(bars, n)
	if err != nil {
		return 0, err
	}
	low := math.Inf(1)
	for _, b := range window {
		if b.Low < low {
			low = b.Low
		}
	}
	return low, nil
}

func lastN(bars []model.Candle, n int) ([]model.Candle, error) {
	if n <= 0 {
		return nil, errors.New("window must be positive")
	}
	if len(bars) < n {
		return nil, model.ErrInsufficientHistory
	}
	return bars[len(bars)-n:], nil
}
