package calculator

import (
	"github.com/pkg/errors"

	"StrategyLab/internal/model"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, model.ErrInsufficientHistory
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateCandleSMA returns the SMA of closes over the last period candles.
func CalculateCandleSMA(bars []model.Candle, period int) (float64, error) {
	return CalculateSMA(ExtractCloses(bars), period)
}

// ExtractCloses returns the close of every bar.
func ExtractCloses(bars []model.Candle) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
