package calculator

import (
	"github.com/pkg/errors"

	"StrategyLab/internal/model"
)

// CalculateRSI computes the Wilder-smoothed RSI over the given period.
// Requires at least period+1 closes.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return 0, model.ErrInsufficientHistory
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		avgGain, avgLoss = WilderStep(avgGain, avgLoss, closes[i]-closes[i-1], period)
	}
	return RSIFromAverages(avgGain, avgLoss), nil
}

// WilderStep folds one close-to-close change into the running averages.
func WilderStep(avgGain, avgLoss, change float64, period int) (float64, float64) {
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	avgGain = (avgGain*float64(period-1) + gain) / float64(period)
	avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	return avgGain, avgLoss
}

// RSIFromAverages converts average gain and loss to an RSI reading.
func RSIFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
