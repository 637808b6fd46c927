package indicator

import (
	"StrategyLab/internal/calculator"
	"StrategyLab/internal/model"
)

// RSI is Wilder's relative strength index fed one close at a time.
type RSI struct {
	period    int
	changes   int
	prevClose float64
	seen      bool
	avgGain   float64
	avgLoss   float64
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Update returns Null until period+1 closes have been seen.
func (r *RSI) Update(close float64) model.NullFloat {
	if !r.seen {
		r.prevClose, r.seen = close, true
		return model.Null
	}
	change := close - r.prevClose
	r.prevClose = close
	r.changes++

	switch {
	case r.changes < r.period:
		r.accumulate(change)
		return model.Null
	case r.changes == r.period:
		r.accumulate(change)
		r.avgGain /= float64(r.period)
		r.avgLoss /= float64(r.period)
	default:
		r.avgGain, r.avgLoss = calculator.WilderStep(r.avgGain, r.avgLoss, change, r.period)
	}
	return model.Float(calculator.RSIFromAverages(r.avgGain, r.avgLoss))
}

func (r *RSI) accumulate(change float64) {
	if change > 0 {
		r.avgGain += change
	} else {
		r.avgLoss -= change
	}
}
