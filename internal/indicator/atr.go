package indicator

import (
	"math"

	"StrategyLab/internal/model"
)

// TrueRange is max(h-l, |h-prevClose|, |l-prevClose|), or h-l for the first candle.
func TrueRange(c model.Candle, prevClose float64, hasPrev bool) float64 {
	tr := c.High - c.Low
	if !hasPrev {
		return tr
	}
	return math.Max(tr, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// ATR is the exponentially smoothed true range.
type ATR struct {
	k         float64
	value     float64
	prevClose float64
	count     int
}

func NewATR(period int) *ATR {
	return &ATR{k: 2 / (float64(period) + 1)}
}

func (a *ATR) Update(c model.Candle) float64 {
	tr := TrueRange(c, a.prevClose, a.count > 0)
	if a.count == 0 {
		a.value = tr
	} else {
		a.value = tr*a.k + a.value*(1-a.k)
	}
	a.prevClose = c.Close
	a.count++
	return a.value
}

func (a *ATR) Value() float64 { return a.value }
