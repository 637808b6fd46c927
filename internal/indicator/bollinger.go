package indicator

import (
	"StrategyLab/internal/calculator"
	"StrategyLab/internal/model"
)

// Bollinger keeps the last n source values and recomputes the bands from them.
type Bollinger struct {
	period    int
	numStdDev float64
	window    []float64
}

func NewBollinger(period int, numStdDev float64) *Bollinger {
	return &Bollinger{period: period, numStdDev: numStdDev, window: make([]float64, 0, period)}
}

// Update returns ok=false until the window is full.
func (b *Bollinger) Update(v float64) (calculator.Bands, bool) {
	if len(b.window) == b.period {
		copy(b.window, b.window[1:])
		b.window = b.window[:b.period-1]
	}
	b.window = append(b.window, v)
	bands, err := calculator.CalculateBollinger(b.window, b.period, b.numStdDev)
	if err != nil {
		return calculator.Bands{}, false
	}
	return bands, true
}

func bandValues(key string, bands calculator.Bands, ok bool) map[string]model.NullFloat {
	if !ok {
		return map[string]model.NullFloat{key + "middle": model.Null, key + "upper": model.Null, key + "lower": model.Null}
	}
	return map[string]model.NullFloat{
		key + "middle": model.Float(bands.Middle),
		key + "upper":  model.Float(bands.Upper),
		key + "lower":  model.Float(bands.Lower),
	}
}
