package calculator

import (
	"math"

	"github.com/pkg/errors"
)

// Bands is a Bollinger envelope.
type Bands struct {
	Middle float64
	Upper  float64
	Lower  float64
}

// CalculateBollinger uses the population standard deviation of the last period values.
func CalculateBollinger(values []float64, period int, numStdDev float64) (Bands, error) {
	mean, err := CalculateSMA(values, period)
	if err != nil {
		return Bands{}, err
	}
	if numStdDev < 0 {
		return Bands{}, errors.New("numStdDev must not be negative")
	}
	sq := 0.0
	for _, v := range values[len(values)-period:] {
		sq += (v - mean) * (v - mean)
	}
	std := math.Sqrt(sq / float64(period))
	return Bands{Middle: mean, Upper: mean + numStdDev*std, Lower: mean - numStdDev*std}, nil
}
