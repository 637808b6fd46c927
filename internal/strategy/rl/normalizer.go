package rl

import "math"

const clip = 5

// Normalizer keeps Welford running statistics per feature.
type Normalizer struct {
	Count int                   `json:"count"`
	Mean  [NumFeatures]float64 `json:"mean"`
	M2    [NumFeatures]float64 `json:"m2"`
}

func (n *Normalizer) Update(f Features) {
	n.Count++
	for i, v := range f {
		delta := v - n.Mean[i]
		n.Mean[i] += delta / float64(n.Count)
		n.M2[i] += delta * (v - n.Mean[i])
	}
}

// Std is the sample standard deviation of feature i.
func (n *Normalizer) Std(i int) float64 {
	if n.Count < 2 {
		return 0
	}
	return math.Sqrt(n.M2[i] / float64(n.Count-1))
}

// Normalize z-scores the unbounded features and clips them to ±5.
func (n *Normalizer) Normalize(f Features) Features {
	var out Features
	for i, v := range f {
		if bounded[i] {
			out[i] = v
			continue
		}
		std := n.Std(i)
		if std == 0 {
			continue
		}
		out[i] = math.Max(-clip, math.Min(clip, (v-n.Mean[i])/std))
	}
	return out
}

func (n *Normalizer) Reset() { *n = Normalizer{} }
