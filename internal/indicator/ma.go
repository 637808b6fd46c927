package indicator

// MovingAverage is the running average ma_t = ma_{t-1}*(n-1)/n + p_t/n seeded with the first price.
type MovingAverage struct {
	period int
	value  float64
	count  int
}

func NewMovingAverage(period int) *MovingAverage {
	return &MovingAverage{period: period}
}

// Update folds p into the average and returns the new value.
func (m *MovingAverage) Update(p float64) float64 {
	if m.count == 0 {
		m.value = p
	} else {
		n := float64(m.period)
		m.value = m.value*(n-1)/n + p/n
	}
	m.count++
	return m.value
}

func (m *MovingAverage) Value() float64 { return m.value }

// ExponentialAverage smooths with k = 2/(n+1) seeded with the first price.
type ExponentialAverage struct {
	k     float64
	value float64
	count int
}

func NewExponentialAverage(period int) *ExponentialAverage {
	return &ExponentialAverage{k: 2 / (float64(period) + 1)}
}

func (e *ExponentialAverage) Update(p float64) float64 {
	if e.count == 0 {
		e.value = p
	} else {
		e.value = (p-e.value)*e.k + e.value
	}
	e.count++
	return e.value
}

func (e *ExponentialAverage) Value() float64 { return e.value }
