package rl

import (
	"math"
	"math/rand"
)

// Action is Sell (-1), Hold (0) or Buy (1).
type Action int

const (
	Sell Action = -1
	Hold Action = 0
	Buy  Action = 1
)

// Actions in tie-break order.
var Actions = [...]Action{Sell, Hold, Buy}

func (a Action) String() string {
	switch a {
	case Sell:
		return "Sell"
	case Buy:
		return "Buy"
	}
	return "Hold"
}

// QFunction is the linear value Q(s,a) = a·(bias + w·s).
type QFunction struct {
	Weights Features `json:"weights"`
	Bias    float64  `json:"bias"`
}

// NewQFunction draws the weights uniformly from [-0.1, 0.1).
func NewQFunction(rng *rand.Rand) *QFunction {
	q := &QFunction{}
	for i := range q.Weights {
		q.Weights[i] = rng.Float64()*0.2 - 0.1
	}
	return q
}

// Score is bias + w·s, the value of Buy.
func (q *QFunction) Score(s Features) float64 {
	v := q.Bias
	for i, x := range s {
		v += q.Weights[i] * x
	}
	return v
}

func (q *QFunction) Value(s Features, a Action) float64 {
	return float64(a) * q.Score(s)
}

// Best returns the greedy action; ties go to the earlier action in Actions.
func (q *QFunction) Best(s Features) (Action, float64) {
	best, bestQ := Actions[0], math.Inf(-1)
	for _, a := range Actions {
		if v := q.Value(s, a); v > bestQ {
			best, bestQ = a, v
		}
	}
	return best, bestQ
}

// Update applies one temporal-difference step and returns the error.
func (q *QFunction) Update(t Transition, alpha, gamma float64) float64 {
	_, next := q.Best(t.NextState)
	target := t.Reward + gamma*next
	err := target - q.Value(t.State, t.Action)
	q.Bias += alpha * err
	for i, x := range t.State {
		q.Weights[i] += alpha * err * x * float64(t.Action)
	}
	return err
}

// Policy is epsilon-greedy over a QFunction.
type Policy struct {
	Epsilon float64
	rng     *rand.Rand
}

func NewPolicy(epsilon float64, rng *rand.Rand) *Policy {
	return &Policy{Epsilon: epsilon, rng: rng}
}

func (p *Policy) Choose(q *QFunction, s Features) Action {
	if p.rng.Float64() < p.Epsilon {
		return Action(p.rng.Intn(3) - 1)
	}
	a, _ := q.Best(s)
	return a
}
