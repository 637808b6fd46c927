package rl

import "math/rand"

// Transition is one (s, a, r, s') experience.
type Transition struct {
	State     Features
	Action    Action
	Reward    float64
	NextState Features
}

// ReplayBuffer is a fixed-capacity ring of transitions.
type ReplayBuffer struct {
	buf  []Transition
	next int
	cap  int
}

func NewReplayBuffer(capacity int) *ReplayBuffer {
	return &ReplayBuffer{buf: make([]Transition, 0, capacity), cap: capacity}
}

// Push overwrites the oldest transition once full.
func (b *ReplayBuffer) Push(t Transition) {
	if len(b.buf) < b.cap {
		b.buf = append(b.buf, t)
	} else {
		b.buf[b.next] = t
	}
	b.next = (b.next + 1) % b.cap
}

func (b *ReplayBuffer) Len() int { return len(b.buf) }

// Sample draws n transitions uniformly with replacement, or all of them when fewer are held.
func (b *ReplayBuffer) Sample(n int, rng *rand.Rand) []Transition {
	if len(b.buf) < n {
		out := make([]Transition, len(b.buf))
		copy(out, b.buf)
		return out
	}
	out := make([]Transition, n)
	for i := range out {
		out[i] = b.buf[rng.Intn(len(b.buf))]
	}
	return out
}

func (b *ReplayBuffer) Clear() {
	b.buf = b.buf[:0]
	b.next = 0
}
