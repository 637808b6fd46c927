package model

import "time"

// Side is the direction of a position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Sign is +1 for Long and -1 for Short.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Short {
		return Long
	}
	return Short
}

// State is the ledger state machine position.
type State string

const (
	StateFlat  State = "FLAT"
	StateLong  State = "LONG"
	StateShort State = "SHORT"
)

// TxType classifies ledger transactions.
type TxType string

const (
	TxEntry       TxType = "ENTRY"
	TxExit        TxType = "EXIT"
	TxPartialExit TxType = "PARTIAL_EXIT"
)

// Position is the single open position of a ledger.
type Position struct {
	Side        Side
	EntryTime   time.Time
	EntryPrice  float64
	Quantity    float64
	RiskPerUnit float64
	StopLoss    float64
}

// UnrealizedReturn is the fractional gain of the position at price.
func (p Position) UnrealizedReturn(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return p.Side.Sign() * (price - p.EntryPrice) / p.EntryPrice
}

// Transaction is an immutable ledger log entry.
type Transaction struct {
	Seq          int       `json:"seq"`
	Time         time.Time `json:"time"`
	Type         TxType    `json:"type"`
	Side         Side      `json:"side"`
	Price        float64   `json:"price"`
	Quantity     float64   `json:"quantity"`
	Risk         float64   `json:"risk"`
	CapitalAfter float64   `json:"capital_after"`
}
