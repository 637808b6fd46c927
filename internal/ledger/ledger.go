// Package ledger holds the position state machine shared by every strategy.
// It is the only place capital and quantity change.
package ledger

import (
	"math"
	"sync"
	"time"

	"StrategyLab/internal/model"
)

// Sizing selects how the per-trade risk budget is derived.
type Sizing string

const (
	// SizingFixed keeps the budget computed from the starting capital.
	SizingFixed Sizing = "fixed"
	// SizingEquity recomputes the budget from capital at each entry.
	SizingEquity Sizing = "equity"
)

// Settlement selects how a short exit is credited.
type Settlement string

const (
	// SettlementSpot credits qty*price on every exit and marks shorts at
	// qty*price, the way the replayed cash account always has.
	SettlementSpot Settlement = "spot"
	// SettlementCollateral returns the debited collateral plus the short's
	// gain, qty*entry + qty*(entry-price).
	SettlementCollateral Settlement = "collateral"
)

// quantityTolerance is the relative slack when comparing an exit quantity to the held quantity.
const quantityTolerance = 1e-9

// Config configures a Ledger.
type Config struct {
	Capital        float64
	RiskPercentage float64 // percent of capital risked per trade
	Sizing         Sizing
	Settlement     Settlement // empty means spot
}

// Validate checks the ledger parameters.
func (c Config) Validate() error {
	if c.Capital <= 0 || math.IsNaN(c.Capital) || math.IsInf(c.Capital, 0) {
		return model.NewConfigurationError("capital", "must be a positive number")
	}
	if c.RiskPercentage <= 0 || c.RiskPercentage > 100 {
		return model.NewConfigurationError("risk_percentage", "must be in (0, 100]")
	}
	switch c.Sizing {
	case "", SizingFixed, SizingEquity:
	default:
		return model.NewConfigurationError("sizing", "must be fixed or equity")
	}
	switch c.Settlement {
	case "", SettlementSpot, SettlementCollateral:
	default:
		return model.NewConfigurationError("settlement", "must be spot or collateral")
	}
	return nil
}

// Ledger tracks capital, the open position and the transaction log.
type Ledger struct {
	mu           sync.Mutex
	cfg          Config
	capital      float64
	riskBudget   float64
	position     *model.Position
	transactions []model.Transaction
}

// New creates a flat ledger.
func New(cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Sizing == "" {
		cfg.Sizing = SizingFixed
	}
	if cfg.Settlement == "" {
		cfg.Settlement = SettlementSpot
	}
	return &Ledger{
		cfg:        cfg,
		capital:    cfg.Capital,
		riskBudget: cfg.Capital * cfg.RiskPercentage / 100,
	}, nil
}

// Enter opens a position sized so that a stop-out loses at most the risk budget.
// It returns a nil transaction when the stop gives no usable risk or the size rounds to nothing.
func (l *Ledger) Enter(t time.Time, side model.Side, price, stopLoss float64) (*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.position != nil {
		return nil, &model.IllegalStateTransition{State: l.state(), Op: "enter", Reason: "position already open"}
	}
	if price <= 0 {
		return nil, nil
	}
	riskPerUnit := math.Abs(price - stopLoss)
	if riskPerUnit <= 0 || (side == model.Long && stopLoss >= price) || (side == model.Short && stopLoss <= price) {
		return nil, nil
	}

	budget := l.riskBudget
	if l.cfg.Sizing == SizingEquity {
		budget = l.capital * l.cfg.RiskPercentage / 100
	}
	qty := math.Min(l.capital/price, budget/riskPerUnit)
	if qty <= 0 || math.IsNaN(qty) {
		return nil, nil
	}

	l.capital -= qty * price
	l.position = &model.Position{
		Side:        side,
		EntryTime:   t,
		EntryPrice:  price,
		Quantity:    qty,
		RiskPerUnit: riskPerUnit,
		StopLoss:    stopLoss,
	}
	tx := l.record(t, model.TxEntry, side, price, qty, riskPerUnit*qty)
	return &tx, nil
}

// Exit closes qty of the open position at price. A quantity equal to the
// held size closes the position; a smaller one leaves the rest open.
func (l *Ledger) Exit(t time.Time, price, qty float64) (*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.position == nil {
		return nil, &model.IllegalStateTransition{State: model.StateFlat, Op: "exit", Reason: "no open position"}
	}
	if !finite(price) || price <= 0 {
		return nil, &model.IllegalStateTransition{State: l.state(), Op: "exit", Reason: "price must be a positive number"}
	}
	if !finite(qty) {
		return nil, &model.IllegalStateTransition{State: l.state(), Op: "exit", Reason: "quantity must be finite"}
	}
	held := l.position.Quantity
	full := math.Abs(qty-held) <= quantityTolerance*held
	if qty <= 0 {
		return nil, &model.IllegalStateTransition{State: l.state(), Op: "exit", Reason: "quantity must be positive"}
	}
	if qty > held && !full {
		return nil, &model.IllegalStateTransition{State: l.state(), Op: "exit", Reason: "quantity exceeds position"}
	}
	if full {
		qty = held
	}

	pos := *l.position
	l.capital += l.settle(pos, price, qty)

	txType := model.TxExit
	if full {
		l.position = nil
	} else {
		txType = model.TxPartialExit
		l.position.Quantity -= qty
	}
	tx := l.record(t, txType, pos.Side, price, qty, 0)
	return &tx, nil
}

// settle is the cash qty of pos is worth at price.
func (l *Ledger) settle(pos model.Position, price, qty float64) float64 {
	if pos.Side == model.Short && l.cfg.Settlement == SettlementCollateral {
		return qty*pos.EntryPrice + qty*(pos.EntryPrice-price)
	}
	return qty * price
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (l *Ledger) record(t time.Time, typ model.TxType, side model.Side, price, qty, risk float64) model.Transaction {
	tx := model.Transaction{
		Seq:          len(l.transactions) + 1,
		Time:         t,
		Type:         typ,
		Side:         side,
		Price:        price,
		Quantity:     qty,
		Risk:         risk,
		CapitalAfter: l.capital,
	}
	l.transactions = append(l.transactions, tx)
	return tx
}

func (l *Ledger) state() model.State {
	if l.position == nil {
		return model.StateFlat
	}
	if l.position.Side == model.Short {
		return model.StateShort
	}
	return model.StateLong
}

// State returns Flat, Long or Short.
func (l *Ledger) State() model.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state()
}

// Capital is the cash not tied up in the open position.
func (l *Ledger) Capital() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capital
}

// Equity is cash plus the open position marked at price.
func (l *Ledger) Equity(price float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.position == nil {
		return l.capital
	}
	return l.capital + l.settle(*l.position, price, l.position.Quantity)
}

func (l *Ledger) RiskBudget() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cfg.Sizing == SizingEquity {
		return l.capital * l.cfg.RiskPercentage / 100
	}
	return l.riskBudget
}

// Position returns a copy of the open position.
func (l *Ledger) Position() (model.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.position == nil {
		return model.Position{}, false
	}
	return *l.position, true
}

// Transactions returns a copy of the log.
func (l *Ledger) Transactions() []model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}
