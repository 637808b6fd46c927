// Package accountant turns a ledger transaction log into closed trades,
// drawdown figures and summary statistics.
package accountant

import (
	"math"
	"time"

	"StrategyLab/internal/model"
)

// DefaultFeeRate is charged on both legs of a trade.
const DefaultFeeRate = 0.001

// Options configures trade pairing.
type Options struct {
	Interval        time.Duration // candle length, used for Duration
	FeeRate         float64
	StartingCapital float64
}

// Accountant pairs transactions into closed trades.
type Accountant struct {
	opts Options
}

// New returns an Accountant. A zero FeeRate means no fees.
func New(opts Options) (*Accountant, error) {
	if opts.FeeRate < 0 || opts.FeeRate >= 1 || math.IsNaN(opts.FeeRate) {
		return nil, model.NewConfigurationError("fee_rate", "must be in [0, 1)")
	}
	if opts.Interval < 0 {
		return nil, model.NewConfigurationError("interval", "must not be negative")
	}
	return &Accountant{opts: opts}, nil
}

// Pair matches each entry with the exits that follow it. Every exit leg,
// partial or final, becomes one ClosedTrade for its quantity. Entries
// carrying no risk are skipped together with their exits.
//
// Capital follows the ledger's cash, which never pays fees, so the curve
// and Drawdown both move on gross PnL.
func (a *Accountant) Pair(txs []model.Transaction) []model.ClosedTrade {
	var (
		out     []model.ClosedTrade
		entry   *model.Transaction
		capital = a.opts.StartingCapital
		highest = a.opts.StartingCapital
	)
	for i := range txs {
		tx := txs[i]
		switch tx.Type {
		case model.TxEntry:
			if tx.Risk == 0 || tx.Quantity <= 0 {
				entry = nil
				continue
			}
			entry = &tx
		case model.TxPartialExit, model.TxExit:
			if entry == nil {
				continue
			}
			ct := a.close(len(out)+1, *entry, tx)
			capital += ct.PnL
			highest = math.Max(highest, capital)
			ct.Capital, ct.HighestCapital = capital, highest
			out = append(out, ct)
			if tx.Type == model.TxExit {
				entry = nil
			}
		}
	}
	return out
}

func (a *Accountant) close(id int, entry, exit model.Transaction) model.ClosedTrade {
	qty := exit.Quantity
	riskPerUnit := entry.Risk / entry.Quantity
	risk := riskPerUnit * qty
	pnl := (exit.Price - entry.Price) * qty * entry.Side.Sign()
	fee := a.opts.FeeRate * (entry.Price*qty + exit.Price*qty)

	reward := 0.0
	if risk != 0 {
		reward = pnl / math.Abs(risk)
	}
	return model.ClosedTrade{
		ID:          id,
		Side:        entry.Side,
		EntryTime:   entry.Time,
		ExitTime:    exit.Time,
		EntryPrice:  entry.Price,
		ExitPrice:   exit.Price,
		Quantity:    qty,
		Risk:        risk,
		RiskPerUnit: riskPerUnit,
		Partial:     exit.Type == model.TxPartialExit,
		Duration:    candles(exit.Time.Sub(entry.Time), a.opts.Interval),
		Fee:         fee,
		PnL:         pnl,
		PnLAfterFee: pnl - fee,
		Reward:      reward,
	}
}

// candles is ceil(d/interval), or 0 without an interval.
func candles(d, interval time.Duration) int {
	if interval <= 0 || d <= 0 {
		return 0
	}
	return int((d + interval - 1) / interval)
}

// Drawdown fills the running P&L, peak and drawdown fields on a copy of trades.
func Drawdown(trades []model.ClosedTrade) []model.ClosedTrade {
	out := make([]model.ClosedTrade, len(trades))
	copy(out, trades)

	var cum, peak float64
	duration := 0
	for i := range out {
		cum += out[i].PnL
		if cum > peak {
			peak = cum
			duration = 0
		} else {
			duration++
		}
		out[i].CumulativePnL = cum
		out[i].PeakPnL = peak
		out[i].Drawdown = peak - cum
		out[i].DrawdownDuration = duration
	}
	return out
}

// Settle pairs txs and runs the drawdown pass.
func (a *Accountant) Settle(txs []model.Transaction) []model.ClosedTrade {
	return Drawdown(a.Pair(txs))
}
