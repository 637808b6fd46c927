package model

import "time"

// ClosedTrade is one paired entry/exit leg produced by the accountant.
type ClosedTrade struct {
	ID          int       `json:"id"`
	Side        Side      `json:"side"`
	EntryTime   time.Time `json:"entry_time"`
	ExitTime    time.Time `json:"exit_time"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	Quantity    float64   `json:"quantity"`
	Risk        float64   `json:"risk"`
	RiskPerUnit float64   `json:"risk_per_unit"`
	Partial     bool      `json:"partial"`
	Duration    int       `json:"duration"`
	Fee         float64   `json:"fee"`
	PnL         float64   `json:"pnl"`
	PnLAfterFee float64   `json:"pnl_after_fee"`
	Reward      float64   `json:"reward"`

	Capital        float64 `json:"capital"`
	HighestCapital float64 `json:"highest_capital"`

	CumulativePnL    float64 `json:"cumulative_pnl"`
	PeakPnL          float64 `json:"peak_pnl"`
	Drawdown         float64 `json:"drawdown"`
	DrawdownDuration int     `json:"drawdown_duration"`
}

// Won reports whether the trade made money before fees.
func (t ClosedTrade) Won() bool { return t.PnL > 0 }

// Metadata describes the run that produced a report.
type Metadata struct {
	Symbol          string  `json:"symbol"`
	Interval        string  `json:"interval"`
	StartingCapital float64 `json:"starting_capital"`
	RiskPercentage  float64 `json:"risk_percentage"`
	Strategy        string  `json:"strategy"`
	EndingCapital   float64 `json:"ending_capital"`
}

// Stats summarizes a list of closed trades.
type Stats struct {
	TotalTrades          int     `json:"total_trades"`
	Wins                 int     `json:"wins"`
	Losses               int     `json:"losses"`
	Accuracy             float64 `json:"accuracy"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	Longs                int     `json:"longs"`
	LongsWon             int     `json:"longs_won"`
	Shorts               int     `json:"shorts"`
	ShortsWon            int     `json:"shorts_won"`
	AverageDuration      float64 `json:"average_duration"`

	TotalReward       float64 `json:"total_reward"`
	MaxReward         float64 `json:"max_reward"`
	MinReward         float64 `json:"min_reward"`
	AverageWinReward  float64 `json:"average_win_reward"`
	AverageLossReward float64 `json:"average_loss_reward"`
	AverageReward     float64 `json:"average_reward"`

	TotalPnL            float64 `json:"total_pnl"`
	Fees                float64 `json:"fees"`
	PnLAfterFee         float64 `json:"pnl_after_fee"`
	MaxDrawdown         float64 `json:"max_drawdown"`
	MaxDrawdownDuration int     `json:"max_drawdown_duration"`
	EndingCapital       float64 `json:"ending_capital"`
}

// Report is the outcome of one replay.
type Report struct {
	RunID        string        `json:"run_id"`
	ClosedTrades []ClosedTrade `json:"closed_trades"`
	Transactions []Transaction `json:"transactions"`
	Stats        Stats         `json:"stats"`
	Metadata     Metadata      `json:"metadata"`
}
