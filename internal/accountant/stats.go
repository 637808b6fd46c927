package accountant

import (
	"math"

	"github.com/shopspring/decimal"

	"StrategyLab/internal/model"
)

func cents(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

func avg(sum decimal.Decimal, n int) float64 {
	if n == 0 {
		return 0
	}
	return cents(sum.Div(decimal.NewFromInt(int64(n))))
}

// Summarize computes win/loss counts, reward figures and money totals.
// Money is summed in decimal and rounded to cents.
func Summarize(trades []model.ClosedTrade, startingCapital float64) model.Stats {
	st := model.Stats{EndingCapital: startingCapital}
	if len(trades) == 0 {
		return st
	}

	var (
		pnl, fees, net            decimal.Decimal
		reward, winReward, lossRw decimal.Decimal
		duration                  int
		streakW, streakL          int
	)
	st.TotalTrades = len(trades)
	st.MaxReward = math.Inf(-1)
	st.MinReward = math.Inf(1)

	for _, t := range trades {
		r := decimal.NewFromFloat(t.Reward)
		reward = reward.Add(r)
		pnl = pnl.Add(decimal.NewFromFloat(t.PnL))
		fees = fees.Add(decimal.NewFromFloat(t.Fee))
		net = net.Add(decimal.NewFromFloat(t.PnLAfterFee))
		duration += t.Duration
		st.MaxReward = math.Max(st.MaxReward, t.Reward)
		st.MinReward = math.Min(st.MinReward, t.Reward)

		switch {
		case t.PnL > 0:
			st.Wins++
			winReward = winReward.Add(r)
		case t.PnL < 0:
			st.Losses++
			lossRw = lossRw.Add(r)
		}
		if t.Won() {
			streakW++
			streakL = 0
		} else {
			streakL++
			streakW = 0
		}
		st.MaxConsecutiveWins = max(st.MaxConsecutiveWins, streakW)
		st.MaxConsecutiveLosses = max(st.MaxConsecutiveLosses, streakL)

		if t.Side == model.Short {
			st.Shorts++
			if t.Won() {
				st.ShortsWon++
			}
		} else {
			st.Longs++
			if t.Won() {
				st.LongsWon++
			}
		}
		st.MaxDrawdown = math.Max(st.MaxDrawdown, t.Drawdown)
		st.MaxDrawdownDuration = max(st.MaxDrawdownDuration, t.DrawdownDuration)
	}

	n := decimal.NewFromInt(int64(st.TotalTrades))
	st.Accuracy = cents(decimal.NewFromInt(int64(st.Wins)).Div(n).Mul(decimal.NewFromInt(100)))
	st.AverageDuration = avg(decimal.NewFromInt(int64(duration)), st.TotalTrades)
	st.TotalReward = cents(reward)
	st.MaxReward = cents(decimal.NewFromFloat(st.MaxReward))
	st.MinReward = cents(decimal.NewFromFloat(st.MinReward))
	st.AverageReward = avg(reward, st.TotalTrades)
	st.AverageWinReward = avg(winReward, st.Wins)
	st.AverageLossReward = avg(lossRw, st.Losses)
	st.TotalPnL = cents(pnl)
	st.Fees = cents(fees)
	st.PnLAfterFee = cents(net)
	st.MaxDrawdown = cents(decimal.NewFromFloat(st.MaxDrawdown))
	st.EndingCapital = cents(decimal.NewFromFloat(startingCapital).Add(net))
	return st
}
