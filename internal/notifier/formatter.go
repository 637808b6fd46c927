package notifier

import (
	"fmt"
	"html"
	"strings"

	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy/rl"
)

// FormatRunSummary formats one replay report. A non-nil err marks the run as stopped early.
func FormatRunSummary(r *model.Report, runErr error) string {
	if r == nil {
		return fmt.Sprintf("❌ <b>Run failed</b>\n%s", html.EscapeString(errText(runErr)))
	}
	md, st := r.Metadata, r.Stats

	var b strings.Builder
	icon := "📊"
	if runErr != nil {
		icon = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b> | %s %s\n\n", icon,
		html.EscapeString(md.Strategy), html.EscapeString(md.Symbol), html.EscapeString(md.Interval)))

	ret := 0.0
	if md.StartingCapital > 0 {
		ret = (st.EndingCapital - md.StartingCapital) / md.StartingCapital * 100
	}
	b.WriteString(fmt.Sprintf("Capital: %.2f → %.2f (%+.2f%%)\n", md.StartingCapital, st.EndingCapital, ret))
	b.WriteString(fmt.Sprintf("Trades: %d | Won %d | Lost %d | Accuracy %.1f%%\n",
		st.TotalTrades, st.Wins, st.Losses, st.Accuracy))
	b.WriteString(fmt.Sprintf("Long %d/%d | Short %d/%d\n", st.LongsWon, st.Longs, st.ShortsWon, st.Shorts))
	b.WriteString(fmt.Sprintf("PnL %.2f | Fees %.2f | Net %.2f\n", st.TotalPnL, st.Fees, st.PnLAfterFee))
	b.WriteString(fmt.Sprintf("Reward %.2f (avg %.2f) | Max DD %.2f over %d trades\n",
		st.TotalReward, st.AverageReward, st.MaxDrawdown, st.MaxDrawdownDuration))
	if runErr != nil {
		b.WriteString(fmt.Sprintf("\nStopped early: %s\n", html.EscapeString(runErr.Error())))
	}
	return b.String()
}

// FormatRunTable lists several reports, one line each.
func FormatRunTable(reports []*model.Report) string {
	if len(reports) == 0 {
		return "No runs yet."
	}
	var b strings.Builder
	b.WriteString("📋 <b>Last runs</b>\n\n")
	for _, r := range reports {
		b.WriteString(fmt.Sprintf("• %s: %d trades, net %.2f, ending %.2f\n",
			html.EscapeString(r.Metadata.Strategy), r.Stats.TotalTrades, r.Stats.PnLAfterFee, r.Stats.EndingCapital))
	}
	return b.String()
}

// FormatTrainingSummary formats the epoch history of a training session.
func FormatTrainingSummary(epochs []rl.TrainingStats, earlyStop bool, modelPath string) string {
	if len(epochs) == 0 {
		return "🧠 <b>Training</b>\n\nNo epochs ran."
	}
	last := epochs[len(epochs)-1]
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧠 <b>Training</b> | %d epochs\n\n", len(epochs)))
	b.WriteString(fmt.Sprintf("Total reward: %.2f\n", last.TotalReward))
	b.WriteString(fmt.Sprintf("Win rate: %.1f%%\n", last.WinRate*100))
	b.WriteString(fmt.Sprintf("Sharpe: %.2f\n", last.Sharpe))
	b.WriteString(fmt.Sprintf("Max drawdown: %.2f\n", last.MaxDrawdown))
	if earlyStop {
		b.WriteString("Stopped early: targets reached\n")
	}
	if modelPath != "" {
		b.WriteString(fmt.Sprintf("Model: <code>%s</code>\n", html.EscapeString(modelPath)))
	}
	return b.String()
}

// FormatStrategies lists the registered variants.
func FormatStrategies(names []string) string {
	return "Strategies:\n• " + strings.Join(names, "\n• ")
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	return "Commands:\n• /run run the configured backtests\n• /last last results\n• /strategies registered variants\n• /train train the RL model"
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
