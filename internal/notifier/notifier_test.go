package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy/rl"
)

func TestFormatRunSummary(t *testing.T) {
	r := &model.Report{
		Metadata: model.Metadata{Strategy: "MACross", Symbol: "BTC<USD>", Interval: "1h", StartingCapital: 100000},
		Stats:    model.Stats{TotalTrades: 3, Wins: 2, Losses: 1, Accuracy: 66.67, EndingCapital: 105000},
	}
	tests := []struct {
		name   string
		err    error
		want   []string
		absent []string
	}{
		{"ok", nil, []string{"<b>MACross</b>", "BTC&lt;USD&gt;", "(+5.00%)", "Trades: 3 | Won 2 | Lost 1"}, []string{"Stopped early"}},
		{"stopped", errors.New("capital exhausted"), []string{"⚠️", "Stopped early: capital exhausted"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatRunSummary(r, tt.err)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in:\n%s", w, got)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(got, a) {
					t.Errorf("unexpected %q in:\n%s", a, got)
				}
			}
		})
	}
	if got := FormatRunSummary(nil, errors.New("boom")); !strings.Contains(got, "Run failed") || !strings.Contains(got, "boom") {
		t.Errorf("nil report: %s", got)
	}
}

func TestFormatTrainingSummary(t *testing.T) {
	got := FormatTrainingSummary([]rl.TrainingStats{
		{Epoch: 1, WinRate: 0.4},
		{Epoch: 2, TotalReward: 12.5, WinRate: 0.65, Sharpe: 2.5, MaxDrawdown: 300},
	}, true, "data/models/rl.json")
	for _, w := range []string{"2 epochs", "Total reward: 12.50", "Win rate: 65.0%", "Sharpe: 2.50", "Stopped early", "data/models/rl.json"} {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in:\n%s", w, got)
		}
	}
	if got := FormatTrainingSummary(nil, false, ""); !strings.Contains(got, "No epochs") {
		t.Errorf("empty: %s", got)
	}
}

func TestFormatRunTable(t *testing.T) {
	if FormatRunTable(nil) != "No runs yet." {
		t.Error("empty table")
	}
	got := FormatRunTable([]*model.Report{{Metadata: model.Metadata{Strategy: "SuperTrend"}, Stats: model.Stats{TotalTrades: 4}}})
	if !strings.Contains(got, "SuperTrend: 4 trades") {
		t.Errorf("table: %s", got)
	}
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err %v after %d calls", err, calls)
	}

	calls = 0
	err = withRetry(context.Background(), 1, time.Millisecond, func() error { calls++; return errors.New("down") })
	if err == nil || calls != 2 {
		t.Errorf("err %v after %d calls, want failure after 2", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := withRetry(ctx, 3, time.Hour, func() error { return errors.New("down") }); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v", err)
	}
}
