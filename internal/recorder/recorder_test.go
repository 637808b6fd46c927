package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"StrategyLab/internal/model"
)

func sampleRun() *Run {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &Run{
		Started:  t0,
		Finished: t0.Add(time.Second),
		Report: &model.Report{
			RunID: "run-1",
			ClosedTrades: []model.ClosedTrade{
				{ID: 1, Side: model.Long, EntryTime: t0, ExitTime: t0.Add(time.Hour), EntryPrice: 100, ExitPrice: 110, Quantity: 2, PnL: 20},
			},
			Transactions: []model.Transaction{
				{Seq: 1, Time: t0, Type: model.TxEntry, Side: model.Long, Price: 100, Quantity: 2},
				{Seq: 2, Time: t0.Add(time.Hour), Type: model.TxExit, Side: model.Long, Price: 110, Quantity: 2},
			},
			Stats:    model.Stats{TotalTrades: 1, Wins: 1, EndingCapital: 1020},
			Metadata: model.Metadata{Symbol: "BTC", Strategy: "MACross", StartingCapital: 1000},
		},
	}
}

func TestSQLiteRecorder(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "lab.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if err := r.RecordRun(sampleRun()); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	counts := map[string]int{"runs": 1, "closed_trades": 1, "transactions": 2}
	for table, want := range counts {
		var got int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&got); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != want {
			t.Errorf("%s rows = %d, want %d", table, got, want)
		}
	}

	var strategy string
	var ending float64
	if err := r.db.QueryRow("SELECT strategy, ending_capital FROM runs WHERE run_id = ?", "run-1").Scan(&strategy, &ending); err != nil {
		t.Fatal(err)
	}
	if strategy != "MACross" || ending != 1020 {
		t.Errorf("run row = %s %v", strategy, ending)
	}

	if err := r.RecordRun(sampleRun()); err == nil {
		t.Error("duplicate run id accepted")
	}
	if err := r.RecordRun(&Run{}); err == nil {
		t.Error("run without report accepted")
	}
}

func TestJSONRecorder(t *testing.T) {
	r, err := NewJSONRecorder(filepath.Join(t.TempDir(), "runs"))
	if err != nil {
		t.Fatal(err)
	}
	run := sampleRun()
	if err := r.RecordRun(run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	data, err := os.ReadFile(r.Path(run))
	if err != nil {
		t.Fatal(err)
	}
	var back Run
	if err := sonic.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Report.RunID != "run-1" || len(back.Report.Transactions) != 2 {
		t.Errorf("read back %+v", back.Report)
	}
}

type failing struct{ calls *int }

func (f failing) RecordRun(*Run) error { *f.calls++; return os.ErrClosed }
func (f failing) Close() error         { return nil }

func TestMultiWritesEveryBackend(t *testing.T) {
	calls := 0
	m := Multi{failing{&calls}, NewNoopRecorder(), failing{&calls}}
	if err := m.RecordRun(sampleRun()); err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if err := (Multi{NewNoopRecorder()}).RecordRun(sampleRun()); err != nil {
		t.Errorf("noop: %v", err)
	}
}
