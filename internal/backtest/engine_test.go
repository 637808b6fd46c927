package backtest

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"StrategyLab/internal/collector"
	"StrategyLab/internal/indicator"
	"StrategyLab/internal/ledger"
	"StrategyLab/internal/model"
	"StrategyLab/internal/recorder"
	"StrategyLab/internal/strategy"
	"StrategyLab/internal/strategy/rl"
)

var t0 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func candle(i int, o, h, l, c float64) model.Candle {
	return model.Candle{Time: t0.Add(time.Duration(i) * time.Hour), Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func fromCloses(closes []float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = candle(i, c, c+0.5, c-0.5, c)
	}
	return out
}

// upThenDown rises 100..114 and falls 113..99.
func upThenDown() []model.Candle {
	var closes []float64
	for i := 0; i < 15; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 0; i < 15; i++ {
		closes = append(closes, 113-float64(i))
	}
	return fromCloses(closes)
}

func testConfig() Config {
	return Config{Symbol: "TEST", Interval: "1h", Capital: 100000, RiskPercentage: 5, FeeRate: 0.001}
}

func TestMACrossScenario(t *testing.T) {
	s, err := NewStrategy(strategy.NameMACross, strategy.Params{"fast": 3, "slow": 8}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	eng, err := NewEngine(testConfig(), upThenDown(), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	rep, err := eng.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(rep.Transactions) != 2 || len(rep.ClosedTrades) != 1 {
		t.Fatalf("got %d transactions, %d trades", len(rep.Transactions), len(rep.ClosedTrades))
	}
	tr := rep.ClosedTrades[0]
	qty := 100000.0 / 101
	if tr.Side != model.Long || tr.EntryPrice != 101 || tr.ExitPrice != 107 || math.Abs(tr.Quantity-qty) > 1e-9 {
		t.Errorf("trade = %+v", tr)
	}
	if tr.Duration != 20 {
		t.Errorf("duration = %d, want 20", tr.Duration)
	}

	want := 100000 + (107-101)*qty - 0.001*(101*qty+107*qty)
	if math.Abs(rep.Stats.EndingCapital-want) > 0.01 {
		t.Errorf("ending capital = %.4f, want %.4f", rep.Stats.EndingCapital, want)
	}
	if got := eng.Ledger().Capital(); math.Abs(got-(100000+6*qty)) > 1e-6 {
		t.Errorf("ledger capital = %v", got)
	}
	if rep.Metadata.Strategy != strategy.NameMACross || rep.Metadata.EndingCapital != rep.Stats.EndingCapital {
		t.Errorf("metadata = %+v", rep.Metadata)
	}
	if rep.RunID == "" || rep.RunID != eng.RunID() || eng.Report() != rep {
		t.Error("report not retained")
	}
	if _, err := eng.Execute(); err == nil {
		t.Error("second Execute succeeded")
	}
}

func TestSuperTrendFlatScenario(t *testing.T) {
	candles := make([]model.Candle, 120)
	for i := range candles {
		candles[i] = candle(i, 100, 100, 100, 100)
	}
	s, err := NewStrategy(strategy.NameSuperTrend, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	eng, err := NewEngine(testConfig(), candles, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	rep, err := eng.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Transactions) != 0 || rep.Stats.EndingCapital != 100000 {
		t.Errorf("flat series traded: %+v", rep.Stats)
	}
}

// scripted replays fixed decisions by candle index.
type scripted struct {
	entries map[int]*strategy.Entry
	exits   map[int]*strategy.Exit
	seen    []int
}

func (s *scripted) Name() string               { return "scripted" }
func (s *scripted) Indicators() []indicator.Spec { return nil }

func (s *scripted) EvaluateEntry(m strategy.Market) *strategy.Entry {
	s.seen = append(s.seen, m.Index())
	return s.entries[m.Index()]
}
func (s *scripted) EvaluateExit(m strategy.Market, _ model.Position) *strategy.Exit {
	return s.exits[m.Index()]
}

func TestPartialReportOnIllegalExit(t *testing.T) {
	s := &scripted{
		entries: map[int]*strategy.Entry{1: {Side: model.Long, Price: 100, StopLoss: 99}},
		exits:   map[int]*strategy.Exit{3: {Price: 101, Quantity: 1e12}},
	}
	eng, err := NewEngine(testConfig(), fromCloses([]float64{100, 100, 101, 101, 102, 103}), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	rep, err := eng.Execute()
	if !model.IsIllegalStateTransition(err) {
		t.Fatalf("err = %v, want IllegalStateTransition", err)
	}
	if rep == nil || eng.Report() != rep || len(rep.Transactions) != 1 {
		t.Fatalf("partial report = %+v", rep)
	}
}

func TestNonFiniteExitPriceIsIllegal(t *testing.T) {
	s := &scripted{
		entries: map[int]*strategy.Entry{1: {Side: model.Long, Price: 100, StopLoss: 99}},
		exits:   map[int]*strategy.Exit{2: {Price: math.NaN()}},
	}
	eng, err := NewEngine(testConfig(), fromCloses([]float64{100, 100, 101, 102}), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	rep, err := eng.Execute()
	if !model.IsIllegalStateTransition(err) {
		t.Fatalf("err = %v, want IllegalStateTransition", err)
	}
	if rep == nil || len(rep.Transactions) != 1 {
		t.Fatalf("partial report = %+v", rep)
	}
}

func TestCapitalExhaustedStopsReplay(t *testing.T) {
	tests := []struct {
		settlement ledger.Settlement
		exhausted  bool
	}{
		{ledger.SettlementCollateral, true},
		{ledger.SettlementSpot, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.settlement), func(t *testing.T) {
			cfg := testConfig()
			cfg.Capital, cfg.RiskPercentage = 1000, 100
			cfg.Settlement = tt.settlement
			s := &scripted{entries: map[int]*strategy.Entry{1: {Side: model.Short, Price: 10, StopLoss: 10.1}}}
			candles := []model.Candle{
				candle(0, 10, 10, 10, 10),
				candle(1, 10, 10, 10, 10),
				candle(2, 10, 25, 10, 25),
				candle(3, 25, 25, 25, 25),
			}
			eng, err := NewEngine(cfg, candles, s, nil)
			if err != nil {
				t.Fatal(err)
			}
			rep, err := eng.Execute()
			if !tt.exhausted {
				if err != nil {
					t.Fatalf("err = %v, want a complete replay", err)
				}
				return
			}
			if !model.IsCapitalExhausted(err) {
				t.Fatalf("err = %v, want CapitalExhausted", err)
			}
			if rep == nil || len(rep.Transactions) != 1 || len(rep.ClosedTrades) != 0 {
				t.Fatalf("partial report = %+v", rep)
			}
		})
	}
}

func TestPartialExitAndReentry(t *testing.T) {
	s := &scripted{
		entries: map[int]*strategy.Entry{
			1: {Side: model.Long, Price: 100, StopLoss: 90},
			3: {Side: model.Long, Price: 101, StopLoss: 91},
			4: {Side: model.Long, Price: 102, StopLoss: 92},
		},
		exits: map[int]*strategy.Exit{
			2: {Price: 101, Quantity: 10},
			3: {Price: 101},
		},
	}
	eng, err := NewEngine(testConfig(), fromCloses([]float64{100, 100, 101, 101, 102}), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	rep, err := eng.Execute()
	if err != nil {
		t.Fatal(err)
	}
	var types []model.TxType
	for _, tx := range rep.Transactions {
		types = append(types, tx.Type)
	}
	want := []model.TxType{model.TxEntry, model.TxPartialExit, model.TxExit, model.TxEntry}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types = %v, want %v", types, want)
		}
	}
	if len(rep.ClosedTrades) != 2 {
		t.Errorf("closed trades = %d, want 2", len(rep.ClosedTrades))
	}
}

func TestWarmupSkipsCandles(t *testing.T) {
	cfg := testConfig()
	cfg.Warmup = 3
	s := &scripted{}
	eng, err := NewEngine(cfg, fromCloses([]float64{1, 2, 3, 4, 5}), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Execute(); err != nil {
		t.Fatal(err)
	}
	if len(s.seen) != 2 || s.seen[0] != 3 {
		t.Errorf("evaluated candles %v, want [3 4]", s.seen)
	}
}

func TestNewEngineRejects(t *testing.T) {
	good := fromCloses([]float64{1, 2, 3})
	gap := []model.Candle{candle(0, 1, 1, 1, 1), candle(5, 1, 1, 1, 1)}
	tests := []struct {
		name    string
		cfg     func(*Config)
		candles []model.Candle
		strat   strategy.Strategy
		check   func(error) bool
	}{
		{"nil strategy", nil, good, nil, model.IsConfigurationError},
		{"bad interval", func(c *Config) { c.Interval = "soon" }, good, &scripted{}, model.IsConfigurationError},
		{"zero capital", func(c *Config) { c.Capital = 0 }, good, &scripted{}, model.IsConfigurationError},
		{"fee too high", func(c *Config) { c.FeeRate = 1 }, good, &scripted{}, model.IsConfigurationError},
		{"negative warmup", func(c *Config) { c.Warmup = -1 }, good, &scripted{}, model.IsConfigurationError},
		{"no candles", nil, nil, &scripted{}, model.IsConfigurationError},
		{"gap", nil, gap, &scripted{}, model.IsDataIntegrityError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			if _, err := NewEngine(cfg, tt.candles, tt.strat, nil); !tt.check(err) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	names := Strategies()
	if len(names) != 11 {
		t.Fatalf("registered %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("not sorted: %v", names)
		}
	}
	for _, n := range names {
		if n == strategy.NameModelSignal {
			continue
		}
		s, err := NewStrategy(n, nil, Options{Seed: 1})
		if err != nil {
			t.Errorf("%s: %v", n, err)
			continue
		}
		if s.Name() != n {
			t.Errorf("%s built %s", n, s.Name())
		}
	}
	if _, err := NewStrategy("Nope", nil, Options{}); !model.IsConfigurationError(err) {
		t.Errorf("unknown err = %v", err)
	}
	if _, err := NewStrategy(strategy.NameModelSignal, nil, Options{}); !model.IsConfigurationError(err) {
		t.Errorf("model signal without provider err = %v", err)
	}
	if _, err := NewStrategy(strategy.NameMACross, strategy.Params{"fast": 9}, Options{}); !model.IsConfigurationError(err) {
		t.Errorf("bad params err = %v", err)
	}
}

func mockCandles(t *testing.T, n int) []model.Candle {
	t.Helper()
	f := &collector.MockFetcher{Price: 100, Start: t0}
	c, err := f.FetchCandles(context.Background(), "MOCK", "1h", n)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func smallRL(t *testing.T) *rl.Strategy {
	t.Helper()
	cfg := rl.DefaultConfig()
	cfg.BatchSize = 8
	cfg.MemorySize = 200
	cfg.Seed = 7
	s, err := rl.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTrainerSavesModel(t *testing.T) {
	candles := mockCandles(t, 300)
	path := filepath.Join(t.TempDir(), "rl.json")
	tr, err := NewTrainer(testConfig(), TrainerConfig{Epochs: 2, ModelPath: path}, candles, smallRL(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := tr.Train(context.Background())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(res.Epochs) == 0 || len(res.Epochs) > 2 || res.Last == nil {
		t.Fatalf("epochs = %v", res.Epochs)
	}
	m, err := rl.LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if m.Stats == nil || m.Stats.Epoch != len(res.Epochs) {
		t.Errorf("saved stats = %+v", m.Stats)
	}

	ms, err := NewStrategy(strategy.NameModelSignal, nil, Options{ModelPath: path})
	if err != nil {
		t.Fatalf("ModelSignal from saved model: %v", err)
	}
	eng, err := NewEngine(testConfig(), candles, ms, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Execute(); err != nil {
		t.Errorf("ModelSignal replay: %v", err)
	}
}

func TestTrainingIsDeterministic(t *testing.T) {
	candles := mockCandles(t, 250)
	run := func() []rl.TrainingStats {
		tr, err := NewTrainer(testConfig(), TrainerConfig{Epochs: 2}, candles, smallRL(t), nil)
		if err != nil {
			t.Fatal(err)
		}
		res, err := tr.Train(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return res.Epochs
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("epoch counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("epoch %d differs: %+v vs %+v", i+1, a[i], b[i])
		}
	}
}

func TestEpochStats(t *testing.T) {
	rep := &model.Report{
		ClosedTrades: []model.ClosedTrade{{PnL: 100}, {PnL: -50}, {PnL: 100}},
		Stats:        model.Stats{MaxDrawdown: 50},
	}
	st := epochStats(3, 1.5, rep)
	if math.Abs(st.Sharpe-50/math.Sqrt(5000)) > 1e-12 || math.Abs(st.WinRate-2.0/3) > 1e-12 || st.MaxDrawdown != 50 {
		t.Errorf("stats = %+v", st)
	}
	flat := epochStats(1, 0, &model.Report{ClosedTrades: []model.ClosedTrade{{PnL: 10}, {PnL: 10}}})
	if flat.Sharpe != 10 {
		t.Errorf("zero deviation sharpe = %v, want 10", flat.Sharpe)
	}
	if empty := epochStats(1, 2, &model.Report{}); empty.Sharpe != 0 || empty.TotalReward != 2 {
		t.Errorf("empty = %+v", empty)
	}
}

type memRecorder struct {
	mu   sync.Mutex
	runs []*recorder.Run
}

func (m *memRecorder) RecordRun(r *recorder.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}
func (m *memRecorder) Close() error { return nil }

type memSender struct {
	mu   sync.Mutex
	msgs []string
}

func (m *memSender) Send(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, text)
	return nil
}
func (m *memSender) SendWithRetry(_ context.Context, text string, _ int) error { return m.Send(text) }

func TestServiceRunAll(t *testing.T) {
	col := collector.NewCollector(&collector.MockFetcher{Candles: upThenDown()}, "TEST", "1h", 0)
	rec, snd := &memRecorder{}, &memSender{}
	svc := NewService(ServiceConfig{
		Engine: testConfig(),
		Runs: []RunSpec{
			{Name: strategy.NameMACross},
			{Name: strategy.NameSuperTrend},
			{Name: "Bogus"},
		},
	}, col, rec, snd, nil)

	results, err := svc.RunAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Err != nil || results[0].Report.Stats.TotalTrades != 1 {
		t.Errorf("MACross result = %+v", results[0])
	}
	if results[1].Err != nil || results[1].Report == nil {
		t.Errorf("SuperTrend result = %+v", results[1])
	}
	if !model.IsConfigurationError(results[2].Err) {
		t.Errorf("bogus err = %v", results[2].Err)
	}
	if len(rec.runs) != 2 || len(snd.msgs) != 3 || len(svc.Last()) != 2 {
		t.Errorf("recorded %d, sent %d, last %d", len(rec.runs), len(snd.msgs), len(svc.Last()))
	}
}

func TestServiceTrain(t *testing.T) {
	col := collector.NewCollector(&collector.MockFetcher{Price: 100, Start: t0}, "MOCK", "1h", 200)
	snd := &memSender{}
	path := filepath.Join(t.TempDir(), "m.json")
	svc := NewService(ServiceConfig{
		Engine: testConfig(),
		Training: TrainingSpec{
			Params:  strategy.Params{"batch_size": 8, "memory_size": 100},
			Seed:    3,
			Trainer: TrainerConfig{Epochs: 1, ModelPath: path},
		},
	}, col, nil, snd, nil)
	res, err := svc.Train(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Epochs) != 1 || len(snd.msgs) != 1 {
		t.Errorf("epochs %d, messages %d", len(res.Epochs), len(snd.msgs))
	}
	if _, err := rl.LoadModel(path); err != nil {
		t.Errorf("model not saved: %v", err)
	}
}
