package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"StrategyLab/internal/model"
)

func TestParseCandles(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLen  int
		wantTime time.Time
		wantErr  bool
	}{
		{
			name:     "objects with dateUnix",
			input:    `[{"dateUnix":1700000000000,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10}]`,
			wantLen:  1,
			wantTime: time.UnixMilli(1700000000000).UTC(),
		},
		{
			name:     "objects with rfc3339 time",
			input:    `{"candles":[{"time":"2024-01-02T03:00:00Z","open":1,"high":2,"low":0.5,"close":1.5,"volume":10}]}`,
			wantLen:  1,
			wantTime: time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
		},
		{
			name:     "klines in seconds",
			input:    `[[1700000000,"1","2","0.5","1.5","10"],[1700003600,1,2,0.5,1.5,10]]`,
			wantLen:  2,
			wantTime: time.Unix(1700000000, 0).UTC(),
		},
		{name: "short kline", input: `[[1700000000,1,2]]`, wantErr: true},
		{name: "missing time", input: `[{"open":1}]`, wantErr: true},
		{name: "not an array", input: `{"x":1}`, wantErr: true},
		{name: "broken json", input: `[{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCandles([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if !got[0].Time.Equal(tt.wantTime) {
				t.Errorf("time = %v, want %v", got[0].Time, tt.wantTime)
			}
			if got[0].Close != 1.5 || got[0].Volume != 10 {
				t.Errorf("candle = %+v", got[0])
			}
		})
	}
}

func TestFileFetcherLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btc.json")
	data := `[[1700000000,1,2,0.5,1.5,10],[1700003600,1,2,0.5,1.6,10],[1700007200,1,2,0.5,1.7,10]]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := NewFileFetcher(path).FetchCandles(context.Background(), "BTC", "1h", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Close != 1.6 {
		t.Errorf("got %+v", got)
	}
}

func TestYahooFetcher(t *testing.T) {
	body := `{"chart":{"result":[{"timestamp":[1700000000,1700086400,1700172800],
		"indicators":{"quote":[{"open":[1,null,3],"high":[2,null,4],"low":[0.5,null,2.5],
		"close":[1.5,null,3.5],"volume":[10,null,30]}]}}],"error":null}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("interval = %s", r.URL.Query().Get("interval"))
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	got, err := f.FetchCandles(context.Background(), "SPX", "D", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (null bar skipped)", len(got))
	}
	if got[1].Close != 3.5 || got[1].Volume != 30 {
		t.Errorf("second candle = %+v", got[1])
	}
}

func TestYahooInterval(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		wantRng  string
		rejected bool
	}{
		{in: "1", want: "1m", wantRng: "7d"},
		{in: "15", want: "15m", wantRng: "60d"},
		{in: "1h", want: "60m", wantRng: "2y"},
		{in: "90m", want: "90m", wantRng: "60d"},
		{in: "D", want: "1d", wantRng: "10y"},
		{in: "W", want: "1wk", wantRng: "max"},
		{in: "4h", rejected: true},
		{in: "3", rejected: true},
		{in: "2D", rejected: true},
		{in: "bogus", rejected: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, rng, err := yahooInterval(tt.in)
			if tt.rejected {
				if !model.IsConfigurationError(err) {
					t.Fatalf("err = %v, want ConfigurationError", err)
				}
				return
			}
			if err != nil || got != tt.want || rng != tt.wantRng {
				t.Errorf("yahooInterval(%q) = %q, %q, %v; want %q, %q", tt.in, got, rng, err, tt.want, tt.wantRng)
			}
		})
	}
}

func TestYahooFetcherRejectsUnservedInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	if _, err := f.FetchCandles(context.Background(), "SPX", "4h", 0); !model.IsConfigurationError(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestYahooAPIError(t *testing.T) {
	if _, err := parseYahooChart([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestCollectSortsAndValidates(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(h int) model.Candle {
		return model.Candle{Time: t0.Add(time.Duration(h) * time.Hour), Open: 10, High: 11, Low: 9, Close: 10, Volume: 1}
	}

	c := NewCollector(&MockFetcher{Candles: []model.Candle{mk(2), mk(0), mk(1)}}, "X", "1h", 0)
	got, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for i := range got {
		if !got[i].Time.Equal(t0.Add(time.Duration(i) * time.Hour)) {
			t.Errorf("candle %d out of order: %v", i, got[i].Time)
		}
	}

	gap := NewCollector(&MockFetcher{Candles: []model.Candle{mk(0), mk(3)}}, "X", "1h", 0)
	if _, err := gap.Collect(context.Background()); !model.IsDataIntegrityError(err) {
		t.Errorf("gap err = %v, want DataIntegrityError", err)
	}
	gap.AllowGaps = true
	if _, err := gap.Collect(context.Background()); err != nil {
		t.Errorf("AllowGaps: %v", err)
	}
}

func TestMockFetcherGeneratesValidSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCollector(&MockFetcher{Price: 100, Start: start}, "X", "15", 300)
	got, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 300 || !got[0].Time.Equal(start) {
		t.Errorf("len %d start %v", len(got), got[0].Time)
	}
}
