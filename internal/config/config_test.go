package config

import (
	"os"
	"path/filepath"
	"testing"

	"StrategyLab/internal/ledger"
	"StrategyLab/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "SQLITE_PATH", "POSTGRES_DSN",
		"DATA_FILE", "HTTPS_PROXY", "CRON_BACKTEST", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataSource.Provider != "yahoo" || cfg.DataSource.Interval != "D" || cfg.Backtest.Capital != 100000 {
		t.Errorf("defaults = %+v", cfg.DataSource)
	}
	if cfg.Backtest.Sizing != string(ledger.SizingFixed) || cfg.Backtest.Settlement != string(ledger.SettlementSpot) || *cfg.Backtest.FeeRate != 0.001 {
		t.Errorf("backtest defaults = %+v", cfg.Backtest)
	}
	if len(cfg.Backtest.Strategies) != 1 || cfg.RL.Epochs != 10 || cfg.Log.Level != "info" {
		t.Errorf("strategies %v, epochs %d", cfg.Backtest.Strategies, cfg.RL.Epochs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
data_source:
  provider: mock
  symbol: BTCUSDT
  interval: "15"
backtest:
  capital: 5000
  fee_rate: 0
  strategies:
    - name: MACross
      params:
        fast: 5
        slow: 20
rl:
  epochs: 3
`)
	t.Setenv("DATA_FILE", "/tmp/candles.json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataSource.Provider != "file" || cfg.DataSource.File != "/tmp/candles.json" {
		t.Errorf("DATA_FILE override = %+v", cfg.DataSource)
	}
	if cfg.Log.Level != "debug" || cfg.DataSource.Symbol != "BTCUSDT" {
		t.Errorf("log %q symbol %q", cfg.Log.Level, cfg.DataSource.Symbol)
	}

	eng := cfg.Engine()
	if eng.Capital != 5000 || eng.FeeRate != 0 || eng.Interval != "15" {
		t.Errorf("engine = %+v", eng)
	}
	svc := cfg.Service()
	if len(svc.Runs) != 1 || svc.Runs[0].Params["slow"] != 20 || svc.Training.Trainer.Epochs != 3 {
		t.Errorf("service = %+v", svc)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	if _, err := Load(writeConfig(t, "backtest: [")); err == nil {
		t.Error("bad yaml accepted")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.DataSource.Provider = "ftp" }},
		{"file without path", func(c *Config) { c.DataSource.Provider = "file"; c.DataSource.File = "" }},
		{"interval", func(c *Config) { c.DataSource.Interval = "often" }},
		{"limit", func(c *Config) { c.DataSource.Limit = -1 }},
		{"risk", func(c *Config) { c.Backtest.RiskPercentage = 150 }},
		{"sizing", func(c *Config) { c.Backtest.Sizing = "kelly" }},
		{"settlement", func(c *Config) { c.Backtest.Settlement = "margin" }},
		{"fee", func(c *Config) { f := 1.5; c.Backtest.FeeRate = &f }},
		{"warmup", func(c *Config) { c.Backtest.Warmup = -2 }},
		{"strategy", func(c *Config) { c.Backtest.Strategies = []StrategyConfig{{Name: "Martingale"}} }},
		{"telegram", func(c *Config) { c.Telegram.BotToken = "token" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); !model.IsConfigurationError(err) {
				t.Errorf("err = %v, want ConfigurationError", err)
			}
		})
	}
}
