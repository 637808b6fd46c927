package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"StrategyLab/internal/accountant"
	"StrategyLab/internal/backtest"
	"StrategyLab/internal/ledger"
	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"
)

// StrategyConfig selects one registered variant and its parameters.
type StrategyConfig struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider  string  `yaml:"provider"` // file, yahoo or mock
		File      string  `yaml:"file"`
		Symbol    string  `yaml:"symbol"`
		Interval  string  `yaml:"interval"`
		Limit     int     `yaml:"limit"`
		AllowGaps bool    `yaml:"allow_gaps"`
		MockPrice float64 `yaml:"mock_price"`
	} `yaml:"data_source"`
	Backtest struct {
		Capital        float64          `yaml:"capital"`
		RiskPercentage float64          `yaml:"risk_percentage"`
		Sizing         string           `yaml:"sizing"`
		Settlement     string           `yaml:"settlement"`
		FeeRate        *float64         `yaml:"fee_rate"`
		Warmup         int              `yaml:"warmup"`
		Strategies     []StrategyConfig `yaml:"strategies"`
	} `yaml:"backtest"`
	RL struct {
		Epochs    int                `yaml:"epochs"`
		ModelPath string             `yaml:"model_path"`
		Seed      int64              `yaml:"seed"`
		Params    map[string]float64 `yaml:"params"`
	} `yaml:"rl"`
	Schedule struct {
		BacktestCron string `yaml:"backtest_cron"`
		TrainCron    string `yaml:"train_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
		JSONDir     string `yaml:"json_dir"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then .env and environment overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read config")
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	_ = godotenv.Load()

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("DATA_FILE"); v != "" {
		cfg.DataSource.File = v
		cfg.DataSource.Provider = "file"
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_BACKTEST"); v != "" {
		cfg.Schedule.BacktestCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
		if cfg.DataSource.File != "" {
			cfg.DataSource.Provider = "file"
		}
	}
	if cfg.DataSource.Symbol == "" {
		cfg.DataSource.Symbol = "SPX500"
	}
	if cfg.DataSource.Interval == "" {
		cfg.DataSource.Interval = "D"
	}
	if cfg.DataSource.MockPrice == 0 {
		cfg.DataSource.MockPrice = 100
	}
	if cfg.Backtest.Capital == 0 {
		cfg.Backtest.Capital = 100000
	}
	if cfg.Backtest.RiskPercentage == 0 {
		cfg.Backtest.RiskPercentage = 1
	}
	if cfg.Backtest.Sizing == "" {
		cfg.Backtest.Sizing = string(ledger.SizingFixed)
	}
	if cfg.Backtest.Settlement == "" {
		cfg.Backtest.Settlement = string(ledger.SettlementSpot)
	}
	if cfg.Backtest.FeeRate == nil {
		fee := accountant.DefaultFeeRate
		cfg.Backtest.FeeRate = &fee
	}
	if len(cfg.Backtest.Strategies) == 0 {
		cfg.Backtest.Strategies = []StrategyConfig{{Name: strategy.NameMovingAverage}}
	}
	if cfg.RL.Epochs == 0 {
		cfg.RL.Epochs = 10
	}
	if cfg.RL.ModelPath == "" {
		cfg.RL.ModelPath = "data/models/rl.json"
	}
	if cfg.RL.Seed == 0 {
		cfg.RL.Seed = 1
	}
	if cfg.Schedule.BacktestCron == "" {
		cfg.Schedule.BacktestCron = "0 0 8 * * 1-5"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks the fields a run cannot do without.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "file":
		if c.DataSource.File == "" {
			return model.NewConfigurationError("data_source.file", "is required for the file provider")
		}
	case "yahoo", "mock":
	default:
		return model.NewConfigurationError("data_source.provider", "must be file, yahoo or mock")
	}
	if _, err := model.ParseInterval(c.DataSource.Interval); err != nil {
		return model.NewConfigurationError("data_source.interval", err.Error())
	}
	if c.DataSource.Limit < 0 {
		return model.NewConfigurationError("data_source.limit", "must not be negative")
	}
	if err := (ledger.Config{
		Capital:        c.Backtest.Capital,
		RiskPercentage: c.Backtest.RiskPercentage,
		Sizing:         ledger.Sizing(c.Backtest.Sizing),
		Settlement:     ledger.Settlement(c.Backtest.Settlement),
	}).Validate(); err != nil {
		return err
	}
	if f := c.feeRate(); f < 0 || f >= 1 {
		return model.NewConfigurationError("backtest.fee_rate", "must be in [0, 1)")
	}
	if c.Backtest.Warmup < 0 {
		return model.NewConfigurationError("backtest.warmup", "must not be negative")
	}
	known := make(map[string]bool)
	for _, n := range backtest.Strategies() {
		known[n] = true
	}
	for _, s := range c.Backtest.Strategies {
		if !known[s.Name] {
			return model.NewConfigurationError("backtest.strategies", "unknown variant "+s.Name+
				", want one of "+strings.Join(backtest.Strategies(), ", "))
		}
	}
	if c.RL.Epochs < 0 {
		return model.NewConfigurationError("rl.epochs", "must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return model.NewConfigurationError("telegram", "bot_token and chat_id must be set together")
	}
	return nil
}

func (c *Config) feeRate() float64 {
	if c.Backtest.FeeRate == nil {
		return accountant.DefaultFeeRate
	}
	return *c.Backtest.FeeRate
}

// Engine is the per-run replay configuration.
func (c *Config) Engine() backtest.Config {
	return backtest.Config{
		Symbol:         c.DataSource.Symbol,
		Interval:       c.DataSource.Interval,
		Warmup:         c.Backtest.Warmup,
		AllowGaps:      c.DataSource.AllowGaps,
		Capital:        c.Backtest.Capital,
		RiskPercentage: c.Backtest.RiskPercentage,
		Sizing:         ledger.Sizing(c.Backtest.Sizing),
		Settlement:     ledger.Settlement(c.Backtest.Settlement),
		FeeRate:        c.feeRate(),
	}
}

// Service gathers what the backtest service runs.
func (c *Config) Service() backtest.ServiceConfig {
	runs := make([]backtest.RunSpec, 0, len(c.Backtest.Strategies))
	for _, s := range c.Backtest.Strategies {
		runs = append(runs, backtest.RunSpec{Name: s.Name, Params: strategy.Params(s.Params)})
	}
	return backtest.ServiceConfig{
		Engine: c.Engine(),
		Runs:   runs,
		Training: backtest.TrainingSpec{
			Params:  strategy.Params(c.RL.Params),
			Seed:    c.RL.Seed,
			Trainer: backtest.TrainerConfig{Epochs: c.RL.Epochs, ModelPath: c.RL.ModelPath},
		},
		ModelPath: c.RL.ModelPath,
	}
}
