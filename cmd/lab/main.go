package main

import (
	"flag"
	"log"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"StrategyLab/internal/config"
	"StrategyLab/internal/logger"
)

// mode selects what the process does after wiring.
type mode struct {
	Once  bool
	Train bool
}

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	once := flag.Bool("once", false, "run the configured backtests once and exit")
	train := flag.Bool("train", false, "train the RL model once and exit")
	flag.Parse()
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		*cfgPath = v
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, "strategylab"); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	app := fx.New(
		fx.Supply(cfg, mode{Once: *once, Train: *train}),
		fx.Provide(func() *zap.Logger { return logger.L() }),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
		dataModule(),
		storageModule(),
		notifierModule(),
		serviceModule(),
		runnerModule(),
	)
	app.Run()
}
