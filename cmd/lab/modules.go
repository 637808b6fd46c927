package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"StrategyLab/internal/backtest"
	"StrategyLab/internal/collector"
	"StrategyLab/internal/config"
	"StrategyLab/internal/logger"
	"StrategyLab/internal/notifier"
	"StrategyLab/internal/recorder"
	"StrategyLab/internal/scheduler"
)

func dataModule() fx.Option {
	return fx.Module("data",
		fx.Provide(func(cfg *config.Config) collector.Fetcher {
			switch cfg.DataSource.Provider {
			case "file":
				return collector.NewFileFetcher(cfg.DataSource.File)
			case "mock":
				return &collector.MockFetcher{Price: cfg.DataSource.MockPrice}
			default:
				return collector.NewYahooFetcher(cfg.Proxy)
			}
		}),
		fx.Provide(func(cfg *config.Config, f collector.Fetcher) *collector.Collector {
			logger.Info("data source: %s", f.Name())
			c := collector.NewCollector(f, cfg.DataSource.Symbol, cfg.DataSource.Interval, cfg.DataSource.Limit)
			c.AllowGaps = cfg.DataSource.AllowGaps
			return c
		}),
	)
}

// storageModule combines every configured backend. A backend that fails to
// open is skipped so that runs still happen.
func storageModule() fx.Option {
	return fx.Module("storage",
		fx.Provide(func(lc fx.Lifecycle, cfg *config.Config) recorder.Recorder {
			var backends recorder.Multi
			if p := cfg.Database.SQLitePath; p != "" {
				if r, err := recorder.NewSQLiteRecorder(p); err != nil {
					logger.Warn("init sqlite recorder failed, skipping: %v", err)
				} else {
					backends = append(backends, r)
				}
			}
			if dsn := cfg.Database.PostgresDSN; dsn != "" {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				r, err := recorder.NewPostgresRecorder(ctx, dsn)
				cancel()
				if err != nil {
					logger.Warn("init postgres recorder failed, skipping: %v", err)
				} else {
					backends = append(backends, r)
				}
			}
			if dir := cfg.Database.JSONDir; dir != "" {
				if r, err := recorder.NewJSONRecorder(dir); err != nil {
					logger.Warn("init json recorder failed, skipping: %v", err)
				} else {
					backends = append(backends, r)
				}
			}

			var rec recorder.Recorder = recorder.NewNoopRecorder()
			switch len(backends) {
			case 0:
			case 1:
				rec = backends[0]
			default:
				rec = backends
			}
			lc.Append(fx.Hook{OnStop: func(context.Context) error { return rec.Close() }})
			return rec
		}),
	)
}

func notifierModule() fx.Option {
	return fx.Module("notifier",
		fx.Provide(func(cfg *config.Config) (*notifier.TelegramNotifier, error) {
			if cfg.Telegram.BotToken == "" {
				return nil, nil
			}
			return notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		}),
		fx.Provide(func(tn *notifier.TelegramNotifier) notifier.Sender {
			if tn == nil {
				logger.Info("telegram not configured, notifications disabled")
				return notifier.NoopNotifier{}
			}
			return tn
		}),
	)
}

func serviceModule() fx.Option {
	return fx.Module("service",
		fx.Provide(func(cfg *config.Config, col *collector.Collector, rec recorder.Recorder, n notifier.Sender, log *zap.Logger) *backtest.Service {
			return backtest.NewService(cfg.Service(), col, rec, n, log.Named("backtest"))
		}),
	)
}

// runnerModule either runs one job and shuts down, or starts the cron
// scheduler and chat polling until the process is signalled.
func runnerModule() fx.Option {
	return fx.Module("runner",
		fx.Invoke(func(
			lc fx.Lifecycle,
			sd fx.Shutdowner,
			cfg *config.Config,
			m mode,
			svc *backtest.Service,
			n notifier.Sender,
			tn *notifier.TelegramNotifier,
		) {
			ctx, cancel := context.WithCancel(context.Background())

			if m.Once || m.Train {
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						go func() {
							code := 0
							if err := runOnce(ctx, svc, m); err != nil {
								logger.Error("%v", err)
								code = 1
							}
							_ = sd.Shutdown(fx.ExitCode(code))
						}()
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						return nil
					},
				})
				return
			}

			sched := scheduler.NewScheduler(ctx, svc, n)
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if err := sched.RegisterAll(cfg.Schedule.BacktestCron, cfg.Schedule.TrainCron); err != nil {
						return err
					}
					sched.Start()
					if tn != nil {
						go tn.StartPolling(ctx, sched.HandleCommand)
						logger.Info("telegram polling started")
					}
					if os.Getenv("RUN_ON_START") == "true" {
						logger.Info("RUN_ON_START enabled, running backtests now")
						go sched.RunNow()
					}
					logger.Info("StrategyLab is running")
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					sched.Stop()
					return nil
				},
			})
		}),
	)
}

func runOnce(ctx context.Context, svc *backtest.Service, m mode) error {
	if m.Train {
		res, err := svc.Train(ctx)
		if err != nil {
			return err
		}
		logger.Info("training finished: %d epochs, early stop %v", len(res.Epochs), res.EarlyStop)
	}
	if m.Once {
		results, err := svc.RunAll(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != nil {
				logger.Warn("%s: %v", r.Spec.Name, r.Err)
				continue
			}
			st := r.Report.Stats
			logger.Info("%s: %d trades, accuracy %.2f%%, ending capital %.2f",
				r.Spec.Name, st.TotalTrades, st.Accuracy, st.EndingCapital)
		}
	}
	return nil
}
