package backtest

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"StrategyLab/internal/collector"
	"StrategyLab/internal/model"
	"StrategyLab/internal/notifier"
	"StrategyLab/internal/recorder"
	"StrategyLab/internal/strategy"
	"StrategyLab/internal/strategy/rl"
)

// RunSpec names one configured variant.
type RunSpec struct {
	Name   string
	Params strategy.Params
}

// TrainingSpec configures RL training sessions.
type TrainingSpec struct {
	Params  strategy.Params
	Seed    int64
	Trainer TrainerConfig
}

// ServiceConfig is everything the service runs.
type ServiceConfig struct {
	Engine    Config
	Runs      []RunSpec
	Training  TrainingSpec
	ModelPath string
}

// RunResult is the outcome of one configured variant.
type RunResult struct {
	Spec   RunSpec
	Report *model.Report
	Err    error
}

// Service fetches candles once per batch and replays every configured
// variant on its own engine.
type Service struct {
	cfg       ServiceConfig
	collector *collector.Collector
	recorder  recorder.Recorder
	notifier  notifier.Sender
	log       *zap.Logger

	mu   sync.Mutex
	last []*model.Report
}

func NewService(cfg ServiceConfig, col *collector.Collector, rec recorder.Recorder, n notifier.Sender, log *zap.Logger) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cfg: cfg, collector: col, recorder: rec, notifier: n, log: log}
}

// RunAll replays the configured variants concurrently. Individual run
// failures are reported in the results; only a data failure is returned.
func (s *Service) RunAll(ctx context.Context) ([]RunResult, error) {
	candles, err := s.collector.Collect(ctx)
	if err != nil {
		s.log.Error("collect candles", zap.Error(err))
		s.notify(ctx, notifier.FormatRunSummary(nil, err))
		return nil, err
	}
	s.log.Info("candles collected", zap.Int("count", len(candles)), zap.String("source", s.collector.Fetcher.Name()))

	results := make([]RunResult, len(s.cfg.Runs))
	var wg sync.WaitGroup
	for i, spec := range s.cfg.Runs {
		wg.Add(1)
		go func(i int, spec RunSpec) {
			defer wg.Done()
			results[i] = s.runOne(candles, spec)
		}(i, spec)
	}
	wg.Wait()

	reports := make([]*model.Report, 0, len(results))
	for _, r := range results {
		if r.Report != nil {
			reports = append(reports, r.Report)
		}
		s.notify(ctx, notifier.FormatRunSummary(r.Report, r.Err))
	}
	s.mu.Lock()
	s.last = reports
	s.mu.Unlock()
	return results, nil
}

func (s *Service) runOne(candles []model.Candle, spec RunSpec) RunResult {
	res := RunResult{Spec: spec}
	strat, err := NewStrategy(spec.Name, spec.Params, Options{Seed: s.cfg.Training.Seed, ModelPath: s.cfg.ModelPath})
	if err != nil {
		res.Err = errors.Wrap(err, spec.Name)
		s.log.Error("build strategy", zap.String("strategy", spec.Name), zap.Error(err))
		return res
	}
	eng, err := NewEngine(s.cfg.Engine, candles, strat, s.log)
	if err != nil {
		res.Err = errors.Wrap(err, spec.Name)
		s.log.Error("build engine", zap.String("strategy", spec.Name), zap.Error(err))
		return res
	}

	started := time.Now()
	res.Report, res.Err = eng.Execute()
	if res.Report == nil {
		return res
	}
	run := &recorder.Run{Report: res.Report, Started: started, Finished: time.Now()}
	if res.Err != nil {
		run.Err = res.Err.Error()
	}
	if err := s.recorder.RecordRun(run); err != nil {
		s.log.Error("record run", zap.String("run_id", res.Report.RunID), zap.Error(err))
	}
	return res
}

// Train runs an RL training session on fresh candles and reports it.
func (s *Service) Train(ctx context.Context) (*TrainingResult, error) {
	candles, err := s.collector.Collect(ctx)
	if err != nil {
		s.log.Error("collect candles", zap.Error(err))
		return nil, err
	}
	built, err := NewStrategy(strategy.NameReinforcementLearning, s.cfg.Training.Params,
		Options{Seed: s.cfg.Training.Seed, ModelPath: s.cfg.Training.Trainer.ModelPath})
	if err != nil {
		return nil, err
	}
	trainer, err := NewTrainer(s.cfg.Engine, s.cfg.Training.Trainer, candles, built.(*rl.Strategy), s.log)
	if err != nil {
		return nil, err
	}
	res, err := trainer.Train(ctx)
	if err != nil {
		s.log.Error("training failed", zap.Error(err))
		return res, err
	}
	s.notify(ctx, notifier.FormatTrainingSummary(res.Epochs, res.EarlyStop, s.cfg.Training.Trainer.ModelPath))
	return res, nil
}

// Last returns the reports of the latest RunAll.
func (s *Service) Last() []*model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Report, len(s.last))
	copy(out, s.last)
	return out
}

func (s *Service) notify(ctx context.Context, text string) {
	if err := s.notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
