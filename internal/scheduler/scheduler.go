package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"StrategyLab/internal/backtest"
	"StrategyLab/internal/logger"
	"StrategyLab/internal/model"
	"StrategyLab/internal/notifier"
)

// Runner runs the configured backtests and training sessions.
type Runner interface {
	RunAll(ctx context.Context) ([]backtest.RunResult, error)
	Train(ctx context.Context) (*backtest.TrainingResult, error)
	Last() []*model.Report
}

// Scheduler manages the cron tasks and the chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier notifier.Sender
	Ctx      context.Context

	busy atomic.Bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, r Runner, n notifier.Sender) *Scheduler {
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   r,
		Notifier: n,
		Ctx:      ctx,
	}
}

// RegisterAll registers the backtest task and, when trainCron is set, the training task.
func (s *Scheduler) RegisterAll(backtestCron, trainCron string) error {
	if backtestCron != "" {
		if _, err := s.Cron.AddFunc(backtestCron, func() { s.backtestTask() }); err != nil {
			return fmt.Errorf("register backtest task: %w", err)
		}
	}
	if trainCron != "" {
		if _, err := s.Cron.AddFunc(trainCron, func() { s.trainTask() }); err != nil {
			return fmt.Errorf("register train task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info("scheduler started with %d tasks", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info("scheduler stopped")
}

// RunNow executes the backtest task immediately.
func (s *Scheduler) RunNow() bool {
	return s.backtestTask()
}

// TrainNow executes the training task immediately.
func (s *Scheduler) TrainNow() bool {
	return s.trainTask()
}

// exclusive runs job unless another job is in flight.
func (s *Scheduler) exclusive(name string, job func()) bool {
	if !s.busy.CompareAndSwap(false, true) {
		logger.Warn("%s skipped: another job is running", name)
		return false
	}
	defer s.busy.Store(false)
	job()
	return true
}

func (s *Scheduler) backtestTask() bool {
	return s.exclusive("backtest", func() {
		logger.Info("running backtest task")
		results, err := s.Runner.RunAll(s.Ctx)
		if err != nil {
			logger.Error("backtest task: %v", err)
			return
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		logger.Info("backtest task done: %d runs, %d failed", len(results), failed)
	})
}

func (s *Scheduler) trainTask() bool {
	return s.exclusive("train", func() {
		logger.Info("running train task")
		res, err := s.Runner.Train(s.Ctx)
		if err != nil {
			logger.Error("train task: %v", err)
			s.trySend(fmt.Sprintf("❌ Training failed: %v", err))
			return
		}
		logger.Info("train task done: %d epochs, early stop %v", len(res.Epochs), res.EarlyStop)
	})
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	switch strings.ToLower(cmd) {
	case "/run":
		if !s.RunNow() {
			return "A job is already running."
		}
		return ""
	case "/train":
		if !s.TrainNow() {
			return "A job is already running."
		}
		return ""
	case "/last":
		return notifier.FormatRunTable(s.Runner.Last())
	case "/strategies":
		return notifier.FormatStrategies(backtest.Strategies())
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		logger.Error("send message: %v", err)
	}
}
