package rl

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"StrategyLab/internal/indicator"
	"StrategyLab/internal/model"
	"StrategyLab/internal/strategy"
)

const modelVersion = "1"

// TrainingStats are the metrics of the last trained epoch.
type TrainingStats struct {
	Epoch       int     `json:"epoch"`
	TotalReward float64 `json:"total_reward"`
	WinRate     float64 `json:"win_rate"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Sharpe      float64 `json:"sharpe"`
}

// Model is a frozen snapshot of the learned weights and feature statistics.
type Model struct {
	Version    string             `json:"version"`
	CreatedAt  time.Time          `json:"created_at"`
	Weights    map[string]float64 `json:"weights"`
	Bias       float64            `json:"bias"`
	Normalizer Normalizer         `json:"normalizer"`
	Config     Config             `json:"config"`
	Stats      *TrainingStats     `json:"training_stats,omitempty"`
}

// Snapshot freezes the current weights and statistics.
func (s *Strategy) Snapshot() *Model {
	w := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		w[name] = s.q.Weights[i]
	}
	return &Model{
		Version:    modelVersion,
		CreatedAt:  time.Now().UTC(),
		Weights:    w,
		Bias:       s.q.Bias,
		Normalizer: s.norm,
		Config:     s.cfg,
	}
}

// Restore continues learning from a saved model.
func (s *Strategy) Restore(m *Model) error {
	q, err := m.qfunction()
	if err != nil {
		return err
	}
	s.q = q
	s.norm = m.Normalizer
	return nil
}

func (m *Model) qfunction() (*QFunction, error) {
	q := &QFunction{Bias: m.Bias}
	for i, name := range FeatureNames {
		v, ok := m.Weights[name]
		if !ok {
			return nil, errors.Errorf("model: missing weight %q", name)
		}
		q.Weights[i] = v
	}
	return q, nil
}

// Predict is the greedy Buy value of the market under frozen statistics.
// It is 0 while the features cannot be observed.
func (m *Model) Predict(mk strategy.Market) float64 {
	q, err := m.qfunction()
	if err != nil {
		return 0
	}
	f, ok := Extract(mk, m.Config.TrendConfirmation)
	if !ok {
		return 0
	}
	return q.Score(m.Normalizer.Normalize(f))
}

// Indicators lets a ModelSignal strategy declare what Predict reads.
func (m *Model) Indicators() []indicator.Spec { return Indicators() }

// Save writes m as JSON, creating parent directories.
func (m *Model) Save(path string) error {
	data, err := sonic.ConfigStd.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal model")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create model dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write model %s", path)
	}
	return nil
}

// LoadModel reads a model saved by Save.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read model %s", path)
	}
	var m Model
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshal model")
	}
	if m.Version != modelVersion {
		return nil, model.NewConfigurationError("model.version", "unsupported version "+m.Version)
	}
	if _, err := m.qfunction(); err != nil {
		return nil, err
	}
	return &m, nil
}
