package recorder

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"StrategyLab/internal/model"
)

// Run is one finished replay, successful or not.
type Run struct {
	Report   *model.Report `json:"report"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Err      string        `json:"error,omitempty"` // set when the replay stopped early
}

// Recorder persists replay results for later analysis.
type Recorder interface {
	RecordRun(run *Run) error
	Close() error
}

// Multi fans every run out to several recorders.
type Multi []Recorder

// RecordRun writes to every backend and reports the first failure.
func (m Multi) RecordRun(run *Run) error {
	var first error
	failed := 0
	for _, r := range m {
		if err := r.RecordRun(run); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if first != nil {
		return errors.Wrap(first, fmt.Sprintf("%d of %d recorders failed", failed, len(m)))
	}
	return nil
}

func (m Multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func validRun(run *Run) error {
	if run == nil || run.Report == nil {
		return errors.New("recorder: run without report")
	}
	return nil
}
